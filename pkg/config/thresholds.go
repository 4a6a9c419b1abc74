package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive [Min, Max] bound for one physical quantity.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Plausibility holds the hard accept/reject ranges applied to raw
// readings before they enter the snapshot.
type Plausibility struct {
	CO2PPM        Range `yaml:"co2_ppm"`
	AirTempC      Range `yaml:"air_temp_c"`
	AirHumidity   Range `yaml:"air_humidity_pct"`
	AirQualityPPM Range `yaml:"air_quality_ppm"`
	SoilMoisture  Range `yaml:"soil_moisture_pct"`
	SoilTempC     Range `yaml:"soil_temp_c"`
	ECMSCm        Range `yaml:"ec_ms_cm"`
	PH            Range `yaml:"ph"`
}

// OperatingHours defines the daily window during which motion is
// expected (staff on site). Hours are UTC, [Start, End).
type OperatingHours struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// OffHours reports whether the given UTC hour is outside the window.
func (o OperatingHours) OffHours(hour int) bool {
	return hour < o.StartHour || hour >= o.EndHour
}

// Thresholds gathers every tunable limit used by validation and
// anomaly classification. Values come from a YAML file so deployments
// can adjust them without rebuilding.
type Thresholds struct {
	Plausibility Plausibility `yaml:"plausibility"`

	// Critical bounds trigger emergencies.
	TempCriticalLowC  float64 `yaml:"temp_critical_low_c"`
	TempCriticalHighC float64 `yaml:"temp_critical_high_c"`

	// Optimal bounds trigger warnings.
	TempOptimal     Range `yaml:"temp_optimal_c"`
	HumidityOptimal Range `yaml:"humidity_optimal_pct"`

	// RapidTempDropC is the negative per-cycle delta that flags a
	// rapid temperature drop (stored positive, e.g. 2.0).
	RapidTempDropC float64 `yaml:"rapid_temp_drop_c"`

	// NoiseThresholdV is the microphone level treated as loud noise.
	NoiseThresholdV float64 `yaml:"noise_threshold_v"`

	OperatingHours OperatingHours `yaml:"operating_hours"`

	// EscalateMotionBreach promotes off-hours motion from a warning to
	// a security-breach emergency. Deployment policy, default off.
	EscalateMotionBreach bool `yaml:"escalate_motion_breach"`
}

// DefaultThresholds mirrors the firmware defaults for a high-altitude
// continental deployment.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Plausibility: Plausibility{
			CO2PPM:        Range{Min: 300, Max: 5000},
			AirTempC:      Range{Min: -10, Max: 50},
			AirHumidity:   Range{Min: 0, Max: 100},
			AirQualityPPM: Range{Min: 10, Max: 2000},
			SoilMoisture:  Range{Min: 0, Max: 100},
			SoilTempC:     Range{Min: -10, Max: 60},
			ECMSCm:        Range{Min: 0, Max: 10},
			PH:            Range{Min: 3, Max: 10},
		},
		TempCriticalLowC:  10.0,
		TempCriticalHighC: 35.0,
		TempOptimal:       Range{Min: 18, Max: 24},
		HumidityOptimal:   Range{Min: 40, Max: 80},
		RapidTempDropC:    2.0,
		NoiseThresholdV:   2.5,
		OperatingHours:    OperatingHours{StartHour: 8, EndHour: 20},
	}
}

// ParseThresholds decodes a YAML threshold document over the defaults,
// so partial documents only override what they name.
func ParseThresholds(data []byte) (Thresholds, error) {
	t := DefaultThresholds()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds: %w", err)
	}
	return t, nil
}

// LoadThresholds reads the YAML threshold file. A missing file yields
// the defaults; a malformed file is an error so typos do not silently
// relax safety limits.
func LoadThresholds(path string) (Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultThresholds(), nil
		}
		return Thresholds{}, fmt.Errorf("read thresholds file: %w", err)
	}
	t, err := ParseThresholds(data)
	if err != nil {
		return Thresholds{}, fmt.Errorf("thresholds file %s: %w", path, err)
	}
	return t, nil
}
