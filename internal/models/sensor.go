package models

// SensorID identifies a logical sensor unit. One unit may carry several
// physical quantities (the climate unit reports CO2, temperature and
// humidity in a single transaction).
type SensorID string

const (
	SensorClimate    SensorID = "climate"
	SensorAirQuality SensorID = "air_quality"
	SensorSoil       SensorID = "soil"
)

// AllSensors lists every logical sensor unit the controller tracks.
var AllSensors = []SensorID{SensorClimate, SensorAirQuality, SensorSoil}

// ClimateRaw is one raw transaction from the CO2/temp/humidity unit.
type ClimateRaw struct {
	CO2PPM      float64 `json:"co2_ppm"`
	TempC       float64 `json:"temp_c"`
	HumidityPct float64 `json:"humidity_pct"`
}

// SoilRaw is one raw transaction from the soil multiparameter probe.
type SoilRaw struct {
	MoisturePct float64 `json:"moisture_pct"`
	TempC       float64 `json:"temp_c"`
	ECMSCm      float64 `json:"ec_ms_cm"`
	PH          float64 `json:"ph"`
}

// RawInputs carries one poll worth of raw readings for every physical
// sensor plus the caller-supplied tick. A nil pointer means the bus
// transaction for that unit failed this cycle.
type RawInputs struct {
	TickMs  int64 `json:"tick_ms"`
	HourUTC int   `json:"hour_utc"`

	Climate *ClimateRaw `json:"climate,omitempty"`
	Soil    *SoilRaw    `json:"soil,omitempty"`

	// Raw ADC sample bursts for the analog channels. Averaged and run
	// through calibration before plausibility checks.
	AirQualitySamples []uint16 `json:"air_quality_samples,omitempty"`
	NoiseSamples      []uint16 `json:"noise_samples,omitempty"`

	// Discrete lines.
	MotionDetected bool `json:"motion_detected"`
	LeakDetected   bool `json:"leak_detected"`
	UPSActive      bool `json:"ups_active"`
}

// SensorHealth is the per-unit health view embedded in each snapshot.
type SensorHealth struct {
	Valid             bool    `json:"valid"`
	LastValidTickMs   int64   `json:"last_valid_tick_ms"`
	ConsecutiveErrors int     `json:"consecutive_errors"`
	TotalReads        uint64  `json:"total_reads"`
	TotalErrors       uint64  `json:"total_errors"`
	ErrorRatePct      float64 `json:"error_rate_pct"`
}

// Snapshot is the complete validated sensor state for one evaluation
// cycle. It is immutable once produced; consumers receive copies.
type Snapshot struct {
	TickMs  int64 `json:"tick_ms"`
	HourUTC int   `json:"hour_utc"`

	// Environmental
	AirTempC      float64 `json:"air_temp_c"`
	AirHumidity   float64 `json:"air_humidity_pct"`
	CO2PPM        float64 `json:"co2_ppm"`
	AirQualityPPM float64 `json:"air_quality_ppm"`

	// Soil
	SoilMoisture float64 `json:"soil_moisture_pct"`
	SoilTempC    float64 `json:"soil_temp_c"`
	ECMSCm       float64 `json:"ec_ms_cm"`
	PH           float64 `json:"ph"`

	// Security / power
	NoiseLevelV    float64 `json:"noise_level_v"`
	MotionDetected bool    `json:"motion_detected"`
	LeakDetected   bool    `json:"leak_detected"`
	UPSActive      bool    `json:"ups_active"`

	Health map[SensorID]SensorHealth `json:"health"`
}

// HealthFor returns the health record for a unit, zero value if unknown.
func (s Snapshot) HealthFor(id SensorID) SensorHealth {
	return s.Health[id]
}
