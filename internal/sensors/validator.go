package sensors

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/secretengineer/GreenOS/internal/calibration"
	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/pkg/config"
)

// Validator applies plausibility ranges to raw readings, tracks
// per-unit health, and substitutes last-known-good values on
// rejection. A reading that fails any field in a multi-field unit
// invalidates the whole unit for that cycle.
type Validator struct {
	mu sync.Mutex

	thresholds config.Thresholds
	maxErrors  int
	conv       *calibration.Converter
	airQuality *mq135
	logger     *slog.Logger

	health map[models.SensorID]*healthRecord

	// Last accepted values, used as fallbacks. Seeded with safe
	// mid-range defaults so the first snapshot is usable even before
	// any reading is accepted.
	climate    models.ClimateRaw
	soil       models.SoilRaw
	airPPM     float64
	noiseV     float64
	motion     bool
	leak       bool
	upsActive  bool
	lastTickMs int64
	lastHour   int
}

// NewValidator builds a validator with the given thresholds, error
// threshold and calibration converter for the analog channels.
func NewValidator(t config.Thresholds, maxErrors int, conv *calibration.Converter, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{
		thresholds: t,
		maxErrors:  maxErrors,
		conv:       conv,
		airQuality: newMQ135(DefaultMQ135R0),
		logger:     logger.With("component", "sensors"),
		health:     make(map[models.SensorID]*healthRecord, len(models.AllSensors)),
		climate:    models.ClimateRaw{CO2PPM: 400, TempC: 20, HumidityPct: 50},
		soil:       models.SoilRaw{MoisturePct: 30, TempC: 20, ECMSCm: 1.5, PH: 6.5},
	}
	for _, id := range models.AllSensors {
		v.health[id] = newHealthRecord()
	}
	return v
}

// SetThresholds replaces the plausibility ranges. Takes effect on the
// next Validate call; health records are untouched.
func (v *Validator) SetThresholds(t config.Thresholds) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.thresholds = t
}

// Validate consumes one poll worth of raw inputs and produces the
// snapshot for this cycle. Rejected or suppressed units fall back to
// their last accepted values; validation never fails outright.
func (v *Validator) Validate(raw models.RawInputs) models.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lastTickMs = raw.TickMs
	v.lastHour = raw.HourUTC

	v.validateClimate(raw)
	v.validateAirQuality(raw)
	v.validateSoil(raw)

	// Simple channels carry no health tracking: the microphone level
	// is a calibrated voltage, the discrete lines are trusted as wired.
	if len(raw.NoiseSamples) > 0 {
		v.noiseV = v.conv.VoltageFromSamples(raw.NoiseSamples)
	}
	v.motion = raw.MotionDetected
	v.leak = raw.LeakDetected
	v.upsActive = raw.UPSActive

	return v.snapshotLocked()
}

func (v *Validator) validateClimate(raw models.RawInputs) {
	h := v.health[models.SensorClimate]
	h.totalReads++
	if !h.valid {
		// Unit flagged as failed; reads stay suppressed until an
		// explicit ResetHealth.
		return
	}
	p := v.thresholds.Plausibility
	if raw.Climate != nil &&
		p.CO2PPM.Contains(raw.Climate.CO2PPM) &&
		p.AirTempC.Contains(raw.Climate.TempC) &&
		p.AirHumidity.Contains(raw.Climate.HumidityPct) {
		v.climate = *raw.Climate
		h.accept(raw.TickMs, raw.Climate.CO2PPM)
		return
	}
	h.reject(v.maxErrors)
	if !h.valid {
		v.logger.Warn("climate unit flagged as failed",
			"consecutive_errors", h.consecutiveErrors)
	}
}

func (v *Validator) validateAirQuality(raw models.RawInputs) {
	h := v.health[models.SensorAirQuality]
	h.totalReads++
	if !h.valid {
		return
	}
	if len(raw.AirQualitySamples) > 0 {
		voltage := v.conv.VoltageFromSamples(raw.AirQualitySamples)
		if ppm, ok := v.airQuality.ppm(voltage); ok &&
			v.thresholds.Plausibility.AirQualityPPM.Contains(ppm) {
			v.airPPM = ppm
			h.accept(raw.TickMs, ppm)
			return
		}
	}
	h.reject(v.maxErrors)
	if !h.valid {
		v.logger.Warn("air-quality unit flagged as failed",
			"consecutive_errors", h.consecutiveErrors)
	}
}

func (v *Validator) validateSoil(raw models.RawInputs) {
	h := v.health[models.SensorSoil]
	h.totalReads++
	if !h.valid {
		return
	}
	p := v.thresholds.Plausibility
	if raw.Soil != nil &&
		p.SoilMoisture.Contains(raw.Soil.MoisturePct) &&
		p.SoilTempC.Contains(raw.Soil.TempC) &&
		p.ECMSCm.Contains(raw.Soil.ECMSCm) &&
		p.PH.Contains(raw.Soil.PH) {
		v.soil = *raw.Soil
		h.accept(raw.TickMs, raw.Soil.ECMSCm)
		return
	}
	h.reject(v.maxErrors)
	if !h.valid {
		v.logger.Warn("soil unit flagged as failed",
			"consecutive_errors", h.consecutiveErrors)
	}
}

func (v *Validator) snapshotLocked() models.Snapshot {
	health := make(map[models.SensorID]models.SensorHealth, len(v.health))
	for id, h := range v.health {
		health[id] = h.view()
	}
	return models.Snapshot{
		TickMs:         v.lastTickMs,
		HourUTC:        v.lastHour,
		AirTempC:       v.climate.TempC,
		AirHumidity:    v.climate.HumidityPct,
		CO2PPM:         v.climate.CO2PPM,
		AirQualityPPM:  v.airPPM,
		SoilMoisture:   v.soil.MoisturePct,
		SoilTempC:      v.soil.TempC,
		ECMSCm:         v.soil.ECMSCm,
		PH:             v.soil.PH,
		NoiseLevelV:    v.noiseV,
		MotionDetected: v.motion,
		LeakDetected:   v.leak,
		UPSActive:      v.upsActive,
		Health:         health,
	}
}

// Snapshot returns the latest validated state without consuming input.
func (v *Validator) Snapshot() models.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// ResetHealth is the single explicit recovery path for a unit flagged
// invalid. It restores validity and clears the consecutive-error
// count; cumulative statistics are preserved.
func (v *Validator) ResetHealth(id models.SensorID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	h, ok := v.health[id]
	if !ok {
		return fmt.Errorf("unknown sensor %q", id)
	}
	h.valid = true
	h.consecutiveErrors = 0
	v.logger.Info("sensor health reset", "sensor", string(id))
	return nil
}

// CalibrateAirQuality re-derives the MQ135 clean-air baseline from a
// raw sample burst captured in clean air. Maintenance operation.
func (v *Validator) CalibrateAirQuality(samples []uint16) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	voltage := v.conv.VoltageFromSamples(samples)
	r0 := v.airQuality.calibrateR0(voltage)
	v.logger.Info("air-quality baseline calibrated", "r0_ohm", r0)
	return r0
}
