package anomaly

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/pkg/config"
)

// Classifier evaluates snapshots against configured thresholds and
// yields at most one classification per cycle. Evaluation is strictly
// ordered: discrete emergencies pre-empt everything, then critical
// temperature bounds, then the warning checks, first match wins.
type Classifier struct {
	mu         sync.Mutex
	thresholds config.Thresholds
	logger     *slog.Logger
}

// NewClassifier builds a classifier over the given thresholds.
func NewClassifier(t config.Thresholds, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{thresholds: t, logger: logger.With("component", "anomaly")}
}

// SetThresholds replaces the threshold table. Takes effect on the next
// Classify call.
func (c *Classifier) SetThresholds(t config.Thresholds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds = t
}

// Classify evaluates the current snapshot, using the previous one for
// rate-of-change checks. previous may be nil on the first cycle.
func (c *Classifier) Classify(current models.Snapshot, previous *models.Snapshot) Classification {
	c.mu.Lock()
	t := c.thresholds
	c.mu.Unlock()

	// Dedicated discrete lines report as emergencies with top
	// priority, pre-empting the threshold ordering below.
	offHours := t.OperatingHours.OffHours(current.HourUTC)
	if t.EscalateMotionBreach && current.MotionDetected && offHours {
		return emergency(EmergencySecurityBreach,
			fmt.Sprintf("motion detected at %02d:00 UTC", current.HourUTC))
	}
	if current.LeakDetected {
		return emergency(EmergencyWaterLeak, "leak sensor active")
	}
	if current.UPSActive {
		return emergency(EmergencyPowerFailure, "running on UPS power")
	}

	if current.AirTempC <= t.TempCriticalLowC {
		return emergency(EmergencyLowTemp,
			fmt.Sprintf("air temp %.1f°C at or below critical %.1f°C", current.AirTempC, t.TempCriticalLowC))
	}
	if current.AirTempC >= t.TempCriticalHighC {
		return emergency(EmergencyHighTemp,
			fmt.Sprintf("air temp %.1f°C at or above critical %.1f°C", current.AirTempC, t.TempCriticalHighC))
	}

	if current.MotionDetected && offHours {
		return warning(WarningMotionOffHours,
			fmt.Sprintf("motion detected at %02d:00 UTC", current.HourUTC))
	}
	if current.NoiseLevelV > t.NoiseThresholdV {
		return warning(WarningLoudNoise,
			fmt.Sprintf("noise level %.2fV above %.2fV", current.NoiseLevelV, t.NoiseThresholdV))
	}
	if previous != nil {
		drop := previous.AirTempC - current.AirTempC
		if drop >= t.RapidTempDropC {
			return warning(WarningRapidTempDrop,
				fmt.Sprintf("air temp fell %.1f°C in one cycle", drop))
		}
	}
	for _, id := range models.AllSensors {
		if h, ok := current.Health[id]; ok && !h.Valid {
			return warning(WarningSensorMalfunction,
				fmt.Sprintf("sensor %s flagged invalid", id))
		}
	}

	if current.AirTempC < t.TempOptimal.Min {
		return warning(WarningTempTooLow,
			fmt.Sprintf("air temp %.1f°C below optimal %.1f°C", current.AirTempC, t.TempOptimal.Min))
	}
	if current.AirTempC > t.TempOptimal.Max {
		return warning(WarningTempTooHigh,
			fmt.Sprintf("air temp %.1f°C above optimal %.1f°C", current.AirTempC, t.TempOptimal.Max))
	}
	if current.AirHumidity < t.HumidityOptimal.Min {
		return warning(WarningHumidityTooLow,
			fmt.Sprintf("humidity %.1f%% below optimal %.1f%%", current.AirHumidity, t.HumidityOptimal.Min))
	}
	if current.AirHumidity > t.HumidityOptimal.Max {
		return warning(WarningHumidityTooHigh,
			fmt.Sprintf("humidity %.1f%% above optimal %.1f%%", current.AirHumidity, t.HumidityOptimal.Max))
	}

	return None
}
