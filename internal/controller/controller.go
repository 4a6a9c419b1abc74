package controller

import (
	"log/slog"
	"sync"

	"github.com/secretengineer/GreenOS/internal/anomaly"
	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/internal/response"
	"github.com/secretengineer/GreenOS/internal/safety"
	"github.com/secretengineer/GreenOS/internal/sensors"
	"github.com/secretengineer/GreenOS/pkg/config"
)

// AlertFunc is invoked for every non-None classification so the cloud
// channel can forward alerts. Called synchronously from the decision
// cycle; implementations must not block.
type AlertFunc func(c anomaly.Classification, snap models.Snapshot)

// Controller owns the whole decision pipeline: validator, classifier,
// interlock engine and responder, as one object with explicit state.
// All mutation flows through its methods under one mutex, so interlock
// decisions stay indivisible when hosted concurrently.
type Controller struct {
	mu sync.Mutex

	validator  *sensors.Validator
	classifier *anomaly.Classifier
	engine     *safety.Engine
	responder  *response.Responder
	logger     *slog.Logger

	snapshot     models.Snapshot
	prevSnapshot *models.Snapshot
	hasSnapshot  bool

	lastClassification anomaly.Classification

	onAlert AlertFunc
}

// New wires the pipeline components into a controller.
func New(v *sensors.Validator, c *anomaly.Classifier, e *safety.Engine, r *response.Responder, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		validator:  v,
		classifier: c,
		engine:     e,
		responder:  r,
		logger:     logger.With("component", "controller"),
	}
}

// SetAlertFunc registers the alert forwarding callback.
func (c *Controller) SetAlertFunc(fn AlertFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAlert = fn
}

// Poll validates one set of raw readings and refreshes the snapshot.
// Runs at the sensor cadence.
func (c *Controller) Poll(raw models.RawInputs) models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasSnapshot {
		prev := c.snapshot
		c.prevSnapshot = &prev
	}
	c.snapshot = c.validator.Validate(raw)
	c.hasSnapshot = true
	return c.snapshot
}

// Evaluate classifies the latest snapshot and dispatches any response.
// Runs at the anomaly cadence; also enforces runtime ceilings so the
// pump is bounded even across quiet cycles.
func (c *Controller) Evaluate(nowMs int64) anomaly.Classification {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.CheckRuntimes(nowMs)

	if !c.hasSnapshot {
		return anomaly.None
	}
	cls := c.classifier.Classify(c.snapshot, c.prevSnapshot)
	c.lastClassification = cls
	if cls.Level == anomaly.LevelNone {
		return cls
	}

	c.logger.Info("anomaly classified", "classification", cls.String(), "detail", cls.Detail)
	c.responder.Respond(cls, nowMs)
	if c.onAlert != nil {
		c.onAlert(cls, c.snapshot)
	}
	return cls
}

// Snapshot returns the latest validated sensor snapshot.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSnapshot {
		return c.validator.Snapshot()
	}
	return c.snapshot
}

// Classification returns the most recent evaluation result.
func (c *Controller) Classification() anomaly.Classification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastClassification
}

// Actuators returns the authoritative actuator record set.
func (c *Controller) Actuators() []safety.Record {
	return c.engine.Records()
}

// Commands returns the applied/rejected command log.
func (c *Controller) Commands() []safety.CommandLogEntry {
	return c.engine.CommandLog()
}

// Override requests a manual actuator change through the interlock
// gate. Manual commands hold no special authority.
func (c *Controller) Override(id safety.ActuatorID, desired safety.State, nowMs int64) safety.Result {
	c.logger.Info("manual override requested",
		"actuator", string(id), "desired", string(desired))
	return c.engine.RequestChange(id, desired, nowMs)
}

// UpdateThresholds swaps the threshold tables used by validation and
// classification. Remote config path; interlock limits are not
// runtime-tunable.
func (c *Controller) UpdateThresholds(t config.Thresholds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validator.SetThresholds(t)
	c.classifier.SetThresholds(t)
	c.logger.Info("thresholds updated",
		"temp_critical_low_c", t.TempCriticalLowC,
		"temp_critical_high_c", t.TempCriticalHighC)
}

// ResetSensor restores validity for a sensor flagged invalid. This is
// the only recovery path; validity never resets on its own.
func (c *Controller) ResetSensor(id models.SensorID) error {
	return c.validator.ResetHealth(id)
}

// StopAll turns every actuator off. Shutdown path.
func (c *Controller) StopAll(nowMs int64) {
	c.engine.StopAll(nowMs)
}
