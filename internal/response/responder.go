package response

import (
	"log/slog"

	"github.com/secretengineer/GreenOS/internal/anomaly"
	"github.com/secretengineer/GreenOS/internal/safety"
)

// step is one entry in a response sequence.
type step struct {
	actuator safety.ActuatorID
	desired  safety.State
}

// emergencyPlans maps every emergency kind to its ordered command
// sequence. The table is total over anomaly.AllEmergencyKinds; a
// package test enforces exhaustiveness.
var emergencyPlans = map[anomaly.EmergencyKind][]step{
	anomaly.EmergencyLowTemp: {
		{safety.FanExhaust, safety.StateOff},
		{safety.HeaterPrimary, safety.StateOn},
		{safety.HeaterSecondary, safety.StateOn},
		{safety.FanCirculation, safety.StateOn},
	},
	anomaly.EmergencyHighTemp: {
		{safety.HeaterPrimary, safety.StateOff},
		{safety.HeaterSecondary, safety.StateOff},
		{safety.FanExhaust, safety.StateOn},
		{safety.FanCirculation, safety.StateOn},
		{safety.Light, safety.StateOff},
	},
	anomaly.EmergencySecurityBreach: {
		{safety.Light, safety.StateOn},
	},
	anomaly.EmergencyWaterLeak: {
		{safety.Pump, safety.StateOff},
	},
	anomaly.EmergencyPowerFailure: {
		{safety.HeaterPrimary, safety.StateOff},
		{safety.HeaterSecondary, safety.StateOff},
		{safety.Light, safety.StateOff},
		{safety.FanCirculation, safety.StateOn},
	},
}

// warningPlans holds the softer responses. Kinds without an entry
// perform no actuator action.
var warningPlans = map[anomaly.WarningKind][]step{
	anomaly.WarningTempTooLow: {
		{safety.HeaterPrimary, safety.StateOn},
	},
	anomaly.WarningTempTooHigh: {
		{safety.FanExhaust, safety.StateOn},
		{safety.Light, safety.StateOff},
	},
	anomaly.WarningHumidityTooLow: {
		{safety.FanExhaust, safety.StateOff},
	},
	anomaly.WarningHumidityTooHigh: {
		{safety.FanExhaust, safety.StateOn},
		{safety.FanCirculation, safety.StateOn},
	},
}

// AlarmTransport drives an external audible alarm. It sits outside the
// interlock engine: the alarm is not a relay-controlled actuator.
type AlarmTransport interface {
	Pulse(count int) error
}

// Responder maps classifications to deterministic command sequences
// issued through the interlock engine. It has no override authority: a
// rejected step is skipped, not retried, and the sequence continues.
type Responder struct {
	engine *safety.Engine
	alarm  AlarmTransport
	logger *slog.Logger
}

// NewResponder builds a responder over the given engine. alarm may be
// nil when no audible alarm is installed.
func NewResponder(engine *safety.Engine, alarm AlarmTransport, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{engine: engine, alarm: alarm, logger: logger.With("component", "response")}
}

// Respond dispatches the classification at the given tick. Nothing
// happens for LevelNone.
func (r *Responder) Respond(c anomaly.Classification, nowMs int64) {
	switch c.Level {
	case anomaly.LevelEmergency:
		r.logger.Error("emergency response activated",
			"kind", c.Emergency.String(), "detail", c.Detail)
		r.runSteps(emergencyPlans[c.Emergency], nowMs, true)
		if c.Emergency == anomaly.EmergencySecurityBreach && r.alarm != nil {
			if err := r.alarm.Pulse(5); err != nil {
				r.logger.Error("alarm pulse failed", "error", err)
			}
		}
	case anomaly.LevelWarning:
		steps, ok := warningPlans[c.Warning]
		if !ok {
			// No automated response for this warning kind.
			return
		}
		r.logger.Warn("warning response activated",
			"kind", c.Warning.String(), "detail", c.Detail)
		r.runSteps(steps, nowMs, false)
	}
}

func (r *Responder) runSteps(steps []step, nowMs int64, emergencyTier bool) {
	for _, s := range steps {
		res := r.engine.RequestChange(s.actuator, s.desired, nowMs)
		if res.Applied {
			continue
		}
		// Skipped, not retried. An interlock blocking an emergency step
		// is worth an error-level record.
		if emergencyTier {
			r.logger.Error("emergency step blocked by interlock",
				"actuator", string(s.actuator), "desired", string(s.desired),
				"reason", string(res.Reason))
		} else {
			r.logger.Warn("warning step blocked by interlock",
				"actuator", string(s.actuator), "desired", string(s.desired),
				"reason", string(res.Reason))
		}
	}
}
