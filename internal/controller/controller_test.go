package controller

import (
	"io"
	"log/slog"
	"testing"

	"github.com/secretengineer/GreenOS/internal/anomaly"
	"github.com/secretengineer/GreenOS/internal/calibration"
	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/internal/response"
	"github.com/secretengineer/GreenOS/internal/safety"
	"github.com/secretengineer/GreenOS/internal/sensors"
	"github.com/secretengineer/GreenOS/pkg/config"
)

func newTestController() (*Controller, *safety.Engine) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	thresholds := config.DefaultThresholds()
	conv := calibration.NewConverter(calibration.DefaultRecord(), 4095)
	validator := sensors.NewValidator(thresholds, 5, conv, logger)
	classifier := anomaly.NewClassifier(thresholds, logger)
	engine := safety.NewEngine(60000, 600000, safety.NopTransport{}, logger)
	responder := response.NewResponder(engine, nil, logger)
	return New(validator, classifier, engine, responder, logger), engine
}

func climateRaw(tickMs int64, tempC float64) models.RawInputs {
	return models.RawInputs{
		TickMs:  tickMs,
		HourUTC: 12,
		Climate: &models.ClimateRaw{CO2PPM: 450, TempC: tempC, HumidityPct: 55},
		Soil:    &models.SoilRaw{MoisturePct: 35, TempC: 19, ECMSCm: 1.2, PH: 6.4},
	}
}

func TestLowTempEndToEnd(t *testing.T) {
	ctrl, engine := newTestController()

	var alerted []anomaly.Classification
	ctrl.SetAlertFunc(func(c anomaly.Classification, snap models.Snapshot) {
		alerted = append(alerted, c)
		if snap.AirTempC != 5.0 {
			t.Errorf("alert snapshot temp = %v, want 5.0", snap.AirTempC)
		}
	})

	snap := ctrl.Poll(climateRaw(60000, 5.0))
	if snap.AirTempC != 5.0 {
		t.Fatalf("poll snapshot temp = %v", snap.AirTempC)
	}

	cls := ctrl.Evaluate(60000)
	if cls.Level != anomaly.LevelEmergency || cls.Emergency != anomaly.EmergencyLowTemp {
		t.Fatalf("classification = %v", cls)
	}
	if !engine.IsOn(safety.HeaterPrimary) || !engine.IsOn(safety.FanCirculation) {
		t.Fatal("heating response not engaged")
	}
	if engine.IsOn(safety.FanExhaust) {
		t.Fatal("exhaust fan on while heating")
	}
	if len(alerted) != 1 || alerted[0].Emergency != anomaly.EmergencyLowTemp {
		t.Fatalf("alerts = %+v", alerted)
	}
	if got := ctrl.Classification(); got != cls {
		t.Fatalf("stored classification = %v, want %v", got, cls)
	}
}

func TestHighTempEndToEnd(t *testing.T) {
	ctrl, engine := newTestController()
	ctrl.Poll(climateRaw(60000, 40.0))

	cls := ctrl.Evaluate(60000)
	if cls.Emergency != anomaly.EmergencyHighTemp || cls.Level != anomaly.LevelEmergency {
		t.Fatalf("classification = %v", cls)
	}
	if !engine.IsOn(safety.FanExhaust) {
		t.Fatal("exhaust fan not engaged")
	}
	if engine.IsOn(safety.HeaterPrimary) || engine.IsOn(safety.HeaterSecondary) {
		t.Fatal("heaters on during high-temp response")
	}
}

func TestEvaluateBeforeFirstPoll(t *testing.T) {
	ctrl, engine := newTestController()

	// No snapshot yet: no classification, but runtime ceilings still
	// apply so an operator-started pump is bounded regardless.
	res := ctrl.Override(safety.Pump, safety.StateOn, 0)
	if !res.Applied {
		t.Fatalf("override rejected: %+v", res)
	}
	if cls := ctrl.Evaluate(700000); cls.Level != anomaly.LevelNone {
		t.Fatalf("classification without snapshot = %v", cls)
	}
	if engine.IsOn(safety.Pump) {
		t.Fatal("pump not stopped at its runtime ceiling")
	}
}

func TestRapidDropAcrossPolls(t *testing.T) {
	ctrl, _ := newTestController()
	ctrl.Poll(climateRaw(60000, 24.0))
	ctrl.Poll(climateRaw(65000, 21.5))

	cls := ctrl.Evaluate(70000)
	if cls.Level != anomaly.LevelWarning || cls.Warning != anomaly.WarningRapidTempDrop {
		t.Fatalf("classification = %v", cls)
	}
}

func TestOverrideGoesThroughInterlocks(t *testing.T) {
	ctrl, _ := newTestController()
	if res := ctrl.Override(safety.HeaterPrimary, safety.StateOn, 0); !res.Applied {
		t.Fatalf("first override rejected: %+v", res)
	}
	res := ctrl.Override(safety.HeaterPrimary, safety.StateOff, 5000)
	if res.Applied || res.Reason != safety.ReasonCycleTooSoon {
		t.Fatalf("manual override bypassed the cycle gate: %+v", res)
	}
}

func TestResetSensorRoundTrip(t *testing.T) {
	ctrl, _ := newTestController()
	bad := models.RawInputs{Climate: &models.ClimateRaw{CO2PPM: 450, TempC: 200, HumidityPct: 55}}
	for i := 0; i < 6; i++ {
		ctrl.Poll(bad)
	}
	if h := ctrl.Snapshot().Health[models.SensorClimate]; h.Valid {
		t.Fatalf("climate unit not flagged: %+v", h)
	}
	if err := ctrl.ResetSensor(models.SensorClimate); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if h := ctrl.Snapshot().Health[models.SensorClimate]; !h.Valid {
		t.Fatalf("climate unit not recovered: %+v", h)
	}
}

func TestUpdateThresholdsTakesEffect(t *testing.T) {
	ctrl, _ := newTestController()
	ctrl.Poll(climateRaw(60000, 12.0))

	// 12°C is above the default critical floor of 10°C.
	if cls := ctrl.Evaluate(60000); cls.Level != anomaly.LevelWarning || cls.Warning != anomaly.WarningTempTooLow {
		t.Fatalf("before update: %v", cls)
	}

	th := config.DefaultThresholds()
	th.TempCriticalLowC = 14.0
	ctrl.UpdateThresholds(th)

	cls := ctrl.Evaluate(70000)
	if cls.Level != anomaly.LevelEmergency || cls.Emergency != anomaly.EmergencyLowTemp {
		t.Fatalf("after update: %v", cls)
	}
}

func TestStopAllFromController(t *testing.T) {
	ctrl, engine := newTestController()
	ctrl.Override(safety.Light, safety.StateOn, 0)
	ctrl.StopAll(60000)
	if engine.IsOn(safety.Light) {
		t.Fatal("light still on after StopAll")
	}
}
