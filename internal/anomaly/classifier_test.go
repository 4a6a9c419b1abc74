package anomaly

import (
	"io"
	"log/slog"
	"testing"

	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/pkg/config"
)

func newTestClassifier(t config.Thresholds) *Classifier {
	return NewClassifier(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// nominal builds a snapshot that classifies as None: mid-optimal
// climate, daytime, all sensors healthy, no discrete lines active.
func nominal() models.Snapshot {
	health := make(map[models.SensorID]models.SensorHealth, len(models.AllSensors))
	for _, id := range models.AllSensors {
		health[id] = models.SensorHealth{Valid: true}
	}
	return models.Snapshot{
		HourUTC:     12,
		AirTempC:    21,
		AirHumidity: 60,
		CO2PPM:      450,
		Health:      health,
	}
}

func TestNominalSnapshotIsNone(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	if got := c.Classify(nominal(), nil); got.Level != LevelNone {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestCriticalLowTemp(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.AirTempC = 5.0
	got := c.Classify(snap, nil)
	if got.Level != LevelEmergency || got.Emergency != EmergencyLowTemp {
		t.Fatalf("5°C: expected low_temp emergency, got %v", got)
	}
}

func TestCriticalTempBoundariesInclusive(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())

	snap := nominal()
	snap.AirTempC = 10.0
	if got := c.Classify(snap, nil); got.Emergency != EmergencyLowTemp || got.Level != LevelEmergency {
		t.Fatalf("10.0°C exactly: expected low_temp, got %v", got)
	}

	snap = nominal()
	snap.AirTempC = 35.0
	if got := c.Classify(snap, nil); got.Emergency != EmergencyHighTemp || got.Level != LevelEmergency {
		t.Fatalf("35.0°C exactly: expected high_temp, got %v", got)
	}
}

func TestCriticalHighTemp(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.AirTempC = 40.0
	got := c.Classify(snap, nil)
	if got.Level != LevelEmergency || got.Emergency != EmergencyHighTemp {
		t.Fatalf("40°C: expected high_temp emergency, got %v", got)
	}
}

func TestLeakPreemptsTemperature(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.AirTempC = 5.0
	snap.LeakDetected = true
	got := c.Classify(snap, nil)
	if got.Emergency != EmergencyWaterLeak {
		t.Fatalf("leak must pre-empt low temp, got %v", got)
	}
}

func TestUPSActiveIsPowerFailure(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.UPSActive = true
	got := c.Classify(snap, nil)
	if got.Emergency != EmergencyPowerFailure || got.Level != LevelEmergency {
		t.Fatalf("expected power_failure, got %v", got)
	}
}

func TestMotionOffHoursIsWarningByDefault(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.HourUTC = 23
	snap.MotionDetected = true
	got := c.Classify(snap, nil)
	if got.Level != LevelWarning || got.Warning != WarningMotionOffHours {
		t.Fatalf("expected motion_off_hours warning, got %v", got)
	}
}

func TestMotionOffHoursEscalation(t *testing.T) {
	th := config.DefaultThresholds()
	th.EscalateMotionBreach = true
	c := newTestClassifier(th)
	snap := nominal()
	snap.HourUTC = 23
	snap.MotionDetected = true
	got := c.Classify(snap, nil)
	if got.Level != LevelEmergency || got.Emergency != EmergencySecurityBreach {
		t.Fatalf("expected security_breach emergency, got %v", got)
	}
}

func TestMotionDuringOperatingHoursIgnored(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.HourUTC = 12
	snap.MotionDetected = true
	if got := c.Classify(snap, nil); got.Level != LevelNone {
		t.Fatalf("daytime motion must not classify, got %v", got)
	}
}

func TestLoudNoise(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.NoiseLevelV = 2.8
	got := c.Classify(snap, nil)
	if got.Warning != WarningLoudNoise || got.Level != LevelWarning {
		t.Fatalf("expected loud_noise, got %v", got)
	}
}

func TestRapidTempDrop(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	prev := nominal()
	prev.AirTempC = 23.5
	snap := nominal()
	snap.AirTempC = 21.0
	got := c.Classify(snap, &prev)
	if got.Warning != WarningRapidTempDrop || got.Level != LevelWarning {
		t.Fatalf("2.5°C drop: expected rapid_temp_drop, got %v", got)
	}

	// A rise of the same magnitude is not a drop.
	prev.AirTempC = 18.5
	if got := c.Classify(snap, &prev); got.Level != LevelNone {
		t.Fatalf("temperature rise flagged as drop: %v", got)
	}
}

func TestFirstCycleSkipsRateCheck(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	if got := c.Classify(nominal(), nil); got.Level != LevelNone {
		t.Fatalf("nil previous must skip the rate check, got %v", got)
	}
}

func TestInvalidSensorIsMalfunctionWarning(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.Health[models.SensorSoil] = models.SensorHealth{Valid: false}
	got := c.Classify(snap, nil)
	if got.Warning != WarningSensorMalfunction || got.Level != LevelWarning {
		t.Fatalf("expected sensor_malfunction, got %v", got)
	}
}

func TestOptimalBandWarnings(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	cases := []struct {
		name     string
		mutate   func(*models.Snapshot)
		expected WarningKind
	}{
		{"temp below optimal", func(s *models.Snapshot) { s.AirTempC = 16 }, WarningTempTooLow},
		{"temp above optimal", func(s *models.Snapshot) { s.AirTempC = 26 }, WarningTempTooHigh},
		{"humidity below optimal", func(s *models.Snapshot) { s.AirHumidity = 30 }, WarningHumidityTooLow},
		{"humidity above optimal", func(s *models.Snapshot) { s.AirHumidity = 90 }, WarningHumidityTooHigh},
	}
	for _, tc := range cases {
		snap := nominal()
		tc.mutate(&snap)
		got := c.Classify(snap, nil)
		if got.Level != LevelWarning || got.Warning != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestEmergencyPreemptsWarnings(t *testing.T) {
	c := newTestClassifier(config.DefaultThresholds())
	snap := nominal()
	snap.AirTempC = 5.0
	snap.NoiseLevelV = 3.0
	snap.AirHumidity = 95
	got := c.Classify(snap, nil)
	if got.Level != LevelEmergency || got.Emergency != EmergencyLowTemp {
		t.Fatalf("emergency must pre-empt warnings, got %v", got)
	}
}

func TestClassificationString(t *testing.T) {
	if s := emergency(EmergencyLowTemp, "x").String(); s != "emergency:low_temp" {
		t.Fatalf("emergency string = %q", s)
	}
	if s := warning(WarningLoudNoise, "x").String(); s != "warning:loud_noise" {
		t.Fatalf("warning string = %q", s)
	}
	if s := None.String(); s != "none" {
		t.Fatalf("none string = %q", s)
	}
}

func TestKindStringsCoverAllKinds(t *testing.T) {
	for _, k := range AllEmergencyKinds {
		if k.String() == "unknown" {
			t.Fatalf("emergency kind %d has no name", int(k))
		}
	}
	for _, k := range AllWarningKinds {
		if k.String() == "unknown" {
			t.Fatalf("warning kind %d has no name", int(k))
		}
	}
	if len(AllEmergencyKinds) != int(numEmergencyKinds) {
		t.Fatalf("emergency kind list out of sync: %d vs %d", len(AllEmergencyKinds), numEmergencyKinds)
	}
	if len(AllWarningKinds) != int(numWarningKinds) {
		t.Fatalf("warning kind list out of sync: %d vs %d", len(AllWarningKinds), numWarningKinds)
	}
}
