package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadThresholdsMissingFileUsesDefaults(t *testing.T) {
	got, err := LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if got != DefaultThresholds() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadThresholdsOverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	doc := []byte(`
temp_critical_low_c: 8.0
escalate_motion_breach: true
plausibility:
  co2_ppm:
    min: 350
    max: 4000
operating_hours:
  start_hour: 6
  end_hour: 22
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TempCriticalLowC != 8.0 {
		t.Fatalf("override not applied: %v", got.TempCriticalLowC)
	}
	if !got.EscalateMotionBreach {
		t.Fatal("escalation flag not applied")
	}
	if got.TempCriticalHighC != 35.0 {
		t.Fatalf("untouched field lost its default: %v", got.TempCriticalHighC)
	}
	if got.Plausibility.CO2PPM != (Range{Min: 350, Max: 4000}) {
		t.Fatalf("nested override not applied: %+v", got.Plausibility.CO2PPM)
	}
	if got.OperatingHours != (OperatingHours{StartHour: 6, EndHour: 22}) {
		t.Fatalf("operating hours not applied: %+v", got.OperatingHours)
	}
}

func TestLoadThresholdsMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte("temp_critical_low_c: [not, a, number]"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadThresholds(path); err == nil {
		t.Fatal("malformed file must error")
	}
}

func TestOffHours(t *testing.T) {
	o := OperatingHours{StartHour: 8, EndHour: 20}
	cases := []struct {
		hour int
		want bool
	}{
		{0, true}, {7, true}, {8, false}, {12, false}, {19, false}, {20, true}, {23, true},
	}
	for _, tc := range cases {
		if got := o.OffHours(tc.hour); got != tc.want {
			t.Fatalf("OffHours(%d) = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 10, Max: 35}
	if !r.Contains(10) || !r.Contains(35) || !r.Contains(20) {
		t.Fatal("inclusive bounds broken")
	}
	if r.Contains(9.99) || r.Contains(35.01) {
		t.Fatal("out-of-range value accepted")
	}
}
