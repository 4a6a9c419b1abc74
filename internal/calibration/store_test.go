package calibration

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "calibration.bin"), quietLogger())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	want := Record{
		Offset:           0.0125,
		Scale:            1.0342,
		ReferenceVoltage: 3.3,
		TempCoefficient:  0.0002,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := store.Load()
	if got.Offset != want.Offset || got.Scale != want.Scale ||
		got.ReferenceVoltage != want.ReferenceVoltage ||
		got.TempCoefficient != want.TempCoefficient {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
	if !got.Valid() {
		t.Fatal("loaded record failed its own checksum")
	}

	// Saving what was loaded must reproduce identical bytes.
	if err := store.Save(got); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	again := store.Load()
	if again != got {
		t.Fatalf("save(load()) not idempotent: %+v vs %+v", again, got)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := testStore(t)
	got := store.Load()
	if got != DefaultRecord() {
		t.Fatalf("expected default record, got %+v", got)
	}
}

func TestLoadCorruptedBlobReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.bin")
	store := NewStore(path, quietLogger())

	rec := Record{Offset: 0.02, Scale: 1.1, ReferenceVoltage: 3.3, TempCoefficient: 0.0002}
	if err := store.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}

	// Flipping any payload byte must trip the checksum.
	for i := 0; i < len(blob)-4; i++ {
		corrupted := make([]byte, len(blob))
		copy(corrupted, blob)
		corrupted[i] ^= 0xFF
		if err := os.WriteFile(path, corrupted, 0o644); err != nil {
			t.Fatalf("write corrupted blob: %v", err)
		}
		if got := store.Load(); got != DefaultRecord() {
			t.Fatalf("byte %d: corrupted blob accepted: %+v", i, got)
		}
	}
}

func TestLoadTruncatedBlobReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.bin")
	store := NewStore(path, quietLogger())
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := store.Load(); got != DefaultRecord() {
		t.Fatalf("expected defaults for truncated blob, got %+v", got)
	}
}

func TestConverterVoltage(t *testing.T) {
	rec := Record{Offset: 0.1, Scale: 2.0, ReferenceVoltage: 3.3}
	conv := NewConverter(rec, 4095)

	samples := make([]uint16, 10)
	for i := range samples {
		samples[i] = 2048
	}
	got := conv.VoltageFromSamples(samples)
	want := ((2048.0/4095.0)*3.3 - 0.1) * 2.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("voltage = %v, want %v", got, want)
	}
}

func TestAverageEmptySamples(t *testing.T) {
	if got := Average(nil); got != 0 {
		t.Fatalf("average of no samples = %v, want 0", got)
	}
}

func TestTwoPointCalibration(t *testing.T) {
	rec := DefaultRecord()

	zero := []uint16{120, 124, 128, 124}
	rec = CalibrateZero(rec, zero, 4095)
	wantOffset := (124.0 / 4095.0) * rec.ReferenceVoltage
	if math.Abs(rec.Offset-wantOffset) > 1e-9 {
		t.Fatalf("offset = %v, want %v", rec.Offset, wantOffset)
	}

	ref := []uint16{3100, 3104, 3100, 3104}
	rec = CalibrateScale(rec, ref, 2.5, 4095)

	// A conversion at the reference point must now land on the target.
	conv := NewConverter(rec, 4095)
	got := conv.VoltageFromSamples(ref)
	if math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("calibrated reading at reference = %v, want 2.5", got)
	}
}
