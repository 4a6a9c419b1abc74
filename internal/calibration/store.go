package calibration

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"
	"math"
	"os"
	"path/filepath"
)

// Record holds the analog-front-end calibration for the ADC channels.
// It is persisted as a fixed-size little-endian blob with a trailing
// CRC-32 over all preceding bytes.
type Record struct {
	Offset           float64 `json:"offset"`
	Scale            float64 `json:"scale"`
	ReferenceVoltage float64 `json:"reference_voltage"`
	TempCoefficient  float64 `json:"temp_coefficient"`
	Checksum         uint32  `json:"checksum"`
}

const (
	// recordSize is four float64 fields plus the uint32 checksum.
	recordSize = 4*8 + 4

	// DefaultReferenceVoltage is the nominal ADC reference.
	DefaultReferenceVoltage = 3.3

	// DefaultTempCoefficient is a typical ADC drift figure (0.02%/°C).
	DefaultTempCoefficient = 0.0002
)

// DefaultRecord is the documented fallback used whenever the persisted
// record is missing or fails its checksum.
func DefaultRecord() Record {
	return Record{
		Offset:           0,
		Scale:            1,
		ReferenceVoltage: DefaultReferenceVoltage,
		TempCoefficient:  DefaultTempCoefficient,
	}
}

// payload serializes the checksummed fields in persistence order.
func (r Record) payload() []byte {
	buf := new(bytes.Buffer)
	for _, f := range []float64{r.Offset, r.Scale, r.ReferenceVoltage, r.TempCoefficient} {
		binary.Write(buf, binary.LittleEndian, math.Float64bits(f))
	}
	return buf.Bytes()
}

// checksum computes CRC-32 (poly 0xEDB88320, reflected, final inversion)
// over every field except the checksum itself. hash/crc32 with the IEEE
// table implements exactly that polynomial and bit order.
func (r Record) checksum() uint32 {
	return crc32.ChecksumIEEE(r.payload())
}

// Valid reports whether the stored checksum matches the fields.
func (r Record) Valid() bool {
	return r.Checksum == r.checksum()
}

// Marshal encodes the record with a freshly computed checksum.
func (r Record) Marshal() []byte {
	r.Checksum = r.checksum()
	out := make([]byte, 0, recordSize)
	out = append(out, r.payload()...)
	out = binary.LittleEndian.AppendUint32(out, r.Checksum)
	return out
}

// Unmarshal decodes a persisted blob. It does not verify the checksum;
// callers check Valid separately so corruption can be reported.
func Unmarshal(data []byte) (Record, error) {
	if len(data) != recordSize {
		return Record{}, fmt.Errorf("calibration blob is %d bytes, want %d", len(data), recordSize)
	}
	var r Record
	r.Offset = math.Float64frombits(binary.LittleEndian.Uint64(data[0:8]))
	r.Scale = math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	r.ReferenceVoltage = math.Float64frombits(binary.LittleEndian.Uint64(data[16:24]))
	r.TempCoefficient = math.Float64frombits(binary.LittleEndian.Uint64(data[24:32]))
	r.Checksum = binary.LittleEndian.Uint32(data[32:36])
	return r, nil
}

// Store loads and saves the calibration record at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store persisting to path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger.With("component", "calibration")}
}

// Load reads the persisted record. Any failure (missing file, short
// blob, checksum mismatch) falls back to the default record; load never
// surfaces an error to the control loop.
func (s *Store) Load() Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("calibration read failed, using defaults", "path", s.path, "error", err)
		return DefaultRecord()
	}
	rec, err := Unmarshal(data)
	if err != nil {
		s.logger.Warn("calibration blob malformed, using defaults", "path", s.path, "error", err)
		return DefaultRecord()
	}
	if !rec.Valid() {
		s.logger.Warn("calibration checksum mismatch, using defaults",
			"path", s.path, "stored", rec.Checksum)
		return DefaultRecord()
	}
	return rec
}

// Save persists the record atomically with a fresh checksum.
func (s *Store) Save(rec Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".calibration-*")
	if err != nil {
		return fmt.Errorf("create temp calibration file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(rec.Marshal()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write calibration record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close calibration record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace calibration record: %w", err)
	}
	s.logger.Info("calibration record saved",
		"offset", rec.Offset, "scale", rec.Scale, "vref", rec.ReferenceVoltage)
	return nil
}
