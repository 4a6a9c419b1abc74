package calibration

// Converter turns averaged raw ADC counts into calibrated voltages.
// It is a pure numeric transform with no failure modes.
type Converter struct {
	rec    Record
	maxRaw float64
}

// NewConverter builds a converter for an ADC with the given full-scale
// count (4095 for a 12-bit converter).
func NewConverter(rec Record, maxRaw int) *Converter {
	return &Converter{rec: rec, maxRaw: float64(maxRaw)}
}

// Average reduces a sample burst to a single raw value. Multi-sample
// averaging suppresses single-sample noise.
func Average(samples []uint16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum uint64
	for _, s := range samples {
		sum += uint64(s)
	}
	return float64(sum) / float64(len(samples))
}

// Voltage converts an averaged raw count to a calibrated voltage.
func (c *Converter) Voltage(rawAvg float64) float64 {
	v := (rawAvg / c.maxRaw) * c.rec.ReferenceVoltage
	return (v - c.rec.Offset) * c.rec.Scale
}

// VoltageFromSamples averages a burst and converts it in one step.
func (c *Converter) VoltageFromSamples(samples []uint16) float64 {
	return c.Voltage(Average(samples))
}

// CalibrateZero derives the offset from a sample burst captured with
// the ADC input grounded. Returns a copy of rec with the new offset.
func CalibrateZero(rec Record, zeroSamples []uint16, maxRaw int) Record {
	zeroRaw := Average(zeroSamples)
	rec.Offset = (zeroRaw / float64(maxRaw)) * rec.ReferenceVoltage
	return rec
}

// CalibrateScale derives the scale factor from a sample burst captured
// at a known reference voltage. Must run after CalibrateZero so the
// offset is already in place.
func CalibrateScale(rec Record, refSamples []uint16, targetVoltage float64, maxRaw int) Record {
	refRaw := Average(refSamples)
	measured := (refRaw / float64(maxRaw)) * rec.ReferenceVoltage
	rec.Scale = targetVoltage / (measured - rec.Offset)
	return rec
}
