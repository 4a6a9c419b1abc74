package sensors

import "math"

// MQ135 gas sensor conversion. The sensor sits behind a 5V supply with
// a resistive divider bringing its output into the 3.3V ADC range.
const (
	mq135SupplyV       = 5.0
	mq135LoadResistor  = 10000.0
	mq135DividerR1     = 10000.0
	mq135DividerR2     = 20000.0
	mq135CleanAirRatio = 3.6

	// DefaultMQ135R0 is the baseline resistance in clean air before
	// calibration.
	DefaultMQ135R0 = 10000.0
)

// mq135 converts calibrated ADC voltages to an air-quality PPM figure.
type mq135 struct {
	r0 float64
}

func newMQ135(r0 float64) *mq135 {
	if r0 <= 0 {
		r0 = DefaultMQ135R0
	}
	return &mq135{r0: r0}
}

// ppm converts a divider-side voltage to PPM. ok is false when the
// electrical reading is outside the usable band and no concentration
// can be derived.
func (m *mq135) ppm(voltage float64) (float64, bool) {
	// Undo the voltage divider to recover the sensor-side voltage.
	sensorV := voltage * (mq135DividerR1 + mq135DividerR2) / mq135DividerR2
	if sensorV <= 0.1 || sensorV >= 4.9 {
		return 0, false
	}
	// Rs = (Vc - Vout) * RL / Vout
	rs := (mq135SupplyV - sensorV) * mq135LoadResistor / sensorV
	ratio := rs / m.r0
	// Datasheet power-law fit. Accuracy depends on R0 calibration.
	return 116.6020682 * math.Pow(ratio, -2.769034857), true
}

// calibrateR0 derives the clean-air baseline from a voltage measured
// after the sensor has stabilized in clean air.
func (m *mq135) calibrateR0(voltage float64) float64 {
	sensorV := voltage * (mq135DividerR1 + mq135DividerR2) / mq135DividerR2
	if sensorV <= 0.1 || sensorV >= 4.9 {
		return m.r0
	}
	rs := (mq135SupplyV - sensorV) * mq135LoadResistor / sensorV
	m.r0 = rs / mq135CleanAirRatio
	return m.r0
}
