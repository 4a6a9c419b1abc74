package anomaly

// Level is the severity tier of a classification.
type Level int

const (
	LevelNone Level = iota
	LevelWarning
	LevelEmergency
)

// EmergencyKind enumerates conditions that demand an immediate,
// deterministic actuator response.
type EmergencyKind int

const (
	EmergencyLowTemp EmergencyKind = iota
	EmergencyHighTemp
	EmergencySecurityBreach
	EmergencyWaterLeak
	EmergencyPowerFailure

	numEmergencyKinds // keep last
)

// AllEmergencyKinds lists every emergency, in dispatch-table order.
var AllEmergencyKinds = []EmergencyKind{
	EmergencyLowTemp,
	EmergencyHighTemp,
	EmergencySecurityBreach,
	EmergencyWaterLeak,
	EmergencyPowerFailure,
}

func (k EmergencyKind) String() string {
	switch k {
	case EmergencyLowTemp:
		return "low_temp"
	case EmergencyHighTemp:
		return "high_temp"
	case EmergencySecurityBreach:
		return "security_breach"
	case EmergencyWaterLeak:
		return "water_leak"
	case EmergencyPowerFailure:
		return "power_failure"
	}
	return "unknown"
}

// WarningKind enumerates softer anomalies. Some carry an automated
// response, others are report-only.
type WarningKind int

const (
	WarningTempTooLow WarningKind = iota
	WarningTempTooHigh
	WarningHumidityTooLow
	WarningHumidityTooHigh
	WarningMotionOffHours
	WarningLoudNoise
	WarningRapidTempDrop
	WarningSensorMalfunction

	numWarningKinds // keep last
)

// AllWarningKinds lists every warning kind.
var AllWarningKinds = []WarningKind{
	WarningTempTooLow,
	WarningTempTooHigh,
	WarningHumidityTooLow,
	WarningHumidityTooHigh,
	WarningMotionOffHours,
	WarningLoudNoise,
	WarningRapidTempDrop,
	WarningSensorMalfunction,
}

func (k WarningKind) String() string {
	switch k {
	case WarningTempTooLow:
		return "temp_too_low"
	case WarningTempTooHigh:
		return "temp_too_high"
	case WarningHumidityTooLow:
		return "humidity_too_low"
	case WarningHumidityTooHigh:
		return "humidity_too_high"
	case WarningMotionOffHours:
		return "motion_off_hours"
	case WarningLoudNoise:
		return "loud_noise"
	case WarningRapidTempDrop:
		return "rapid_temp_drop"
	case WarningSensorMalfunction:
		return "sensor_malfunction"
	}
	return "unknown"
}

// Classification is the tagged result of one evaluation cycle: either
// an emergency, a warning, or nothing. The Emergency field is only
// meaningful when Level is LevelEmergency, likewise Warning.
type Classification struct {
	Level     Level
	Emergency EmergencyKind
	Warning   WarningKind
	Detail    string
}

// None is the empty classification.
var None = Classification{Level: LevelNone}

func emergency(kind EmergencyKind, detail string) Classification {
	return Classification{Level: LevelEmergency, Emergency: kind, Detail: detail}
}

func warning(kind WarningKind, detail string) Classification {
	return Classification{Level: LevelWarning, Warning: kind, Detail: detail}
}

// String renders the classification for logs and alert payloads.
func (c Classification) String() string {
	switch c.Level {
	case LevelEmergency:
		return "emergency:" + c.Emergency.String()
	case LevelWarning:
		return "warning:" + c.Warning.String()
	}
	return "none"
}
