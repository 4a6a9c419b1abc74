package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds process-level settings sourced from the environment.
// Threshold tables live in a separate YAML file, see thresholds.go.
type Config struct {
	// Identity
	GreenhouseID string

	// MQTT cloud channel
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	MQTTTopicTelemetry string
	MQTTTopicAlerts    string
	MQTTTopicStatus    string
	MQTTTopicCommands  string
	MQTTTopicReadings  string
	MQTTTopicConfig    string

	// HTTP status API
	HTTPAddr string

	// Files
	CalibrationPath string
	ThresholdsPath  string

	// Cadence (milliseconds)
	SensorPollIntervalMs  int64
	AnomalyCheckIntervalMs int64
	TelemetrySyncIntervalMs int64

	// Safety limits (milliseconds)
	MinCycleTimeMs int64
	MaxPumpRunMs   int64

	// Sensor validation
	MaxConsecutiveErrors int

	// ADC front end
	ADCMaxValue int
	ADCSamples  int

	// Hardware relays (disabled = log-only transport)
	HardwareEnabled bool

	// BuzzerPin enables the audible alarm when set (hardware only).
	BuzzerPin string
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GreenhouseID: getEnv("GREENHOUSE_ID", "greenhouse_01"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "greenos-controller"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicTelemetry: getEnv("MQTT_TOPIC_TELEMETRY", "greenhouse/{greenhouse_id}/telemetry"),
		MQTTTopicAlerts:    getEnv("MQTT_TOPIC_ALERTS", "greenhouse/{greenhouse_id}/alerts"),
		MQTTTopicStatus:    getEnv("MQTT_TOPIC_STATUS", "greenhouse/{greenhouse_id}/status"),
		MQTTTopicCommands:  getEnv("MQTT_TOPIC_COMMANDS", "greenhouse/{greenhouse_id}/commands"),
		MQTTTopicReadings:  getEnv("MQTT_TOPIC_READINGS", "greenhouse/{greenhouse_id}/readings"),
		MQTTTopicConfig:    getEnv("MQTT_TOPIC_CONFIG", "greenhouse/{greenhouse_id}/config"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		CalibrationPath: getEnv("CALIBRATION_PATH", "./calibration.bin"),
		ThresholdsPath:  getEnv("THRESHOLDS_PATH", "./thresholds.yaml"),

		SensorPollIntervalMs:    getEnvInt64("SENSOR_POLL_INTERVAL_MS", 5000),
		AnomalyCheckIntervalMs:  getEnvInt64("ANOMALY_CHECK_INTERVAL_MS", 10000),
		TelemetrySyncIntervalMs: getEnvInt64("TELEMETRY_SYNC_INTERVAL_MS", 60000),

		MinCycleTimeMs: getEnvInt64("MIN_CYCLE_TIME_MS", 60000),
		MaxPumpRunMs:   getEnvInt64("MAX_PUMP_RUN_TIME_MS", 600000),

		MaxConsecutiveErrors: getEnvInt("MAX_SENSOR_ERRORS", 5),

		ADCMaxValue: getEnvInt("ADC_MAX_VALUE", 4095),
		ADCSamples:  getEnvInt("ADC_SAMPLES", 10),

		HardwareEnabled: getEnvBool("HARDWARE_ENABLED", false),
		BuzzerPin:       getEnv("BUZZER_PIN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int64, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}
