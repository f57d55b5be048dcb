// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"greenhouse_forecast/internal/forecast"
)

type Config struct {
	// HTTP
	Addr        string
	FrontendDir string

	// Model artifacts
	ModelPath      string
	NormalizerPath string
	ReferenceCSV   string

	// Forecast engine
	DefaultSteps   int
	MaxSteps       int
	FeedbackSource string
	SmoothFeedback bool
	AllowPadding   bool
	ErrorMetrics   bool

	// MQTT actuator, disabled when MQTTBroker is empty
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicAction string
	MQTTTopicStatus string
}

// Load reads .env if present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	defaults := forecast.DefaultConfig()

	return &Config{
		Addr:        getEnv("ADDR", ":8080"),
		FrontendDir: getEnv("FRONTEND_DIR", "frontend/build"),

		ModelPath:      getEnv("MODEL_PATH", ""),
		NormalizerPath: getEnv("NORMALIZER_PATH", ""),
		ReferenceCSV:   getEnv("REFERENCE_CSV", ""),

		DefaultSteps:   getEnvInt("FORECAST_DEFAULT_STEPS", defaults.DefaultSteps),
		MaxSteps:       getEnvInt("FORECAST_MAX_STEPS", defaults.MaxSteps),
		FeedbackSource: getEnv("FORECAST_FEEDBACK", string(defaults.Feedback)),
		SmoothFeedback: getEnvBool("FORECAST_SMOOTH_FEEDBACK", defaults.SmoothFeedback),
		AllowPadding:   getEnvBool("FORECAST_ALLOW_PADDING", defaults.AllowPadding),
		ErrorMetrics:   getEnvBool("FORECAST_ERROR_METRICS", defaults.ErrorMetrics),

		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "greenhouse-forecast"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicAction: getEnv("MQTT_TOPIC_ACTION", "greenhouse/actuator/command"),
		MQTTTopicStatus: getEnv("MQTT_TOPIC_STATUS", "greenhouse/forecast/status"),
	}
}

// Forecast converts the engine settings, validating the feedback source.
func (c *Config) Forecast() (forecast.Config, error) {
	fs, err := forecast.ParseFeedbackSource(c.FeedbackSource)
	if err != nil {
		return forecast.Config{}, err
	}
	return forecast.Config{
		DefaultSteps:   c.DefaultSteps,
		MaxSteps:       c.MaxSteps,
		Feedback:       fs,
		SmoothFeedback: c.SmoothFeedback,
		AllowPadding:   c.AllowPadding,
		ErrorMetrics:   c.ErrorMetrics,
	}, nil
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
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
