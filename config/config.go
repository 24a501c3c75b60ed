// Package config provides configuration for the visualizer.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the visualizer configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	RunsRoot    string
	DatabaseURL string

	// Delivery
	QueueSize    int
	ReplayPace   time.Duration
	EdgeDecay    time.Duration
	StepDelay    time.Duration
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:     getEnvInt("HTTP_PORT", 8765),
		RunsRoot:     getEnv("RUNS_ROOT", "demos"),
		DatabaseURL:  getEnv("DATABASE_URL", "file:agentviz.db?cache=shared&mode=rwc"),
		QueueSize:    getEnvInt("SUBSCRIBER_QUEUE_SIZE", 256),
		ReplayPace:   time.Duration(getEnvInt("REPLAY_PACE_MS", 400)) * time.Millisecond,
		EdgeDecay:    time.Duration(getEnvInt("EDGE_DECAY_MS", 3000)) * time.Millisecond,
		StepDelay:    time.Duration(getEnvInt("STEP_DELAY_MS", 700)) * time.Millisecond,
		PingInterval: time.Duration(getEnvInt("PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
