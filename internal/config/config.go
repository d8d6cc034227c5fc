package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultBackendURL = "http://localhost:8000"

// Config holds the client settings read from the environment.
type Config struct {
	Backend BackendConfig
	Log     LogConfig
	// OutputDir is where downloaded workbooks are written.
	OutputDir string
}

// BackendConfig describes how the job backend is reached and polled.
type BackendConfig struct {
	URL          string
	PollInterval time.Duration
	PreviewLimit int
	HTTPTimeout  time.Duration
}

type LogConfig struct {
	Path  string
	Level slog.Level
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:          getEnv("KECTAP_BACKEND_URL", getEnv("NEXT_PUBLIC_BACKEND_URL", DefaultBackendURL)),
			PollInterval: getEnvAsDuration("KECTAP_POLL_INTERVAL", 1400*time.Millisecond),
			PreviewLimit: getEnvAsInt("KECTAP_PREVIEW_LIMIT", 50),
			HTTPTimeout:  getEnvAsDuration("KECTAP_HTTP_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Path:  getEnv("KECTAP_LOG", filepath.Join(os.TempDir(), "kectap.log")),
			Level: ParseLevel(getEnv("KECTAP_LOG_LEVEL", "info")),
		},
		OutputDir: getEnv("KECTAP_OUTPUT_DIR", "."),
	}
}

// ParseLevel maps debug|info|warn|error to a slog level, info otherwise.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}
