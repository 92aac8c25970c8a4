package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config is the process-level configuration, loaded from the environment.
// World-scoped monitor settings live in the settings store, not here.
type Config struct {
	RedisURL    string
	WorldID     string
	UserID      string
	Environment string
	LogLevel    slog.Level
}

func Load() *Config {
	return &Config{
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		WorldID:     getEnv("WORLD_ID", "default"),
		UserID:      getEnv("USER_ID", "gamemaster"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
