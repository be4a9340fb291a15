package config

import (
	"os"
	"strconv"
	"time"

	"storefront/internal/logger"
)

type Config struct {
	AppPort         string
	ShutdownTimeout time.Duration

	BackendBaseURL string
	BackendTimeout time.Duration

	// StorageBackend selects durable storage: "redis", "postgres" or "memory".
	StorageBackend string

	RedisAddr     string
	RedisPassword string

	DatabaseDSN string

	SessionTTL   time.Duration
	LoginPath    string
	CookieSecure bool
}

func Load() Config {

	cfg := Config{

		AppPort:         getEnvOrDefault("APP_PORT", "8080"),
		ShutdownTimeout: getDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),

		BackendBaseURL: getEnvOrDefault("BACKEND_BASE_URL", "http://localhost:8081/api"),
		BackendTimeout: getDurationOrDefault("BACKEND_TIMEOUT", 10*time.Second),

		StorageBackend: getEnvOrDefault("STORAGE_BACKEND", "redis"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		SessionTTL:   getDurationOrDefault("SESSION_TTL", 7*24*time.Hour),
		LoginPath:    getEnvOrDefault("LOGIN_PATH", "/login"),
		CookieSecure: getBoolOrDefault("COOKIE_SECURE", true),
	}

	return cfg

}

func getEnvOrDefault(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getDurationOrDefault(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration in environment, using default", map[string]any{
			"key":     key,
			"value":   val,
			"default": def.String(),
		})
		return def
	}
	return d
}

func getBoolOrDefault(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		logger.Warn("invalid bool in environment, using default", map[string]any{
			"key":   key,
			"value": val,
		})
		return def
	}
	return b
}
