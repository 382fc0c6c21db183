// Package config provides environment configuration for the chat server.
package config

import (
	"os"
	"strconv"
	"time"
)

// ProviderMode selects how /api/* is served.
const (
	// ProviderModeProxy reverse-proxies /api to the upstream origin.
	ProviderModeProxy = "proxy"
	// ProviderModeLocal serves the embedded provider backend under /api.
	ProviderModeLocal = "local"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Static assets
	StaticDir string

	// Provider backend: proxy target and mode
	UpstreamAPI  string
	ProviderMode string

	// JWT settings (local provider mode)
	JWTSecret string

	// Rate limiting (local provider mode)
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS mirror (optional)
	NATSURL   string
	NATSToken string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "3000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Static assets
		StaticDir: getEnv("STATIC_DIR", "dist"),

		// Provider backend
		UpstreamAPI:  getEnv("BYOM_API", "https://byom-api.onrender.com"),
		ProviderMode: getEnv("PROVIDER_MODE", ProviderModeProxy),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS
		NATSURL:   getEnv("NATS_URL", ""),
		NATSToken: getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
