// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config holds server configuration.
type Config struct {
	Port     string
	LogLevel string

	// StoreBackend selects the document store: "memory", "sqlite" or
	// "postgres".
	StoreBackend string
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string
	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string

	// RedisURL enables the summary cache when set.
	RedisURL string

	// AssetSchemaPath points at an optional JSON schema validating incoming
	// assets.
	AssetSchemaPath string
	// LifecycleTablePath points at an optional YAML transition table
	// overriding the default publication flow.
	LifecycleTablePath string

	RateLimitRPS   int
	RateLimitBurst int

	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load reads configuration from environment variables, with defaults that
// bring up a self-contained local instance.
func Load() *Config {
	cfg := &Config{
		Port:               envOr("PORT", "8080"),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		StoreBackend:       envOr("STORE_BACKEND", "sqlite"),
		SQLitePath:         envOr("SQLITE_PATH", "data/curator.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AssetSchemaPath:    os.Getenv("ASSET_SCHEMA_PATH"),
		LifecycleTablePath: os.Getenv("LIFECYCLE_TABLE_PATH"),
		RateLimitRPS:       envIntOr("RATE_LIMIT_RPS", 50),
		RateLimitBurst:     envIntOr("RATE_LIMIT_BURST", 100),
		OTLPEndpoint:       envOr("OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:   os.Getenv("TELEMETRY_ENABLED") == "true",
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
