package config

import (
	"os"
	"time"
)

const (
	ServiceName    = "inventory-core"
	ServiceVersion = "0.1.0"
)

// Config is read from the environment. MySQL and Redis are optional: with an
// empty DSN the server runs on the embedded in-memory store, and without a
// Redis address caching and idempotency checks are disabled.
type Config struct {
	HTTPAddr     string
	MySQLDSN     string
	RedisAddr    string
	OTLPEndpoint string

	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		MySQLDSN:        os.Getenv("MYSQL_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		OTLPEndpoint:    os.Getenv("OTEL_ENDPOINT"),
		ShutdownTimeout: 5 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
