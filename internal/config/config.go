// Package config provides centralized configuration management for the
// platform. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// BatchSize is the number of rows to insert per batch (default: 500)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"500"`

	// Timeout is the maximum duration for a single import run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
