// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
)

// DefaultEnvFile is read when no explicit env file is given.
const DefaultEnvFile = ".env"

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all settings. Treat it as read-only after Load.
type Config struct {
	// Upstream provider
	APIKey      string        `env:"BRAVE_API_KEY"`
	Endpoint    string        `env:"BRAVE_API_ENDPOINT" envDefault:"https://api.search.brave.com/res/v1/web/search"`
	HTTPTimeout time.Duration `env:"BRAVE_HTTP_TIMEOUT" envDefault:"30s"`

	// Rate limiting, off unless enabled
	RateLimitEnabled   bool          `env:"BRAVE_RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitPerSecond int           `env:"BRAVE_RATE_LIMIT_PER_SECOND" envDefault:"1"`
	RateLimitPerMonth  int           `env:"BRAVE_RATE_LIMIT_PER_MONTH" envDefault:"15000"`
	RateLimitMaxWait   time.Duration `env:"BRAVE_RATE_LIMIT_MAX_WAIT" envDefault:"5s"`

	// Server
	QueueSize   int    `env:"SAAROS_QUEUE_SIZE" envDefault:"64"`
	LogLevel    string `env:"SAAROS_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"SAAROS_LOG_FORMAT" envDefault:"text"`
	MetricsAddr string `env:"SAAROS_METRICS_ADDR"`
}

// LoadEnvFile copies variables from path into the process environment.
// Variables that are already set win. An empty path reads DefaultEnvFile
// and ignores its absence.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("load env file %s: %w", path, err)
	}

	return nil
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.ErrMissingCredential
	}

	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("BRAVE_API_ENDPOINT must not be empty")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("BRAVE_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}

	if c.RateLimitEnabled {
		if c.RateLimitPerSecond < 1 {
			return fmt.Errorf("BRAVE_RATE_LIMIT_PER_SECOND must be at least 1, got %d", c.RateLimitPerSecond)
		}

		if c.RateLimitPerMonth < 1 {
			return fmt.Errorf("BRAVE_RATE_LIMIT_PER_MONTH must be at least 1, got %d", c.RateLimitPerMonth)
		}

		if c.RateLimitMaxWait < 0 {
			return fmt.Errorf("BRAVE_RATE_LIMIT_MAX_WAIT must not be negative, got %s", c.RateLimitMaxWait)
		}
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("SAAROS_QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("SAAROS_LOG_FORMAT must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}

	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("SAAROS_LOG_LEVEL: %w", err)
	}

	return level, nil
}
