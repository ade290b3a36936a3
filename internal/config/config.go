// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the service consumes. It is parsed once at
// startup and threaded explicitly into constructors; nothing deeper in
// the call graph reads the environment.
type Config struct {
	// Addr is the address the HTTP server listens on.
	Addr string `env:"ADDR" envDefault:":8080"`
	// DatabaseURL is the Postgres DSN for users and sessions.
	DatabaseURL string `env:"DATABASE_URL"`
	// GitHubClientID is the OAuth client id for the device flow. Device
	// login is disabled when empty. No client secret is needed for the
	// public-client variant of the flow.
	GitHubClientID string `env:"GITHUB_CLIENT_ID"`
	// SessionTTL is the fixed lifetime of a session record.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	// DeviceCodeTTL bounds both the in-memory device-code registry and
	// the caller-side polling loop.
	DeviceCodeTTL time.Duration `env:"DEVICE_CODE_TTL" envDefault:"15m"`
	// CleanupInterval is the period of the expired-session sweep.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	// RateLimit is the request ceiling per identity token per window.
	RateLimit int `env:"RATE_LIMIT" envDefault:"100"`
	// RateWindow is the length of the rate-limit window.
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"60s"`
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.SessionTTL <= 0 || cfg.DeviceCodeTTL <= 0 || cfg.CleanupInterval <= 0 {
		return nil, errors.New("session, device-code, and cleanup durations must be positive")
	}
	if cfg.RateLimit <= 0 || cfg.RateWindow <= 0 {
		return nil, errors.New("rate limit and window must be positive")
	}
	return &cfg, nil
}
