// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmynk/settleup/internal/ledger"
)

// Config holds the server settings.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"./data/settleup.db"`

	// JWTSecret signs session tokens. It must be at least 32 bytes.
	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// OptimizeMode is the plan mode used when a request does not name one.
	OptimizeMode string `env:"OPTIMIZE_MODE" envDefault:"advanced"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if _, err := ledger.ParseMode(cfg.OptimizeMode); err != nil {
		return Config{}, fmt.Errorf("OPTIMIZE_MODE: %w", err)
	}
	return cfg, nil
}

// Mode returns the configured default optimization mode.
func (c Config) Mode() ledger.Mode {
	mode, err := ledger.ParseMode(c.OptimizeMode)
	if err != nil {
		return ledger.ModeAdvanced
	}
	return mode
}

// Level maps LogLevel onto a slog level. Unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
