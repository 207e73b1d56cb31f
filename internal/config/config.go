// Package config holds the settings shared by the compositor commands.
// Flags override environment, which overrides defaults.
package config

import (
	"fmt"
	"io"
	"log"

	"github.com/caarlos0/env/v11"
)

// #region config

// Config is the environment-facing configuration of the compositor tools.
type Config struct {
	// DB is the SQLite ledger path.
	DB string `env:"COMPOSITOR_DB" envDefault:"compositor.db"`

	// Catalog is a YAML catalogue path; empty selects the embedded default.
	Catalog string `env:"COMPOSITOR_CATALOG"`

	// LogPrefix is prepended to every log line.
	LogPrefix string `env:"COMPOSITOR_LOG_PREFIX"`

	// Workers bounds how many compositions a sweep runs at once.
	Workers int `env:"COMPOSITOR_WORKERS" envDefault:"4"`

	// SweepSeeds is the default number of seeds in a sweep.
	SweepSeeds int `env:"COMPOSITOR_SWEEP_SEEDS" envDefault:"1000"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DB:         "compositor.db",
		Workers:    4,
		SweepSeeds: 1000,
	}
}

// #endregion config

// #region load

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment and checks it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.SweepSeeds < 1 {
		return fmt.Errorf("sweep seeds must be at least 1, got %d", c.SweepSeeds)
	}
	return nil
}

// Logger returns a logger writing to w with the configured prefix.
func (c Config) Logger(w io.Writer) *log.Logger {
	return log.New(w, c.LogPrefix, log.LstdFlags)
}

// #endregion load
