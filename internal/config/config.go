// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "CHATSESSION"

// Config holds all application configuration.
type Config struct {
	// DSN is a SQLite file path, or ":memory:" for a throwaway session.
	DSN string `envconfig:"DB" default:"chatsession.db"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"true"`

	RecentLimit int `envconfig:"RECENT_LIMIT" default:"5"`
}

// Load loads configuration from CHATSESSION_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.RecentLimit < 1 {
		return nil, fmt.Errorf("invalid %s_RECENT_LIMIT value %d", Prefix, cfg.RecentLimit)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		DSN:         "chatsession.db",
		LogLevel:    "info",
		LogPretty:   true,
		RecentLimit: 5,
	}
}
