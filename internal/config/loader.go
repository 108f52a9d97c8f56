package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"caseline/internal/indicator"
	"caseline/internal/storage"
)

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBPath == "" {
		path, err := storage.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		cfg.DBPath = path
	}
	if cfg.StatusPath == "" {
		path, err := indicator.DefaultStatusPath()
		if err != nil {
			return nil, fmt.Errorf("resolve status path: %w", err)
		}
		cfg.StatusPath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.RankingPollInterval <= 0 {
		return errors.New("ranking poll interval must be positive")
	}
	if c.LeaderPollInterval <= 0 {
		return errors.New("leader poll interval must be positive")
	}
	if c.DirectoryTTL <= 0 {
		return errors.New("directory TTL must be positive")
	}
	return nil
}
