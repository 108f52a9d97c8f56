// Package config holds all application configuration loaded from
// environment variables (plus an optional .env file for development).
package config

import "time"

type Config struct {
	// Storage
	DBPath string `env:"CASELINE_DB_PATH"`

	// Backend. Empty means offline: local tracking works, login/ranking
	// commands report the backend as not configured.
	BackendURL string `env:"CASELINE_BACKEND_URL"`

	// Presentation. An empty theme keeps whatever the persisted state has;
	// a set one is applied at startup.
	StatusPath string `env:"CASELINE_STATUS_PATH"`
	Theme      string `env:"CASELINE_THEME"`

	// Polling
	RankingPollInterval time.Duration `env:"CASELINE_RANKING_POLL" envDefault:"5s"`
	LeaderPollInterval  time.Duration `env:"CASELINE_LEADER_POLL" envDefault:"10s"`

	// Directory cache
	DirectoryTTL time.Duration `env:"CASELINE_DIRECTORY_TTL" envDefault:"24h"`

	// Logging
	Debug bool `env:"CASELINE_DEBUG" envDefault:"false"`
}
