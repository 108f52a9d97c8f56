package storage

import "time"

// Snapshot keys. Each key holds one JSON blob; the version suffix tracks the
// persisted layout, not the schema_migrations version.
const (
	KeyAppState       = "app_state_v2"
	KeyDirectoryCache = "directory_cache_v1"
)

type CaseLogEntry struct {
	ID           int64
	CaseID       string
	CaseType     string
	LevelUp      bool
	RegisteredAt time.Time
}
