package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one versioned schema step. Versions are applied in order and
// recorded in schema_migrations, so a DB carries an auditable trail of the
// schema it went through.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS snapshots (
				key TEXT PRIMARY KEY,
				blob TEXT NOT NULL,
				updated_at DATETIME NOT NULL
			);`,
		},
	},
	{
		version: 2,
		stmts: []string{
			// Mirrors today's in-state history for inspection and tooling;
			// the JSON snapshot stays the source of truth.
			`CREATE TABLE IF NOT EXISTS case_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				case_id TEXT NOT NULL,
				case_type TEXT NOT NULL,
				level_up INTEGER NOT NULL DEFAULT 0,
				registered_at DATETIME NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_case_log_registered_at ON case_log(registered_at);`,
		},
	},
}

// Migrate applies all schema migrations newer than the recorded version.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL
	);`); err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate begin v%d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migrate v%d: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate record v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate commit v%d: %w", m.version, err)
		}
	}
	return nil
}
