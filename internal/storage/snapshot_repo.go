package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SnapshotRepo stores opaque JSON blobs under stable keys. Callers own the
// encoding; unknown keys simply do not exist yet.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Get returns the blob stored under key, or nil if none has been written.
func (r *SnapshotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	row := r.db.QueryRowContext(ctx, `SELECT blob FROM snapshots WHERE key = ?`, key)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot get %q: %w", key, err)
	}
	return blob, nil
}

// Put replaces the blob stored under key.
func (r *SnapshotRepo) Put(ctx context.Context, key string, blob []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
	`, key, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("snapshot put %q: %w", key, err)
	}
	return nil
}
