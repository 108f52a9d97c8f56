package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CaseLogRepo is the per-case audit trail. Rows follow register/undo so the
// table can be inspected with plain SQL even though the snapshot is the
// source of truth.
type CaseLogRepo struct {
	db *sql.DB
}

func NewCaseLogRepo(db *sql.DB) *CaseLogRepo {
	return &CaseLogRepo{db: db}
}

func (r *CaseLogRepo) Insert(ctx context.Context, e CaseLogEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO case_log (case_id, case_type, level_up, registered_at)
		VALUES (?, ?, ?, ?)
	`, e.CaseID, e.CaseType, boolToInt(e.LevelUp), e.RegisteredAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("case_log insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("case_log insert id: %w", err)
	}
	return id, nil
}

// DeleteLast removes the most recently registered row, if any.
func (r *CaseLogRepo) DeleteLast(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM case_log WHERE id = (SELECT MAX(id) FROM case_log)
	`)
	if err != nil {
		return fmt.Errorf("case_log delete last: %w", err)
	}
	return nil
}

// ListSince returns rows registered at or after the given time, oldest first.
func (r *CaseLogRepo) ListSince(ctx context.Context, since time.Time) ([]CaseLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, case_id, case_type, level_up, registered_at
		FROM case_log
		WHERE registered_at >= ?
		ORDER BY id
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("case_log list: %w", err)
	}
	defer rows.Close()

	var out []CaseLogEntry
	for rows.Next() {
		var e CaseLogEntry
		var levelUp int
		if err := rows.Scan(&e.ID, &e.CaseID, &e.CaseType, &levelUp, &e.RegisteredAt); err != nil {
			return nil, fmt.Errorf("case_log scan: %w", err)
		}
		e.LevelUp = levelUp != 0
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("case_log rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
