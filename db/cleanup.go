package db

import (
	"context"
	"fmt"
	"time"
)

// PruneRuns deletes runs older than retentionDays and returns how many were
// removed. A non-positive retention keeps everything.
func (r *Repository) PruneRuns(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	return r.pruneBefore(ctx, time.Now().AddDate(0, 0, -retentionDays))
}

func (r *Repository) pruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	conn, err := r.db.conn()
	if err != nil {
		return 0, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}
