package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// RunStatus is the outcome of a generation run.
type RunStatus string

const (
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// timeLayout is fixed-width so created_at compares correctly as text.
const timeLayout = "2006-01-02T15:04:05Z"

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one row of the run history.
type RunRecord struct {
	ID           int64
	RunID        string
	Variant      string
	Prompt       string
	Width        int
	Height       int
	Steps        int
	Guidance     float64
	Seed         *uint64
	LoRA         string
	InitImage    string
	OutputPath   string
	Status       RunStatus
	ErrorMessage string
	Duration     time.Duration
	CreatedAt    time.Time
}

// Repository provides run history persistence.
type Repository struct {
	db *Database
}

// NewRepository creates a Repository backed by database.
func NewRepository(database *Database) *Repository {
	return &Repository{db: database}
}

// InsertRun stores a run record and returns its row ID.
// A zero CreatedAt is set to the current time.
func (r *Repository) InsertRun(ctx context.Context, rec RunRecord) (int64, error) {
	conn, err := r.db.conn()
	if err != nil {
		return 0, err
	}
	if rec.RunID == "" {
		return 0, fmt.Errorf("run ID is required")
	}
	if rec.Status == "" {
		return 0, fmt.Errorf("run status is required")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var seed any
	if rec.Seed != nil {
		seed = strconv.FormatUint(*rec.Seed, 10)
	}

	query := `
		INSERT INTO runs (
			run_id, variant, prompt, width, height, steps, guidance, seed,
			lora, init_image, output_path, status, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := conn.ExecContext(ctx, query,
		rec.RunID,
		rec.Variant,
		rec.Prompt,
		rec.Width,
		rec.Height,
		rec.Steps,
		rec.Guidance,
		seed,
		nullString(rec.LoRA),
		nullString(rec.InitImage),
		nullString(rec.OutputPath),
		string(rec.Status),
		nullString(rec.ErrorMessage),
		rec.Duration.Milliseconds(),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

const selectRunColumns = `
	SELECT id, run_id, variant, prompt, width, height, steps, guidance, seed,
		lora, init_image, output_path, status, error_message, duration_ms, created_at
	FROM runs
`

// RecentRuns returns up to limit runs, newest first.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := conn.QueryContext(ctx, selectRunColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

// GetRun returns the run with the given run ID.
func (r *Repository) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return RunRecord{}, err
	}

	row := conn.QueryRowContext(ctx, selectRunColumns+` WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return rec, err
}

// CountRuns returns the number of stored runs with the given status.
// An empty status counts all runs.
func (r *Repository) CountRuns(ctx context.Context, status RunStatus) (int, error) {
	conn, err := r.db.conn()
	if err != nil {
		return 0, err
	}

	var count int
	if status == "" {
		err = conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	} else {
		err = conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE status = ?`, string(status)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec                                   RunRecord
		status, createdAt                     string
		seed, lora, initImage, output, errMsg sql.NullString
		durationMS                            int64
	)
	err := row.Scan(
		&rec.ID, &rec.RunID, &rec.Variant, &rec.Prompt,
		&rec.Width, &rec.Height, &rec.Steps, &rec.Guidance, &seed,
		&lora, &initImage, &output, &status, &errMsg, &durationMS, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	if seed.Valid {
		v, err := strconv.ParseUint(seed.String, 10, 64)
		if err != nil {
			return RunRecord{}, fmt.Errorf("invalid seed %q for run %s: %w", seed.String, rec.RunID, err)
		}
		rec.Seed = &v
	}
	rec.LoRA = lora.String
	rec.InitImage = initImage.String
	rec.OutputPath = output.String
	rec.ErrorMessage = errMsg.String
	rec.Status = RunStatus(status)
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("invalid created_at %q for run %s: %w", createdAt, rec.RunID, err)
	}
	return rec, nil
}

// nullString maps empty strings to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
