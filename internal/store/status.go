package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one file run.
type Status string

const (
	StatusProcessing     Status = "processing"
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusFailure        Status = "failure"
)

// Run is one processing attempt of one source file.
type Run struct {
	ID         uuid.UUID
	FileName   string
	ObjectKey  string
	SizeBytes  int64
	Status     Status
	Detail     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

var ErrRunNotFound = errors.New("run not found")

// StatusStore tracks file runs in the file_processing_status table.
type StatusStore struct {
	db *sql.DB
}

func NewStatusStore(db *sql.DB) *StatusStore {
	return &StatusStore{db: db}
}

// Init creates the tracking table when it does not exist yet.
func (s *StatusStore) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS file_processing_status (
			id uuid PRIMARY KEY,
			file_name text NOT NULL,
			object_key text NOT NULL DEFAULT '',
			size_bytes bigint NOT NULL DEFAULT 0,
			status text NOT NULL,
			detail text NOT NULL DEFAULT '',
			started_at timestamptz NOT NULL,
			finished_at timestamptz
		)
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating file_processing_status: %w", err)
	}

	return nil
}

// CreateRun registers a new run in the processing state and returns it.
func (s *StatusStore) CreateRun(ctx context.Context, fileName, objectKey string, sizeBytes int64) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		FileName:  fileName,
		ObjectKey: objectKey,
		SizeBytes: sizeBytes,
		Status:    StatusProcessing,
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO file_processing_status (id, file_name, object_key, size_bytes, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.db.ExecContext(ctx, query,
		run.ID, run.FileName, run.ObjectKey, run.SizeBytes, run.Status, run.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	return run, nil
}

// CompleteRun records the final status and detail of a run.
func (s *StatusStore) CompleteRun(ctx context.Context, id uuid.UUID, status Status, detail string) error {
	query := `
		UPDATE file_processing_status
		SET status = $2, detail = $3, finished_at = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id, status, detail)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}

	return nil
}

// LatestRun returns the most recently started run for a file name.
func (s *StatusStore) LatestRun(ctx context.Context, fileName string) (*Run, error) {
	query := `
		SELECT id, file_name, object_key, size_bytes, status, detail, started_at, finished_at
		FROM file_processing_status
		WHERE file_name = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	var run Run

	err := s.db.QueryRowContext(ctx, query, fileName).Scan(
		&run.ID, &run.FileName, &run.ObjectKey, &run.SizeBytes,
		&run.Status, &run.Detail, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	return &run, nil
}

// ListRuns returns recent runs, newest first.
func (s *StatusStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, file_name, object_key, size_bytes, status, detail, started_at, finished_at
		FROM file_processing_status
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run

	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.FileName, &run.ObjectKey, &run.SizeBytes,
			&run.Status, &run.Detail, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}
