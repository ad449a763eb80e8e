package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const jobColumns = `id, source_ref, source_type, status, title, content, metadata, error_message, channel_id, thread_ts, created_at`

// PostgresStore is the production Store backed by the extractions table
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new job in pending state
func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO extractions (
			id, source_ref, source_type, status, channel_id, thread_ts, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.SourceRef,
		job.SourceType,
		StatusPending,
		job.ChannelID,
		job.ThreadTS,
		job.CreatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrConflict
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	job.Status = StatusPending
	return nil
}

// MarkProcessing claims a pending job. The conditional UPDATE guarantees at
// most one winner per job id.
func (s *PostgresStore) MarkProcessing(ctx context.Context, id string) (*Job, error) {
	query := `
		UPDATE extractions
		SET status = $1
		WHERE id = $2
		  AND status = $3
		RETURNING ` + jobColumns

	var job Job
	err := s.db.GetContext(ctx, &job, query, StatusProcessing, id, StatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.explainMissedTransition(ctx, id)
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", id),
		slog.String("source_type", job.SourceType),
	)

	return &job, nil
}

// Complete atomically writes the extraction result and the completed status
func (s *PostgresStore) Complete(ctx context.Context, id, title, content string, metadata Metadata) error {
	query := `
		UPDATE extractions
		SET status = $1,
		    title = $2,
		    content = $3,
		    metadata = $4
		WHERE id = $5
		  AND status = $6
	`

	result, err := s.db.ExecContext(ctx, query, StatusCompleted, title, content, metadata, id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	if err := s.requireOneRow(ctx, result, id); err != nil {
		return err
	}

	s.logger.Info("Job completed",
		slog.String("job_id", id),
		slog.String("title", title),
	)

	return nil
}

// Fail atomically writes the error message and the failed status
func (s *PostgresStore) Fail(ctx context.Context, id, message string) error {
	query := `
		UPDATE extractions
		SET status = $1,
		    error_message = $2
		WHERE id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, StatusFailed, message, id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	if err := s.requireOneRow(ctx, result, id); err != nil {
		return err
	}

	s.logger.Info("Job failed",
		slog.String("job_id", id),
		slog.String("error_message", message),
	)

	return nil
}

// Get returns a job by id
func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM extractions WHERE id = $1`

	var job Job
	err := s.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List returns up to limit jobs, newest first, optionally filtered by status
func (s *PostgresStore) List(ctx context.Context, limit int, status string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM extractions`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	jobs := []*Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// requireOneRow distinguishes a missing job from an illegal transition when a
// conditional UPDATE matched nothing
func (s *PostgresStore) requireOneRow(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return s.explainMissedTransition(ctx, id)
	}

	return nil
}

func (s *PostgresStore) explainMissedTransition(ctx context.Context, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.logger.Error("Illegal job status transition attempted",
		slog.String("job_id", id),
		slog.String("current_status", job.Status),
	)

	return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, job.Status)
}
