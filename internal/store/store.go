// Package store owns the durable extraction job records and their status
// lifecycle. All transitions go through a Store implementation; callers never
// mutate a Job row directly.
package store

import (
	"context"
	"crypto/rand"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Job status lifecycle: pending -> processing -> completed | failed.
// Both completed and failed are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var (
	// ErrNotFound is returned when a job cannot be found
	ErrNotFound = errors.New("job not found")

	// ErrConflict is returned when a generated job id already exists
	ErrConflict = errors.New("job id already exists")

	// ErrInvalidTransition is returned on an attempt to move a job out of a
	// state that does not allow it. Seeing it outside of a claim race means a
	// job was double-processed.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Metadata is an open key/value mapping of extraction-specific facts,
// stored as JSONB.
type Metadata map[string]any

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}
}

// Job is one durable unit of extraction work
type Job struct {
	ID           string    `db:"id" json:"id"`
	SourceRef    string    `db:"source_ref" json:"source_ref"`
	SourceType   string    `db:"source_type" json:"source_type"`
	Status       string    `db:"status" json:"status"`
	Title        *string   `db:"title" json:"title,omitempty"`
	Content      *string   `db:"content" json:"content,omitempty"`
	Metadata     Metadata  `db:"metadata" json:"metadata,omitempty"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	ChannelID    *string   `db:"channel_id" json:"channel_id,omitempty"`
	ThreadTS     *string   `db:"thread_ts" json:"thread_ts,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Store is the durable job table and its state machine.
//
// Implementations must keep every status write atomic with its payload:
// a reader never observes completed without title/content/metadata, nor
// failed without an error message.
type Store interface {
	// Create inserts a new job in pending state. Returns ErrConflict when the
	// id already exists; callers regenerate and retry.
	Create(ctx context.Context, job *Job) error

	// MarkProcessing transitions pending -> processing and returns the
	// claimed job. The transition is conditional on the current status, so
	// at most one caller wins a given job.
	MarkProcessing(ctx context.Context, id string) (*Job, error)

	// Complete atomically writes title, content, metadata and the completed
	// status for a processing job.
	Complete(ctx context.Context, id, title, content string, metadata Metadata) error

	// Fail atomically writes the error message and the failed status for a
	// processing job.
	Fail(ctx context.Context, id, message string) error

	// Get returns the job with the given id
	Get(ctx context.Context, id string) (*Job, error)

	// List returns up to limit jobs, newest first, optionally filtered by
	// status
	List(ctx context.Context, limit int, status string) ([]*Job, error)
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// IDLength is the length of generated job ids
const IDLength = 8

// NewID generates a short random lowercase-alphanumeric job id
func NewID() string {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble
		panic(fmt.Sprintf("store: failed to read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
