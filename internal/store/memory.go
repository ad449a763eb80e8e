package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It enforces the same transition rules as PostgresStore.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	seq  []string // insertion order, used to break created_at ties
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
	}
}

// Create inserts a new job in pending state
func (s *MemoryStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrConflict
	}

	stored := *job
	stored.Status = StatusPending
	s.jobs[job.ID] = &stored
	s.seq = append(s.seq, job.ID)
	job.Status = StatusPending

	return nil
}

// MarkProcessing claims a pending job
func (s *MemoryStore) MarkProcessing(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	if job.Status != StatusPending {
		return nil, fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, job.Status)
	}

	job.Status = StatusProcessing
	copied := *job
	return &copied, nil
}

// Complete atomically writes the extraction result and the completed status
func (s *MemoryStore) Complete(ctx context.Context, id, title, content string, metadata Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}

	if job.Status != StatusProcessing {
		return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, job.Status)
	}

	job.Status = StatusCompleted
	job.Title = &title
	job.Content = &content
	job.Metadata = metadata

	return nil
}

// Fail atomically writes the error message and the failed status
func (s *MemoryStore) Fail(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}

	if job.Status != StatusProcessing {
		return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, job.Status)
	}

	job.Status = StatusFailed
	job.ErrorMessage = &message

	return nil
}

// Get returns a job by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *job
	return &copied, nil
}

// List returns up to limit jobs, newest first, optionally filtered by status
func (s *MemoryStore) List(ctx context.Context, limit int, status string) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for i := len(s.seq) - 1; i >= 0; i-- {
		job := s.jobs[s.seq[i]]
		if status != "" && job.Status != status {
			continue
		}
		copied := *job
		jobs = append(jobs, &copied)
	}

	// seq is newest-last; the reverse walk already breaks created_at ties
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}
