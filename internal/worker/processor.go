package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nurul-suhasril/idea-analyzer/internal/extract"
	"github.com/nurul-suhasril/idea-analyzer/internal/store"
)

// processJob claims and runs a single extraction job. The returned bool says
// whether the message should be requeued; only a transient claim failure
// requeues, everything after a successful claim ends in a terminal status.
func (w *Worker) processJob(ctx context.Context, msg *JobMessage) bool {
	logger := w.logger.With(slog.String("job_id", msg.JobID))

	job, err := w.store.MarkProcessing(ctx, msg.JobID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			logger.Warn("Job not found, dropping message")
			return false
		case errors.Is(err, store.ErrInvalidTransition):
			logger.Warn("Job already claimed or finished, dropping message",
				slog.String("error", err.Error()),
			)
			return false
		default:
			logger.Error("Failed to claim job",
				slog.String("error", err.Error()),
			)
			return true
		}
	}

	logger.Info("Processing job",
		slog.String("source_type", job.SourceType),
		slog.String("source_ref", job.SourceRef),
	)
	startTime := time.Now()

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	result, extractErr := w.runExtraction(jobCtx, job)

	// Terminal writes use the parent context so a timed-out job still gets
	// its status recorded
	if extractErr != nil {
		logger.Error("Extraction failed",
			slog.String("error", extractErr.Error()),
			slog.Duration("duration", time.Since(startTime)),
		)
		if failErr := w.store.Fail(ctx, job.ID, extractErr.Error()); failErr != nil {
			logger.Error("Failed to record job failure",
				slog.String("error", failErr.Error()),
			)
		}
	} else {
		if completeErr := w.store.Complete(ctx, job.ID, result.Title, result.Content, store.Metadata(result.Metadata)); completeErr != nil {
			logger.Error("Failed to record job completion",
				slog.String("error", completeErr.Error()),
			)
		} else {
			logger.Info("Job completed",
				slog.String("title", result.Title),
				slog.Int("content_length", len(result.Content)),
				slog.Duration("duration", time.Since(startTime)),
			)
		}
	}

	w.cleanupUpload(job, logger)
	w.publishEvent(ctx, job.ID, logger)

	return false
}

// runExtraction routes the job to its extractor and converts panics into
// errors so one bad document cannot take the pool down
func (w *Worker) runExtraction(ctx context.Context, job *store.Job) (result *extract.Result, err error) {
	sourceType := extract.SourceType(job.SourceType)

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &extract.Error{
				Source: sourceType,
				Err:    fmt.Errorf("extraction panicked: %v", r),
			}
		}
	}()

	extractor, ok := w.extractors[sourceType]
	if !ok {
		return nil, &extract.Error{
			Source: sourceType,
			Err:    fmt.Errorf("no extractor registered for source type %q", job.SourceType),
		}
	}

	result, err = extractor.Extract(ctx, job.SourceRef)
	if err != nil {
		var extractionErr *extract.Error
		if !errors.As(err, &extractionErr) {
			err = &extract.Error{Source: sourceType, Err: err}
		}
		return nil, err
	}

	return result, nil
}

// cleanupUpload removes the uploaded file once the job reaches a terminal
// state, on both success and failure paths
func (w *Worker) cleanupUpload(job *store.Job, logger *slog.Logger) {
	if extract.SourceType(job.SourceType) != extract.TypeFile {
		return
	}

	path := job.SourceRef
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.uploadDir, job.SourceRef)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove uploaded file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// publishEvent notifies subscribers that the job reached a terminal state.
// Event publishing is best-effort and never affects message settlement.
func (w *Worker) publishEvent(ctx context.Context, jobID string, logger *slog.Logger) {
	if w.events == nil {
		return
	}

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		logger.Warn("Failed to load job for event publish",
			slog.String("error", err.Error()),
		)
		return
	}

	event := map[string]any{
		"id":     job.ID,
		"status": job.Status,
	}
	if job.Title != nil {
		event["title"] = *job.Title
	}
	if job.ErrorMessage != nil {
		event["error_message"] = *job.ErrorMessage
	}
	if job.ChannelID != nil {
		event["channel_id"] = *job.ChannelID
	}
	if job.ThreadTS != nil {
		event["thread_ts"] = *job.ThreadTS
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn("Failed to encode job event",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := w.events.Publish(ctx, w.eventsChannel, payload); err != nil {
		logger.Warn("Failed to publish job event",
			slog.String("error", err.Error()),
		)
	}
}
