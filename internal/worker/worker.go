// Package worker runs extraction jobs pulled from RabbitMQ. Each job is
// claimed from the store, routed to a source extractor, and finished with an
// atomic terminal write; a failing extractor never takes the pool down.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurul-suhasril/idea-analyzer/internal/extract"
	"github.com/nurul-suhasril/idea-analyzer/internal/store"
	"github.com/nurul-suhasril/idea-analyzer/shared/rabbitmq"
	"github.com/nurul-suhasril/idea-analyzer/shared/redis"
)

// JobMessage is the queue message that triggers one extraction run
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Store         store.Store
	RabbitClient  *rabbitmq.Client
	Events        *redis.Client // optional completion-event publisher
	EventsChannel string
	Extractors    map[extract.SourceType]extract.Extractor
	UploadDir     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker consumes job messages and executes extractions concurrently
type Worker struct {
	logger        *slog.Logger
	store         store.Store
	rabbitClient  *rabbitmq.Client
	events        *redis.Client
	eventsChannel string
	extractors    map[extract.SourceType]extract.Extractor
	uploadDir     string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	workerID      string
	jobsChan      chan *JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		store:         cfg.Store,
		rabbitClient:  cfg.RabbitClient,
		events:        cfg.Events,
		eventsChannel: cfg.EventsChannel,
		extractors:    cfg.Extractors,
		uploadDir:     cfg.UploadDir,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		workerID:      "extractor-" + uuid.New().String()[:8],
		jobsChan:      make(chan *JobMessage, cfg.Concurrency),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing jobs; it blocks until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	go w.startMessageDispatcher(ctx, deliveries)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop gracefully stops the worker pool
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
