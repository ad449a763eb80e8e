package worker

import (
	"context"
	"log/slog"
)

// spawnWorkerPool launches the configured number of worker goroutines
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("workers", w.concurrency),
	)
}

// workerLoop is the main loop for a single pool worker
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	logger := w.logger.With(slog.Int("pool_worker", workerNum))
	logger.Debug("Pool worker started")

	for {
		select {
		case <-w.stopChan:
			logger.Debug("Pool worker stopping")
			return

		case <-ctx.Done():
			logger.Debug("Pool worker stopping - context canceled")
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				logger.Debug("Jobs channel closed")
				return
			}

			requeue := w.processJob(ctx, msg)
			w.settle(msg, requeue, logger)
		}
	}
}

// settle acknowledges or requeues the delivery after a processing attempt.
// Requeue is reserved for transient failures where the job was never claimed;
// once a terminal status is written the message is always acked.
func (w *Worker) settle(msg *JobMessage, requeue bool, logger *slog.Logger) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		logger.Error("Cannot settle message - rabbitmq channel is nil",
			slog.String("job_id", msg.JobID),
		)
		return
	}

	if requeue {
		if err := channel.Nack(msg.DeliveryTag, false, true); err != nil {
			logger.Error("Failed to NACK message",
				slog.String("job_id", msg.JobID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := channel.Ack(msg.DeliveryTag, false); err != nil {
		logger.Error("Failed to ACK message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
	}
}
