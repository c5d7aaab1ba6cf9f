package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// spawnPool spawns N worker goroutines based on concurrency configuration
func (r *Relay) spawnPool(ctx context.Context) {
	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.workerLoop(ctx, i)
	}

	r.logger.Info("Worker pool spawned",
		slog.Int("worker_count", r.concurrency),
	)
}

// workerLoop is the main processing loop for each worker goroutine
func (r *Relay) workerLoop(ctx context.Context, workerNum int) {
	defer r.wg.Done()

	workerName := fmt.Sprintf("%s-%d", r.relayID, workerNum)
	r.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-r.stopChan:
			r.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			r.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case td, ok := <-r.msgChan:
			if !ok {
				return
			}

			err := r.applyTransition(ctx, td.msg)
			if err != nil {
				r.logger.Error("Transition processing failed",
					slog.String("worker_name", workerName),
					slog.String("asset_id", td.msg.AssetID),
					slog.String("event_type", td.msg.EventType),
					slog.String("error", err.Error()),
				)
				r.nackDelivery(td.deliveryTag, shouldRequeue(err))
				continue
			}

			if ackErr := r.rabbitClient.Ack(td.deliveryTag); ackErr != nil {
				r.logger.Error("Failed to ACK message",
					slog.String("worker_name", workerName),
					slog.String("error", ackErr.Error()),
				)
				continue
			}

			r.logger.Info("Transition applied",
				slog.String("worker_name", workerName),
				slog.String("asset_id", td.msg.AssetID),
				slog.String("event_type", td.msg.EventType),
			)
		}
	}
}

// shouldRequeue determines whether a failed transition goes back on the
// queue. Only transient errors wrapped as RetryableError are requeued;
// validation failures would fail identically on every redelivery.
func shouldRequeue(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
