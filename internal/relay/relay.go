// Package relay consumes queued lifecycle transitions from RabbitMQ and
// applies them through the orchestrator. It is the asynchronous counterpart
// of the synchronous transition endpoints.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/akira-syou/computeproof/internal/api/dto"
	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/lifecycle"
	"github.com/akira-syou/computeproof/shared/rabbitmq"
)

// Applier is the transition surface the relay drives. The lifecycle
// orchestrator satisfies it.
type Applier interface {
	SubmitJob(ctx context.Context, in event.Input) (*lifecycle.SubmitResult, error)
	RecordTransition(ctx context.Context, assetID string, kind event.Kind, in event.Input) (*lifecycle.Receipt, error)
}

// Config holds relay configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Applier       Applier
	Concurrency   int
	PrefetchCount int
}

// Relay pulls transition messages off the queue and fans them out to a
// fixed-size worker pool.
type Relay struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	applier       Applier
	concurrency   int
	prefetchCount int
	relayID       string
	wg            sync.WaitGroup
	stopChan      chan struct{}
	msgChan       chan *transitionDelivery
}

// transitionDelivery pairs a decoded message with its delivery tag for
// ack/nack after processing.
type transitionDelivery struct {
	msg         dto.TransitionMessage
	deliveryTag uint64
}

// NewRelay creates a new relay instance
func NewRelay(cfg *Config) *Relay {
	return &Relay{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		applier:       cfg.Applier,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		relayID:       "relay-" + uuid.NewString()[:8],
		stopChan:      make(chan struct{}),
		msgChan:       make(chan *transitionDelivery),
	}
}

// Start begins consuming and processing transition messages. It blocks until
// the context is canceled or the delivery channel closes.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("Starting relay",
		slog.String("relay_id", r.relayID),
		slog.Int("concurrency", r.concurrency),
		slog.Int("prefetch_count", r.prefetchCount),
	)

	deliveries, err := r.rabbitClient.Consume(r.relayID, r.prefetchCount)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	r.spawnPool(ctx)
	r.dispatch(ctx, deliveries)

	return nil
}

// Stop gracefully stops the relay, waiting for in-flight messages.
func (r *Relay) Stop() {
	r.logger.Info("Stopping relay",
		slog.String("relay_id", r.relayID),
	)
	close(r.stopChan)
	r.wg.Wait()
	r.logger.Info("Relay stopped")
}
