package handler

import (
	"context"
	"log/slog"

	"github.com/akira-syou/computeproof/internal/history"
	"github.com/akira-syou/computeproof/internal/lifecycle"
)

// Publisher publishes transition messages for asynchronous processing.
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Orchestrator *lifecycle.Orchestrator
	History      *history.Reconstructor
	Publisher    Publisher
	ServiceName  string
	Version      string
}

// JobHandler handles job lifecycle HTTP requests
type JobHandler struct {
	logger       *slog.Logger
	orchestrator *lifecycle.Orchestrator
	history      *history.Reconstructor
	publisher    Publisher
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:       deps.Logger,
		orchestrator: deps.Orchestrator,
		history:      deps.History,
		publisher:    deps.Publisher,
	}
}
