// Package lifecycle sequences job transitions: it turns a transition request
// into a validated event, commits it to the anchoring ledger, and returns a
// receipt. It keeps no state between requests; transition order is trusted to
// the caller and re-derived from timestamps at read time.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/akira-syou/computeproof/internal/event"
)

// ErrMissingAsset is returned when a transition other than the initial
// submission is attempted without a known asset id. No ledger call is made.
var ErrMissingAsset = errors.New("asset id is required for this transition")

// Ledger is the write surface of the anchoring service the orchestrator
// depends on.
type Ledger interface {
	RegisterAsset(ctx context.Context, referenceURL, abstract string, customFields any) (string, error)
	CommitEvent(ctx context.Context, assetID string, ev event.Event, commitMessage string) (string, error)
	ExplorerURL(txRef string) string
}

// Receipt confirms a successful commit.
type Receipt struct {
	TxReference string `json:"txHash"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// SubmitResult pairs the newly allocated asset id with the submission receipt.
type SubmitResult struct {
	AssetID string
	Receipt Receipt
}

// Orchestrator commits lifecycle events against the ledger.
type Orchestrator struct {
	ledger           Ledger
	builder          *event.Builder
	logger           *slog.Logger
	assetFileBaseURL string
}

// New creates an orchestrator. assetFileBaseURL is the root under which
// per-job reference URLs are built; the URLs need not resolve, they only
// satisfy the ledger's schema requirement for a content pointer.
func New(ledger Ledger, builder *event.Builder, assetFileBaseURL string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:           ledger,
		builder:          builder,
		logger:           logger,
		assetFileBaseURL: assetFileBaseURL,
	}
}

// SubmitJob registers the job as a new ledger asset and commits the initial
// JobSubmitted event against it. This is the only transition that allocates
// an asset id.
func (o *Orchestrator) SubmitJob(ctx context.Context, in event.Input) (*SubmitResult, error) {
	ev, err := o.builder.Build(event.KindJobSubmitted, in)
	if err != nil {
		return nil, err
	}

	referenceURL := fmt.Sprintf("%s/%s.json", o.assetFileBaseURL, url.PathEscape(in.JobID))
	abstract := fmt.Sprintf("GPU Job: %s", in.JobID)

	assetID, err := o.ledger.RegisterAsset(ctx, referenceURL, abstract, ev)
	if err != nil {
		return nil, err
	}

	txRef, err := o.ledger.CommitEvent(ctx, assetID, ev, "Job submitted to queue")
	if err != nil {
		return nil, err
	}

	o.logger.Info("Job submitted",
		slog.String("job_id", in.JobID),
		slog.String("asset_id", assetID),
		slog.String("tx", txRef),
	)

	return &SubmitResult{
		AssetID: assetID,
		Receipt: Receipt{
			TxReference: txRef,
			ExplorerURL: o.ledger.ExplorerURL(txRef),
		},
	}, nil
}

// RecordTransition builds and commits a lifecycle event against an existing
// asset. Any valid kind is accepted at any time; the orchestrator performs no
// previous-state lookup.
func (o *Orchestrator) RecordTransition(ctx context.Context, assetID string, kind event.Kind, in event.Input) (*Receipt, error) {
	if assetID == "" {
		return nil, ErrMissingAsset
	}

	in.AssetID = assetID
	ev, err := o.builder.Build(kind, in)
	if err != nil {
		return nil, err
	}

	txRef, err := o.ledger.CommitEvent(ctx, assetID, ev, commitMessage(ev))
	if err != nil {
		return nil, err
	}

	o.logger.Info("Transition recorded",
		slog.String("asset_id", assetID),
		slog.String("event_type", kind.String()),
		slog.String("tx", txRef),
	)

	return &Receipt{
		TxReference: txRef,
		ExplorerURL: o.ledger.ExplorerURL(txRef),
	}, nil
}

// commitMessage summarizes a transition for the ledger's audit trail. The
// message is human-readable only and never parsed back.
func commitMessage(ev event.Event) string {
	switch ev.EventType {
	case event.KindJobSubmitted:
		return "Job submitted to queue"
	case event.KindJobScheduled:
		return fmt.Sprintf("Job scheduled on %s", ev.Scheduled.ScheduledNode)
	case event.KindJobStarted:
		return "Job execution started"
	case event.KindJobProgressUpdate:
		return fmt.Sprintf("Progress checkpoint at %g%%", ev.Progress.Progress)
	case event.KindJobCompleted:
		return "Job completed successfully"
	case event.KindJobFailed:
		return fmt.Sprintf("Job failed: %s", ev.Failed.ErrorCode)
	default:
		return fmt.Sprintf("Event: %s", ev.EventType)
	}
}
