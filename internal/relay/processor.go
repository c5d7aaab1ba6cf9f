package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akira-syou/computeproof/internal/api/dto"
	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/ledger"
	"github.com/akira-syou/computeproof/internal/lifecycle"
)

// applyTransition drives one queued transition through the orchestrator.
// Ledger failures are wrapped as retryable since the anchoring service can
// recover; validation failures are terminal.
func (r *Relay) applyTransition(ctx context.Context, msg dto.TransitionMessage) error {
	kind := event.Kind(msg.EventType)
	in := msg.Input.ToInput()

	var err error
	if kind == event.KindJobSubmitted {
		var result *lifecycle.SubmitResult
		result, err = r.applier.SubmitJob(ctx, in)
		if err == nil {
			r.logger.Info("Queued job submitted",
				slog.String("job_id", in.JobID),
				slog.String("asset_id", result.AssetID),
				slog.String("tx", result.Receipt.TxReference),
			)
			return nil
		}
	} else {
		var receipt *lifecycle.Receipt
		receipt, err = r.applier.RecordTransition(ctx, msg.AssetID, kind, in)
		if err == nil {
			r.logger.Info("Queued transition applied",
				slog.String("asset_id", msg.AssetID),
				slog.String("event_type", msg.EventType),
				slog.String("tx", receipt.TxReference),
			)
			return nil
		}
	}

	if errors.Is(err, lifecycle.ErrMissingAsset) || errors.Is(err, event.ErrUnknownKind) {
		return fmt.Errorf("transition rejected: %w", err)
	}

	if isLedgerError(err) {
		return NewRetryableError(fmt.Errorf("ledger commit failed: %w", err))
	}

	return fmt.Errorf("transition failed: %w", err)
}

func isLedgerError(err error) bool {
	var regErr *ledger.RegistrationError
	var commitErr *ledger.CommitError
	return errors.As(err, &regErr) || errors.As(err, &commitErr)
}
