package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/ledger"
)

// recordingLedger captures every call so tests can assert on call counts and
// wire arguments.
type recordingLedger struct {
	registered  []string // reference URLs
	committed   []string // commit messages
	lastEvent   event.Event
	registerErr error
	commitErr   error
}

func (r *recordingLedger) RegisterAsset(_ context.Context, referenceURL, _ string, _ any) (string, error) {
	if r.registerErr != nil {
		return "", r.registerErr
	}
	r.registered = append(r.registered, referenceURL)
	return "nid-test", nil
}

func (r *recordingLedger) CommitEvent(_ context.Context, _ string, ev event.Event, message string) (string, error) {
	if r.commitErr != nil {
		return "", r.commitErr
	}
	r.committed = append(r.committed, message)
	r.lastEvent = ev
	return "0xtx", nil
}

func (r *recordingLedger) ExplorerURL(txRef string) string {
	return "https://mainnet.num.network/tx/" + txRef
}

func testOrchestrator(l Ledger) *Orchestrator {
	builder := event.NewBuilderWith(
		func() time.Time { return time.Unix(1700000000, 0).UTC() },
		func(lo, hi int) int { return lo },
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(l, builder, "https://example.com/assets", logger)
}

func TestSubmitJob(t *testing.T) {
	led := &recordingLedger{}
	o := testOrchestrator(led)

	result, err := o.SubmitJob(context.Background(), event.Input{JobID: "job 1"})
	require.NoError(t, err)

	assert.Equal(t, "nid-test", result.AssetID)
	assert.Equal(t, "0xtx", result.Receipt.TxReference)
	assert.Equal(t, "https://mainnet.num.network/tx/0xtx", result.Receipt.ExplorerURL)

	// Reference URL is built from the encoded job id.
	require.Len(t, led.registered, 1)
	assert.Equal(t, "https://example.com/assets/job%201.json", led.registered[0])

	require.Len(t, led.committed, 1)
	assert.Equal(t, "Job submitted to queue", led.committed[0])
	assert.Equal(t, event.KindJobSubmitted, led.lastEvent.EventType)
}

func TestSubmitJob_RegistrationFailureStopsCommit(t *testing.T) {
	led := &recordingLedger{
		registerErr: &ledger.RegistrationError{StatusCode: 422, Body: "bad asset_file"},
	}
	o := testOrchestrator(led)

	_, err := o.SubmitJob(context.Background(), event.Input{JobID: "job-1"})
	require.Error(t, err)

	var regErr *ledger.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "bad asset_file", regErr.Body)
	assert.Empty(t, led.committed)
}

func TestRecordTransition_MissingAssetID(t *testing.T) {
	led := &recordingLedger{}
	o := testOrchestrator(led)

	for _, kind := range []event.Kind{
		event.KindJobScheduled, event.KindJobStarted,
		event.KindJobProgressUpdate, event.KindJobCompleted, event.KindJobFailed,
	} {
		t.Run(string(kind), func(t *testing.T) {
			_, err := o.RecordTransition(context.Background(), "", kind, event.Input{})
			assert.ErrorIs(t, err, ErrMissingAsset)
		})
	}

	// The check happens before any ledger call.
	assert.Empty(t, led.registered)
	assert.Empty(t, led.committed)
}

func TestRecordTransition_UnknownKind(t *testing.T) {
	led := &recordingLedger{}
	o := testOrchestrator(led)

	_, err := o.RecordTransition(context.Background(), "nid-1", event.Kind("JobPaused"), event.Input{})
	assert.ErrorIs(t, err, event.ErrUnknownKind)
	assert.Empty(t, led.committed)
}

func TestRecordTransition_CommitMessages(t *testing.T) {
	tests := []struct {
		kind    event.Kind
		input   event.Input
		message string
	}{
		{event.KindJobScheduled, event.Input{ScheduledNode: "gpu-node-07"}, "Job scheduled on gpu-node-07"},
		{event.KindJobScheduled, event.Input{}, "Job scheduled on gpu-node-01"},
		{event.KindJobStarted, event.Input{}, "Job execution started"},
		{event.KindJobProgressUpdate, event.Input{Progress: 75}, "Progress checkpoint at 75%"},
		{event.KindJobCompleted, event.Input{}, "Job completed successfully"},
		{event.KindJobFailed, event.Input{ErrorCode: "OOM"}, "Job failed: OOM"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			led := &recordingLedger{}
			o := testOrchestrator(led)

			receipt, err := o.RecordTransition(context.Background(), "nid-1", tt.kind, tt.input)
			require.NoError(t, err)
			assert.Equal(t, "0xtx", receipt.TxReference)

			require.Len(t, led.committed, 1)
			assert.Equal(t, tt.message, led.committed[0])
			assert.Equal(t, "nid-1", led.lastEvent.JobNid)
		})
	}
}

func TestRecordTransition_CommitErrorPropagates(t *testing.T) {
	led := &recordingLedger{
		commitErr: &ledger.CommitError{StatusCode: 502, Body: "anchor down"},
	}
	o := testOrchestrator(led)

	_, err := o.RecordTransition(context.Background(), "nid-1", event.KindJobCompleted, event.Input{})
	require.Error(t, err)

	var commitErr *ledger.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "anchor down", commitErr.Body)
}
