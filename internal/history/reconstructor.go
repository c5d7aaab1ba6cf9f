// Package history rebuilds a job's full lifecycle from the anchoring
// ledger's raw commit list and derives summary metrics from it. Histories are
// recomputed fresh on every read; nothing is cached.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/ledger"
)

// DefaultGPUHourRate is the billing rate applied when none is configured,
// in currency units per GPU-hour.
const DefaultGPUHourRate = 2.5

// Reader is the read surface of the anchoring service.
type Reader interface {
	ListCommits(ctx context.Context, assetID string) ([]ledger.Commit, error)
}

// Metrics are derived from the first JobSubmitted and first JobCompleted
// events in a sorted history.
type Metrics struct {
	Duration     int64   `json:"duration"`
	GPUHoursUsed float64 `json:"gpuHoursUsed"`
	Cost         float64 `json:"cost"`
	Efficiency   float64 `json:"efficiency"`
}

// JobHistory is the reconstructed, timestamp-ordered event sequence for one
// asset. Metrics is nil unless both a submission and a completion survive
// decoding. DiscardedCommits counts ledger entries that could not be decoded
// into events; it is observability for the silent-drop policy and not part of
// the wire response.
type JobHistory struct {
	JobNid           string        `json:"jobNid"`
	Events           []event.Event `json:"events"`
	Metrics          *Metrics      `json:"metrics,omitempty"`
	TotalEvents      int           `json:"totalEvents"`
	DiscardedCommits int           `json:"-"`
}

// Reconstructor replays ledger commits into job histories.
type Reconstructor struct {
	ledger      Reader
	gpuHourRate float64
	logger      *slog.Logger
}

// New creates a reconstructor. A non-positive rate falls back to
// DefaultGPUHourRate.
func New(ledger Reader, gpuHourRate float64, logger *slog.Logger) *Reconstructor {
	if gpuHourRate <= 0 {
		gpuHourRate = DefaultGPUHourRate
	}
	return &Reconstructor{
		ledger:      ledger,
		gpuHourRate: gpuHourRate,
		logger:      logger,
	}
}

// GetHistory fetches, decodes, orders, and summarizes all commits for an
// asset. Zero surviving events yields an empty history, not an error; only a
// ledger read failure fails the call.
func (r *Reconstructor) GetHistory(ctx context.Context, assetID string) (*JobHistory, error) {
	commits, err := r.ledger.ListCommits(ctx, assetID)
	if err != nil {
		return nil, err
	}

	events, discarded := decodeCommits(commits)

	// Arrival order is never trusted; ties keep relative arrival order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	if discarded > 0 {
		r.logger.Warn("Discarded undecodable ledger commits",
			slog.String("asset_id", assetID),
			slog.Int("discarded", discarded),
			slog.Int("survived", len(events)),
		)
	}

	return &JobHistory{
		JobNid:           assetID,
		Events:           events,
		Metrics:          r.deriveMetrics(events),
		TotalEvents:      len(events),
		DiscardedCommits: discarded,
	}, nil
}

// decodeCommits turns raw commits into typed events. Entries that do not
// decode into an event are dropped, not errors: the ledger may hold commits
// from other systems, and a foreign entry must never fail a history read.
func decodeCommits(commits []ledger.Commit) ([]event.Event, int) {
	events := make([]event.Event, 0, len(commits))
	discarded := 0

	for _, c := range commits {
		var ev event.Event
		if err := json.Unmarshal([]byte(c.Custom), &ev); err != nil || ev.EventType == "" {
			discarded++
			continue
		}
		events = append(events, ev)
	}

	return events, discarded
}

// deriveMetrics computes duration, GPU-hours, cost, and efficiency from the
// earliest submission and earliest completion after sorting. Both must be
// present, otherwise there are no metrics at all.
func (r *Reconstructor) deriveMetrics(events []event.Event) *Metrics {
	submitted := firstOfKind(events, event.KindJobSubmitted)
	completed := firstOfKind(events, event.KindJobCompleted)
	if submitted == nil || completed == nil {
		return nil
	}

	duration := completed.Timestamp - submitted.Timestamp

	gpuHours := 0.0
	status := ""
	if completed.Completed != nil {
		gpuHours = completed.Completed.GPUHoursUsed
		status = completed.Completed.CompletionStatus
	}
	if gpuHours == 0 {
		gpuHours = float64(duration) / 3600
	}

	efficiency := 0.0
	if status == event.StatusSuccess {
		efficiency = 100
	}

	return &Metrics{
		Duration:     duration,
		GPUHoursUsed: gpuHours,
		Cost:         gpuHours * r.gpuHourRate,
		Efficiency:   efficiency,
	}
}

func firstOfKind(events []event.Event, kind event.Kind) *event.Event {
	for i := range events {
		if events[i].EventType == kind {
			return &events[i]
		}
	}
	return nil
}
