package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/akira-syou/computeproof/internal/event"
)

// Offline mode substitutes synthetic identifiers for network calls and keeps
// a per-asset in-memory commit log so ListCommits can echo back what was
// committed. The log is process-local test plumbing, not durable storage.

func (c *Client) registerOffline() (string, error) {
	nid := "mock-nid-" + uuid.New().String()

	c.mu.Lock()
	c.commits[nid] = nil
	c.mu.Unlock()

	c.logger.Debug("Registered offline asset",
		slog.String("nid", nid),
	)
	return nid, nil
}

func (c *Client) commitOffline(assetID string, ev event.Event) (string, error) {
	custom, err := json.Marshal(ev)
	if err != nil {
		return "", &CommitError{Err: err}
	}

	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	txRef := fmt.Sprintf("0xMOCK_TX_%s_%s", ev.EventType, suffix)

	c.mu.Lock()
	c.commits[assetID] = append(c.commits[assetID], Commit{Custom: string(custom)})
	c.mu.Unlock()

	return txRef, nil
}

func (c *Client) listOffline(assetID string) []Commit {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Commit, len(c.commits[assetID]))
	copy(out, c.commits[assetID])
	return out
}
