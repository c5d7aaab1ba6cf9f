// Package ledger talks to the external anchoring service: asset registration,
// event commits, and commit-history reads. An offline mode substitutes
// deterministic synthetic responses and an in-memory commit log so the whole
// pipeline runs without network access.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/akira-syou/computeproof/internal/digest"
	"github.com/akira-syou/computeproof/internal/event"
)

// Config holds anchoring service configuration. It is read once at
// construction and never mutated afterwards; in particular Offline cannot be
// toggled mid-flight.
type Config struct {
	// APIBase is the asset API root, e.g. https://api.numbersprotocol.io/api/v3
	APIBase string
	// CommitAPI is the commit endpoint URL.
	CommitAPI string
	// Token is the bearer credential attached to every call.
	Token string
	// ExplorerBase is the transaction explorer root used to build receipt URLs.
	ExplorerBase string
	// Offline disables all network calls in favor of synthetic responses.
	Offline bool
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Commit is one raw ledger entry for an asset. Custom carries the embedded
// event payload as a JSON string; entries written by other systems may hold
// anything.
type Commit struct {
	Custom string `json:"custom"`
}

// Client performs register/commit/read operations against the anchoring
// service.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger

	// offline commit log, keyed by asset id
	mu      sync.Mutex
	commits map[string][]Commit
}

// NewClient creates an anchoring service client.
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}

	if config.Offline {
		c.commits = make(map[string][]Commit)
		logger.Info("Ledger client running in offline mode")
	}

	return c
}

// Offline reports whether the client was constructed in offline mode.
func (c *Client) Offline() bool {
	return c.config.Offline
}

// ExplorerURL builds the public lookup URL for a transaction reference.
func (c *Client) ExplorerURL(txRef string) string {
	return fmt.Sprintf("%s/tx/%s", c.config.ExplorerBase, txRef)
}

// RegisterAsset registers a new asset and returns its ledger-assigned
// identifier. referenceURL only satisfies the service's schema requirement
// for a content pointer; it need not resolve.
func (c *Client) RegisterAsset(ctx context.Context, referenceURL, abstract string, customFields any) (string, error) {
	if c.config.Offline {
		return c.registerOffline()
	}

	body := map[string]any{
		"asset_file":    referenceURL,
		"abstract":      abstract,
		"custom_fields": customFields,
	}

	endpoint := c.config.APIBase + "/assets/"
	c.logger.Info("Registering asset",
		slog.String("asset_file", referenceURL),
	)

	respBody, status, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", &RegistrationError{Err: err}
	}
	if status < 200 || status >= 300 {
		return "", &RegistrationError{StatusCode: status, Body: string(respBody)}
	}

	var result struct {
		Nid string `json:"nid"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &RegistrationError{Err: fmt.Errorf("malformed register response: %w", err)}
	}

	c.logger.Info("Asset registered",
		slog.String("nid", result.Nid),
	)
	return result.Nid, nil
}

// CommitEvent appends one immutable event commit to an asset. The commit is
// tagged with an integrity digest of its own payload.
func (c *Client) CommitEvent(ctx context.Context, assetID string, ev event.Event, commitMessage string) (string, error) {
	if c.config.Offline {
		return c.commitOffline(assetID, ev)
	}

	sha, err := digest.Hex(ev)
	if err != nil {
		return "", &CommitError{Err: err}
	}

	creator := ev.Executor
	if creator == "" {
		creator = "system"
	}

	body := map[string]any{
		"encodingFormat":        "application/json",
		"assetCid":              assetID,
		"assetTimestampCreated": ev.Timestamp,
		"assetCreator":          creator,
		"assetSha256":           sha,
		"abstract":              fmt.Sprintf("Event: %s", ev.EventType),
		"commitMessage":         commitMessage,
		"custom":                ev,
	}

	respBody, status, err := c.post(ctx, c.config.CommitAPI, body)
	if err != nil {
		return "", &CommitError{Err: err}
	}
	if status < 200 || status >= 300 {
		return "", &CommitError{StatusCode: status, Body: string(respBody)}
	}

	var result struct {
		TxHash string `json:"txHash"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &CommitError{Err: fmt.Errorf("malformed commit response: %w", err)}
	}

	c.logger.Debug("Event committed",
		slog.String("asset_id", assetID),
		slog.String("event_type", ev.EventType.String()),
		slog.String("tx", result.TxHash),
	)
	return result.TxHash, nil
}

// ListCommits fetches the raw commit list for an asset. Order is whatever the
// service returns; callers must not rely on it.
func (c *Client) ListCommits(ctx context.Context, assetID string) ([]Commit, error) {
	if c.config.Offline {
		return c.listOffline(assetID), nil
	}

	endpoint := fmt.Sprintf("%s/assets/%s/history/", c.config.APIBase, url.PathEscape(assetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &HistoryFetchError{Err: err}
	}
	req.Header.Set("Authorization", "token "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &HistoryFetchError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HistoryFetchError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HistoryFetchError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Commits []Commit `json:"commits"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &HistoryFetchError{Err: fmt.Errorf("malformed history response: %w", err)}
	}

	return result.Commits, nil
}

// post sends a JSON POST with the bearer credential and returns the raw
// response body and status code. Transport failures surface as errors;
// non-2xx statuses are left to the caller to classify.
func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "token "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return respBody, resp.StatusCode, nil
}
