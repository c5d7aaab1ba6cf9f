package ledger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akira-syou/computeproof/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedEvent(kind event.Kind, ts int64) event.Event {
	b := event.NewBuilderWith(
		func() time.Time { return time.Unix(ts, 0).UTC() },
		func(lo, hi int) int { return lo },
	)
	ev, _ := b.Build(kind, event.Input{JobID: "job-1", AssetID: "nid-1"})
	return ev
}

func TestOfflineMode(t *testing.T) {
	// Endpoints are deliberately unresolvable: any network attempt fails the
	// test with a transport error.
	client := NewClient(&Config{
		APIBase:      "http://127.0.0.1:1/api/v3",
		CommitAPI:    "http://127.0.0.1:1/commit",
		ExplorerBase: "https://mainnet.num.network",
		Offline:      true,
	}, testLogger())

	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		nid, err := client.RegisterAsset(ctx, "https://example.com/assets/j.json", "GPU Job: j", nil)
		require.NoError(t, err)
		require.NotEmpty(t, nid)
		assert.False(t, seen[nid], "offline nids must be fresh per call")
		seen[nid] = true
	}

	tx, err := client.CommitEvent(ctx, "nid-1", fixedEvent(event.KindJobSubmitted, 1000), "Job submitted to queue")
	require.NoError(t, err)
	assert.Contains(t, tx, "0xMOCK_TX_JobSubmitted_")

	tx2, err := client.CommitEvent(ctx, "nid-1", fixedEvent(event.KindJobCompleted, 2000), "Job completed successfully")
	require.NoError(t, err)
	assert.Contains(t, tx2, "0xMOCK_TX_JobCompleted_")

	commits, err := client.ListCommits(ctx, "nid-1")
	require.NoError(t, err)
	require.Len(t, commits, 2)

	var decoded event.Event
	require.NoError(t, json.Unmarshal([]byte(commits[0].Custom), &decoded))
	assert.Equal(t, event.KindJobSubmitted, decoded.EventType)
}

func TestRegisterAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/assets/", r.URL.Path)
		assert.Equal(t, "token secret-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com/assets/job-1.json", body["asset_file"])
		assert.Equal(t, "GPU Job: job-1", body["abstract"])

		_ = json.NewEncoder(w).Encode(map[string]string{"nid": "bafybeigd"})
	}))
	defer srv.Close()

	client := NewClient(&Config{
		APIBase: srv.URL + "/api/v3",
		Token:   "secret-token",
	}, testLogger())

	nid, err := client.RegisterAsset(context.Background(),
		"https://example.com/assets/job-1.json", "GPU Job: job-1",
		map[string]string{"jobId": "job-1"})
	require.NoError(t, err)
	assert.Equal(t, "bafybeigd", nid)
}

func TestRegisterAsset_NonSuccessSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"asset_file must be a valid URL"}`))
	}))
	defer srv.Close()

	client := NewClient(&Config{APIBase: srv.URL}, testLogger())

	_, err := client.RegisterAsset(context.Background(), "not-a-url", "x", nil)
	require.Error(t, err)

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusUnprocessableEntity, regErr.StatusCode)
	assert.Contains(t, regErr.Body, "asset_file must be a valid URL")
	assert.Contains(t, err.Error(), "failed to register asset")
}

func TestCommitEvent(t *testing.T) {
	ev := fixedEvent(event.KindJobScheduled, 1700000000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "application/json", body["encodingFormat"])
		assert.Equal(t, "nid-1", body["assetCid"])
		assert.Equal(t, "scheduler", body["assetCreator"])
		assert.Equal(t, "Event: JobScheduled", body["abstract"])
		assert.Equal(t, "Job scheduled on gpu-node-01", body["commitMessage"])
		// Integrity digest of the payload itself rides along.
		sha, ok := body["assetSha256"].(string)
		require.True(t, ok)
		assert.Len(t, sha, 64)

		_ = json.NewEncoder(w).Encode(map[string]string{"txHash": "0xabc123"})
	}))
	defer srv.Close()

	client := NewClient(&Config{CommitAPI: srv.URL}, testLogger())

	tx, err := client.CommitEvent(context.Background(), "nid-1", ev, "Job scheduled on gpu-node-01")
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", tx)
}

func TestCommitEvent_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream anchor unavailable"))
	}))
	defer srv.Close()

	client := NewClient(&Config{CommitAPI: srv.URL}, testLogger())

	_, err := client.CommitEvent(context.Background(), "nid-1", fixedEvent(event.KindJobStarted, 1), "Job execution started")
	require.Error(t, err)

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, http.StatusBadGateway, commitErr.StatusCode)
	assert.Equal(t, "upstream anchor unavailable", commitErr.Body)
}

func TestListCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/assets/nid-1/history/", r.URL.Path)
		assert.Equal(t, "token secret-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"commits": []map[string]string{
				{"custom": `{"eventType":"JobSubmitted","timestamp":1000}`},
				{"custom": `{"eventType":"JobCompleted","timestamp":4600}`},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(&Config{APIBase: srv.URL + "/api/v3", Token: "secret-token"}, testLogger())

	commits, err := client.ListCommits(context.Background(), "nid-1")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Contains(t, commits[0].Custom, "JobSubmitted")
}

func TestListCommits_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("asset not found"))
	}))
	defer srv.Close()

	client := NewClient(&Config{APIBase: srv.URL}, testLogger())

	_, err := client.ListCommits(context.Background(), "nid-missing")
	require.Error(t, err)

	var fetchErr *HistoryFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Body, "asset not found")
}

func TestExplorerURL(t *testing.T) {
	client := NewClient(&Config{ExplorerBase: "https://mainnet.num.network"}, testLogger())
	assert.Equal(t, "https://mainnet.num.network/tx/0xabc", client.ExplorerURL("0xabc"))
}
