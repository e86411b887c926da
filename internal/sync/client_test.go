package sync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/config"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

func syncConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Sync.Enabled = true
	cfg.Sync.DefaultBaseURL = baseURL
	cfg.Sync.Secret = "test-secret"
	cfg.Sync.MaxRetries = 3
	cfg.Sync.Timeout = 5 * time.Second
	return cfg
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient(syncConfig(t, baseURL))
	c.retryDelay = time.Millisecond
	return c
}

func testJobs() []models.NormalizedJob {
	return []models.NormalizedJob{
		{ID: "backend-engineer", Title: "Backend Engineer", Location: "Remote"},
		{ID: "data-engineer", Title: "Data Engineer", Location: "Berlin"},
	}
}

func TestSyncJobsDeliversSignedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs/sync", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		timestamp := r.Header.Get(HeaderTimestamp)
		require.NotEmpty(t, timestamp)
		assert.Equal(t, Sign("test-secret", timestamp, body), r.Header.Get(HeaderSignature))

		var received payload
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, models.SourceAutomated, received.Source)
		assert.Equal(t, 2, received.TotalCount)
		assert.Len(t, received.Jobs, 2)

		json.NewEncoder(w).Encode(models.SyncSummary{
			Success:      true,
			SyncedCount:  1,
			SkippedCount: 1,
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	summary, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, "")
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.SyncedCount)
	assert.Equal(t, 1, summary.SkippedCount)
}

func TestSyncJobsRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(models.SyncSummary{Success: true, SyncedCount: 2})
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	summary, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, "")
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 2, calls, "a 5xx response should be retried")
}

func TestSyncJobsDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, "")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a 4xx response must not be retried")

	var ce *utils.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadGateway, ce.Code)
}

func TestSyncJobsExhaustsRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, "")
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "500")
}

func TestSyncJobsDisabled(t *testing.T) {
	cfg := syncConfig(t, "http://unused.example")
	cfg.Sync.Enabled = false

	client := NewClient(cfg)
	assert.False(t, client.IsConfigured())

	_, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestSyncJobsRequiresDestination(t *testing.T) {
	client := testClient(t, "")

	_, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sync destination configured")
}

func TestSyncJobsHonorsRequestBaseURL(t *testing.T) {
	hit := false
	override := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		json.NewEncoder(w).Encode(models.SyncSummary{Success: true})
	}))
	defer override.Close()

	// Default destination points nowhere reachable; the per-request base
	// URL must win.
	client := testClient(t, "http://127.0.0.1:1")

	summary, err := client.SyncJobs(context.Background(), testJobs(), models.SourceAutomated, override.URL)
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.True(t, hit)
}
