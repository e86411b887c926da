package background

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/config"
	"careersync/internal/scraper/workers"
	jobsync "careersync/internal/sync"
	"careersync/pkg/models"
)

type fetchStub struct {
	result *models.JobFetchResult
}

func (f *fetchStub) FetchJobs(ctx context.Context, cfg *models.SourceConfig) *models.JobFetchResult {
	return f.result
}

func managerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Workers.PoolSize = 2
	cfg.Workers.QueueSize = 8
	cfg.Workers.RateLimit = 6000
	cfg.Workers.Timeout = 5 * time.Second
	cfg.BackgroundTasks.MaxConcurrentTasks = 2
	cfg.BackgroundTasks.TaskTimeout = 5 * time.Second
	return cfg
}

func startedManager(t *testing.T, cfg *config.Config) *TaskManagerImpl {
	t.Helper()
	tm := NewTaskManager(cfg, nil)
	require.NoError(t, tm.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, tm.Stop(stopCtx))
	})
	return tm
}

func startedPoolManager(t *testing.T, cfg *config.Config, fetcher workers.Fetcher) *workers.PoolManager {
	t.Helper()
	pm := workers.NewPoolManager(cfg, fetcher)
	require.NoError(t, pm.Initialize())
	t.Cleanup(func() {
		require.NoError(t, pm.Shutdown())
	})
	return pm
}

func fetchedEnvelope() *models.JobFetchResult {
	return &models.JobFetchResult{
		Jobs: []models.NormalizedJob{
			{ID: "job-1", Title: "Backend Engineer"},
			{ID: "job-2", Title: "Platform Engineer"},
		},
		Method:     "htmlfetch",
		Success:    true,
		Message:    "Fetched 2 jobs via htmlfetch",
		FetchedAt:  time.Now().UTC(),
		TotalCount: 2,
	}
}

func awaitTask(t *testing.T, tm *TaskManagerImpl, processID string, want models.AsyncStatus) *TaskResult {
	t.Helper()
	var result *TaskResult
	require.Eventually(t, func() bool {
		got, err := tm.GetTaskResult(context.Background(), processID)
		if err != nil {
			return false
		}
		result = got
		return got.Status == want
	}, 3*time.Second, 10*time.Millisecond)
	return result
}

func TestTaskManagerLifecycle(t *testing.T) {
	cfg := managerConfig(t)
	tm := NewTaskManager(cfg, nil)

	assert.False(t, tm.IsHealthy())

	require.NoError(t, tm.Start(context.Background()))
	assert.True(t, tm.IsHealthy())
	assert.Error(t, tm.Start(context.Background()), "double start should be rejected")

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tm.Stop(stopCtx))
	assert.False(t, tm.IsHealthy())

	// Stopping an already stopped manager is a no-op.
	require.NoError(t, tm.Stop(stopCtx))
}

func TestSubmitFetchTaskSucceeds(t *testing.T) {
	cfg := managerConfig(t)
	pm := startedPoolManager(t, cfg, &fetchStub{result: fetchedEnvelope()})
	tm := startedManager(t, cfg)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
		CompanyID:  "acme",
	}

	require.NoError(t, tm.SubmitFetchTask(context.Background(), "proc-ok", source, pm, nil))

	status, err := tm.GetTaskStatus(context.Background(), "proc-ok")
	require.NoError(t, err)
	assert.Contains(t, []models.AsyncStatus{
		models.AsyncStatusAccepted,
		models.AsyncStatusProcessing,
		models.AsyncStatusSuccess,
	}, status)

	result := awaitTask(t, tm, "proc-ok", models.AsyncStatusSuccess)

	data, ok := result.Data.(*models.AsyncFetchCompletionData)
	require.True(t, ok, "completion data should carry the fetch envelope")
	assert.Equal(t, 2, data.Result.TotalCount)
	assert.Nil(t, data.Sync)

	assert.NotNil(t, result.CompletedAt)
	assert.NotNil(t, result.ProcessingTime)
	assert.Equal(t, "htmlfetch", result.Metadata["method"])
	assert.Equal(t, "auto", result.Metadata["engine"])
	assert.Equal(t, "acme", result.Metadata["company_id"])
	assert.Empty(t, result.Error)
}

func TestSubmitFetchTaskRecordsFailure(t *testing.T) {
	cfg := managerConfig(t)
	pm := startedPoolManager(t, cfg, &fetchStub{result: &models.JobFetchResult{
		Jobs:      []models.NormalizedJob{},
		Method:    models.FetchMethodNone,
		Success:   false,
		Error:     "HTML page not accessible: connection refused",
		FetchedAt: time.Now().UTC(),
	}})
	tm := startedManager(t, cfg)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.broken.example/careers",
		CompanyID:  "broken",
	}

	require.NoError(t, tm.SubmitFetchTask(context.Background(), "proc-fail", source, pm, nil))

	result := awaitTask(t, tm, "proc-fail", models.AsyncStatusFailure)
	assert.Equal(t, "HTML page not accessible: connection refused", result.Error)
	assert.Nil(t, result.Data)
	assert.NotNil(t, result.ProcessingTime)
}

func TestSubmitFetchTaskAutoSyncsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.SyncSummary{
			Success:     true,
			SyncedCount: 2,
		})
	}))
	t.Cleanup(server.Close)

	cfg := managerConfig(t)
	cfg.Sync.Enabled = true
	cfg.Sync.Auto = true
	cfg.Sync.DefaultBaseURL = server.URL
	cfg.Sync.Secret = "test-secret"

	pm := startedPoolManager(t, cfg, &fetchStub{result: fetchedEnvelope()})
	tm := startedManager(t, cfg)
	syncClient := jobsync.NewClient(cfg)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
		CompanyID:  "acme",
	}

	require.NoError(t, tm.SubmitFetchTask(context.Background(), "proc-sync", source, pm, syncClient))

	result := awaitTask(t, tm, "proc-sync", models.AsyncStatusSuccess)

	data, ok := result.Data.(*models.AsyncFetchCompletionData)
	require.True(t, ok)
	require.NotNil(t, data.Sync)
	assert.True(t, data.Sync.Success)
	assert.Equal(t, 2, data.Sync.SyncedCount)
	assert.NotContains(t, result.Metadata, "sync_error")
}

func TestSubmitFetchTaskRequiresRunningManager(t *testing.T) {
	cfg := managerConfig(t)
	tm := NewTaskManager(cfg, nil)

	err := tm.SubmitFetchTask(context.Background(), "proc-down", &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
	}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not healthy")
}

func TestGetTaskStatusUnknownProcess(t *testing.T) {
	cfg := managerConfig(t)
	tm := startedManager(t, cfg)

	_, err := tm.GetTaskStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
