package workers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/config"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

type stubFetcher struct {
	mu     sync.Mutex
	calls  int
	result *models.JobFetchResult
}

func (f *stubFetcher) FetchJobs(ctx context.Context, cfg *models.SourceConfig) *models.JobFetchResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.result
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func poolConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Workers.PoolSize = 2
	cfg.Workers.QueueSize = 8
	cfg.Workers.RateLimit = 6000
	cfg.Workers.Timeout = 5 * time.Second
	cfg.Workers.FailureThreshold = 2
	cfg.Workers.RecoveryTimeout = time.Minute
	return cfg
}

func successEnvelope() *models.JobFetchResult {
	return &models.JobFetchResult{
		Jobs: []models.NormalizedJob{
			{ID: "job-1", Title: "Backend Engineer"},
		},
		Method:     "htmlfetch",
		Success:    true,
		Message:    "Fetched 1 jobs via htmlfetch",
		FetchedAt:  time.Now().UTC(),
		TotalCount: 1,
	}
}

func failureEnvelope() *models.JobFetchResult {
	return &models.JobFetchResult{
		Jobs:      []models.NormalizedJob{},
		Method:    models.FetchMethodNone,
		Success:   false,
		Error:     "HTML page not accessible: connection refused",
		FetchedAt: time.Now().UTC(),
	}
}

func startedPool(t *testing.T, cfg *config.Config, fetcher Fetcher) *WorkerPool {
	t.Helper()
	pool := NewWorkerPool(cfg, fetcher)
	require.NoError(t, pool.Start())
	t.Cleanup(func() {
		require.NoError(t, pool.Stop())
		pool.rateLimiter.Stop()
	})
	return pool
}

func TestWorkerPoolProcessesTask(t *testing.T) {
	fetcher := &stubFetcher{result: successEnvelope()}
	pool := startedPool(t, poolConfig(t), fetcher)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
		CompanyID:  "acme",
	}

	result, err := pool.SubmitTask(context.Background(), source)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.RequestID)
	assert.True(t, result.Result.Success)
	assert.Equal(t, "htmlfetch", result.Result.Method)
	assert.Len(t, result.Result.Jobs, 1)
	assert.Equal(t, 1, fetcher.callCount())

	stats := pool.GetStats()
	assert.EqualValues(t, 1, stats.TasksQueued)
	assert.EqualValues(t, 1, stats.TasksProcessed)
	assert.EqualValues(t, 1, stats.TasksSucceeded)
	assert.EqualValues(t, 0, stats.TasksFailed)
}

func TestWorkerPoolReportsFailureEnvelope(t *testing.T) {
	fetcher := &stubFetcher{result: failureEnvelope()}
	pool := startedPool(t, poolConfig(t), fetcher)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.broken.example/careers",
		CompanyID:  "broken",
	}

	// A failed fetch is still a delivered result, not a submit error.
	result, err := pool.SubmitTask(context.Background(), source)
	require.NoError(t, err)
	assert.False(t, result.Result.Success)
	assert.Equal(t, models.FetchMethodNone, result.Result.Method)

	stats := pool.GetStats()
	assert.EqualValues(t, 1, stats.TasksFailed)
}

func TestWorkerPoolOpensBreakerAfterRepeatedFailures(t *testing.T) {
	fetcher := &stubFetcher{result: failureEnvelope()}
	pool := startedPool(t, poolConfig(t), fetcher)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.down.example/careers",
		CompanyID:  "down",
	}

	for i := 0; i < 2; i++ {
		result, err := pool.SubmitTask(context.Background(), source)
		require.NoError(t, err)
		require.False(t, result.Result.Success)
	}

	_, err := pool.SubmitTask(context.Background(), source)
	require.Error(t, err)

	var ce *utils.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusTooManyRequests, ce.Code)
}

type blockingFetcher struct {
	release chan struct{}
}

func (f *blockingFetcher) FetchJobs(ctx context.Context, cfg *models.SourceConfig) *models.JobFetchResult {
	<-f.release
	return successEnvelope()
}

func TestWorkerPoolQueueSaturation(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the queue admission window")
	}

	cfg := poolConfig(t)
	cfg.Workers.PoolSize = 1
	cfg.Workers.QueueSize = 1

	fetcher := &blockingFetcher{release: make(chan struct{})}
	pool := startedPool(t, cfg, fetcher)

	source := &models.SourceConfig{
		CareersURL: "https://jobs.busy.example/careers",
		CompanyID:  "busy",
	}

	// Occupy the worker, the dispatcher hand-off, and the queue slot.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := pool.SubmitTask(context.Background(), source)
			assert.NoError(t, err)
			if result != nil {
				assert.True(t, result.Result.Success)
			}
		}()
		time.Sleep(100 * time.Millisecond)
	}

	_, err := pool.SubmitTask(context.Background(), source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")

	var ce *utils.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusTooManyRequests, ce.Code)

	close(fetcher.release)
	wg.Wait()
}

func TestWorkerPoolRejectsWhenNotRunning(t *testing.T) {
	cfg := poolConfig(t)
	pool := NewWorkerPool(cfg, &stubFetcher{result: successEnvelope()})
	t.Cleanup(pool.rateLimiter.Stop)

	_, err := pool.SubmitTask(context.Background(), &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestPoolManagerLifecycle(t *testing.T) {
	cfg := poolConfig(t)
	fetcher := &stubFetcher{result: successEnvelope()}

	pm := NewPoolManager(cfg, fetcher)
	assert.False(t, pm.IsHealthy())

	require.NoError(t, pm.Initialize())
	assert.True(t, pm.IsHealthy())

	assert.Error(t, pm.Initialize(), "double initialization should be rejected")

	source := &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
		CompanyID:  "acme",
	}
	result, err := pm.SubmitTask(context.Background(), source)
	require.NoError(t, err)
	assert.True(t, result.Result.Success)

	stats, err := pm.GetStats()
	require.NoError(t, err)
	assert.True(t, stats.Initialized)
	assert.Equal(t, cfg.Workers.PoolSize, stats.WorkerCount)
	assert.Equal(t, cfg.Workers.QueueSize, stats.QueueCapacity)
	assert.EqualValues(t, 1, stats.Pool.TasksProcessed)

	domainStats, err := pm.GetDomainStats("jobs.acme.example")
	require.NoError(t, err)
	assert.EqualValues(t, 1, domainStats["requests"])

	require.NoError(t, pm.Shutdown())
	assert.False(t, pm.IsHealthy())

	_, err = pm.SubmitTask(context.Background(), source)
	assert.Error(t, err)

	_, err = pm.GetStats()
	assert.Error(t, err)
}
