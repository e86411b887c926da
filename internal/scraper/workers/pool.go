package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

// Fetcher runs the strategy chain for one source configuration. It always
// returns a result envelope, even when every strategy failed.
type Fetcher interface {
	FetchJobs(ctx context.Context, cfg *models.SourceConfig) *models.JobFetchResult
}

// TaskResult carries the outcome of a fetch task back to the submitter.
type TaskResult struct {
	Result    *models.JobFetchResult
	RequestID string
	Duration  time.Duration
}

// FetchTask represents one careers-page fetch queued for the pool.
type FetchTask struct {
	ID         string
	Source     *models.SourceConfig
	ResultChan chan TaskResult
	Context    context.Context
	CreatedAt  time.Time
}

// Worker is a single fetch worker goroutine.
type Worker struct {
	ID       int
	TaskChan chan FetchTask
	QuitChan chan bool
	Pool     *WorkerPool
	logger   types.Logger
}

// WorkerPool manages the fetch worker goroutines and the task queue.
type WorkerPool struct {
	config      *config.Config
	workers     []*Worker
	taskQueue   chan FetchTask
	dispatcher  *Dispatcher
	rateLimiter *RateLimiter
	fetcher     Fetcher
	logger      types.Logger
	mu          sync.RWMutex
	running     bool
	stats       *PoolStats
}

// PoolStats tracks worker pool counters.
type PoolStats struct {
	mu                  sync.RWMutex
	tasksQueued         int64
	tasksProcessed      int64
	tasksSucceeded      int64
	tasksFailed         int64
	totalProcessingTime time.Duration
}

// PoolStatsSnapshot is a point-in-time copy of the pool counters, safe to
// hand out and marshal.
type PoolStatsSnapshot struct {
	TasksQueued         int64   `json:"tasks_queued"`
	TasksProcessed      int64   `json:"tasks_processed"`
	TasksSucceeded      int64   `json:"tasks_succeeded"`
	TasksFailed         int64   `json:"tasks_failed"`
	AverageProcessingMs float64 `json:"average_processing_ms"`
}

// NewWorkerPool creates a new worker pool around the given fetcher.
func NewWorkerPool(cfg *config.Config, fetcher Fetcher) *WorkerPool {
	logger := logging.GetGlobalLogger()

	pool := &WorkerPool{
		config:      cfg,
		taskQueue:   make(chan FetchTask, cfg.Workers.QueueSize),
		rateLimiter: NewRateLimiter(cfg),
		fetcher:     fetcher,
		logger:      logger,
		stats:       &PoolStats{},
	}

	pool.workers = make([]*Worker, cfg.Workers.PoolSize)
	for i := 0; i < cfg.Workers.PoolSize; i++ {
		pool.workers[i] = &Worker{
			ID:       i + 1,
			TaskChan: make(chan FetchTask),
			QuitChan: make(chan bool),
			Pool:     pool,
			logger:   logger.WithField("worker_id", i+1),
		}
	}

	pool.dispatcher = NewDispatcher(pool.taskQueue, pool.workers)

	logger.Info("Worker pool initialized", map[string]interface{}{
		"pool_size":  cfg.Workers.PoolSize,
		"queue_size": cfg.Workers.QueueSize,
	})
	return pool
}

// Start starts the dispatcher and all workers.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		return fmt.Errorf("worker pool is already running")
	}

	wp.dispatcher.Start()

	for _, worker := range wp.workers {
		go worker.Start()
	}

	wp.running = true
	wp.logger.Info("Worker pool started", map[string]interface{}{
		"workers": len(wp.workers),
	})
	return nil
}

// Stop stops the worker pool gracefully.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.running {
		return nil
	}

	wp.dispatcher.Stop()

	for _, worker := range wp.workers {
		worker.Stop()
	}

	close(wp.taskQueue)

	wp.running = false
	wp.logger.Info("Worker pool stopped", nil)
	return nil
}

// SubmitTask queues a fetch task and blocks until its result is available.
// Returns a rate-limit error when the domain budget or the queue is
// exhausted, so callers can map saturation to 429.
func (wp *WorkerPool) SubmitTask(ctx context.Context, source *models.SourceConfig) (*TaskResult, error) {
	if !wp.IsRunning() {
		return nil, fmt.Errorf("worker pool is not running")
	}

	domain := taskDomain(source.CareersURL)
	if !wp.rateLimiter.Allow(domain) {
		return nil, utils.NewRateLimitError(fmt.Sprintf("rate limit exceeded for domain: %s", domain))
	}

	task := FetchTask{
		ID:         utils.GenerateRequestID(),
		Source:     source,
		ResultChan: make(chan TaskResult, 1),
		Context:    ctx,
		CreatedAt:  time.Now(),
	}

	wp.stats.mu.Lock()
	wp.stats.tasksQueued++
	wp.stats.mu.Unlock()

	select {
	case wp.taskQueue <- task:
		wp.logger.Debug("Fetch task queued", map[string]interface{}{
			"task_id":    task.ID,
			"url":        source.CareersURL,
			"company_id": source.CompanyID,
		})
	case <-time.After(5 * time.Second):
		return nil, utils.NewRateLimitError("fetch queue is full")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// The pool timeout is a backstop; a per-source timeout only extends it
	// so slow strategy chains are not aborted mid-flight.
	timeout := wp.config.Workers.Timeout
	if t := source.GetTimeout(); t > timeout {
		timeout = t
	}

	select {
	case result := <-task.ResultChan:
		return &result, nil
	case <-time.After(timeout):
		return nil, utils.NewTimeoutError(fmt.Sprintf("fetch task timed out after %v", timeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsRunning returns true if the worker pool is running.
func (wp *WorkerPool) IsRunning() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.running
}

// GetStats returns a snapshot of the pool counters.
func (wp *WorkerPool) GetStats() PoolStatsSnapshot {
	wp.stats.mu.RLock()
	defer wp.stats.mu.RUnlock()

	snapshot := PoolStatsSnapshot{
		TasksQueued:    wp.stats.tasksQueued,
		TasksProcessed: wp.stats.tasksProcessed,
		TasksSucceeded: wp.stats.tasksSucceeded,
		TasksFailed:    wp.stats.tasksFailed,
	}
	if wp.stats.tasksProcessed > 0 {
		avg := wp.stats.totalProcessingTime / time.Duration(wp.stats.tasksProcessed)
		snapshot.AverageProcessingMs = float64(avg.Microseconds()) / 1000.0
	}
	return snapshot
}

// Start runs the worker loop.
func (w *Worker) Start() {
	w.logger.Debug("Worker started", nil)

	for {
		select {
		case task := <-w.TaskChan:
			w.processTask(task)
		case <-w.QuitChan:
			w.logger.Debug("Worker stopping", nil)
			return
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	w.QuitChan <- true
}

// processTask runs one fetch task and reports the result back.
func (w *Worker) processTask(task FetchTask) {
	startTime := time.Now()

	w.Pool.stats.mu.Lock()
	w.Pool.stats.tasksProcessed++
	w.Pool.stats.mu.Unlock()

	result := w.fetchTask(task)
	result.Duration = time.Since(startTime)

	w.Pool.stats.mu.Lock()
	w.Pool.stats.totalProcessingTime += result.Duration
	if result.Result.Success {
		w.Pool.stats.tasksSucceeded++
	} else {
		w.Pool.stats.tasksFailed++
	}
	w.Pool.stats.mu.Unlock()

	select {
	case task.ResultChan <- result:
		w.logger.Info("Fetch task completed", map[string]interface{}{
			"task_id":         task.ID,
			"worker_id":       w.ID,
			"processing_time": result.Duration.String(),
			"success":         result.Result.Success,
			"method":          result.Result.Method,
			"jobs":            len(result.Result.Jobs),
		})
	case <-time.After(100 * time.Millisecond):
		w.logger.Debug("Result channel timeout, submitter may have gone away", map[string]interface{}{
			"task_id":   task.ID,
			"worker_id": w.ID,
		})
	}
}

// fetchTask performs the actual fetch. Strategies handle their own retries,
// so each task runs the chain exactly once.
func (w *Worker) fetchTask(task FetchTask) TaskResult {
	domain := taskDomain(task.Source.CareersURL)

	result := w.Pool.fetcher.FetchJobs(task.Context, task.Source)

	if result.Success {
		w.Pool.rateLimiter.RecordSuccess(domain)
	} else {
		w.Pool.rateLimiter.RecordFailure(domain, result.Error)
	}

	return TaskResult{
		Result:    result,
		RequestID: task.ID,
	}
}
