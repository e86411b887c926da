package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/internal/observability"
	"careersync/internal/scraper/workers"
	jobsync "careersync/internal/sync"
	"careersync/pkg/models"
)

// Task manager configuration constants
const (
	// Default configuration values
	DefaultMaxWorkers   = 10
	DefaultMaxQueueSize = 100

	// Minimum configuration values to prevent misconfiguration
	MinWorkers   = 1
	MinQueueSize = 1

	// Maximum configuration values for safety
	MaxWorkers   = 1000
	MaxQueueSize = 10000
)

// TaskManager defines the interface for managing background tasks
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully
	Stop(ctx context.Context) error

	// SubmitFetchTask submits a fetch task for background processing
	SubmitFetchTask(ctx context.Context, processID string, source *models.SourceConfig, poolManager *workers.PoolManager, syncClient *jobsync.Client) error

	// GetTaskResult retrieves the result of a task by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a task by process ID
	GetTaskStatus(ctx context.Context, processID string) (models.AsyncStatus, error)

	// ListTasks lists all active tasks (for monitoring)
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements the TaskManager interface
type TaskManagerImpl struct {
	config       *config.Config
	store        TaskStore
	logger       *TaskCompletionLogger
	appLogger    types.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	running      bool
	taskChan     chan *TaskExecution
	maxWorkers   int
	maxQueueSize int
}

// TaskExecution represents a task execution context
type TaskExecution struct {
	ProcessID   string
	Type        TaskType
	Context     context.Context
	Cancel      context.CancelFunc
	ExecuteFunc func(context.Context) (*TaskResult, error)
}

// validateTaskManagerConfig validates and returns safe configuration values
func validateTaskManagerConfig(cfg *config.Config) (maxWorkers, maxQueueSize int, err error) {
	// Validate and set worker pool size
	maxWorkers = cfg.BackgroundTasks.MaxConcurrentTasks
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	} else if maxWorkers < MinWorkers {
		return 0, 0, fmt.Errorf("background worker count (%d) is below minimum (%d)", maxWorkers, MinWorkers)
	} else if maxWorkers > MaxWorkers {
		return 0, 0, fmt.Errorf("background worker count (%d) exceeds maximum (%d)", maxWorkers, MaxWorkers)
	}

	// Validate and set queue size
	maxQueueSize = cfg.Workers.QueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	} else if maxQueueSize < MinQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) is below minimum (%d)", maxQueueSize, MinQueueSize)
	} else if maxQueueSize > MaxQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) exceeds maximum (%d)", maxQueueSize, MaxQueueSize)
	}

	return maxWorkers, maxQueueSize, nil
}

// NewTaskManager creates a new task manager backed by the given store.
// A nil store falls back to the in-memory ledger.
func NewTaskManager(cfg *config.Config, store TaskStore) *TaskManagerImpl {
	logger := logging.GetGlobalLogger()

	// Validate configuration and get safe values
	maxWorkers, maxQueueSize, err := validateTaskManagerConfig(cfg)
	if err != nil {
		logger.Warn("Task manager configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		maxWorkers = DefaultMaxWorkers
		maxQueueSize = DefaultMaxQueueSize
	}

	if store == nil {
		store = NewInMemoryTaskStore()
	}

	logger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_workers":    maxWorkers,
		"max_queue_size": maxQueueSize,
		"using_defaults": err != nil,
	})

	return &TaskManagerImpl{
		config:       cfg,
		store:        store,
		logger:       NewTaskCompletionLogger(),
		appLogger:    logger,
		maxWorkers:   maxWorkers,
		maxQueueSize: maxQueueSize,
		taskChan:     make(chan *TaskExecution, maxQueueSize),
	}
}

// Start starts the task manager
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.running = true

	// Start worker goroutines
	for i := 0; i < tm.maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	// Start cleanup goroutine
	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started", map[string]interface{}{
		"max_workers": tm.maxWorkers,
	})
	return nil
}

// Stop stops the task manager gracefully
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.running {
		return nil
	}

	tm.appLogger.Info("Stopping task manager...", map[string]interface{}{})

	// Cancel context to signal workers to stop
	tm.cancel()

	// Close task channel
	close(tm.taskChan)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully", map[string]interface{}{})
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out", map[string]interface{}{})
	}

	tm.running = false
	return nil
}

// SubmitFetchTask submits a fetch task for background processing
func (tm *TaskManagerImpl) SubmitFetchTask(ctx context.Context, processID string, source *models.SourceConfig, poolManager *workers.PoolManager, syncClient *jobsync.Client) error {
	if !tm.IsHealthy() {
		return fmt.Errorf("task manager is not healthy")
	}

	// Create task result
	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeFetch,
		Status:    models.AsyncStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"url":        source.CareersURL,
			"company_id": source.CompanyID,
			"engine":     engineLabel(source),
		},
	}

	// Store initial task result
	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	// Log task acceptance
	tm.logger.LogTaskAccepted(processID, TaskTypeFetch)

	// Create task execution with derived context for isolation. The
	// configured task timeout bounds runaway fetches.
	var (
		taskCtx    context.Context
		cancelFunc context.CancelFunc
	)
	if tm.config.BackgroundTasks.TaskTimeout > 0 {
		taskCtx, cancelFunc = context.WithTimeout(tm.ctx, tm.config.BackgroundTasks.TaskTimeout)
	} else {
		taskCtx, cancelFunc = context.WithCancel(tm.ctx)
	}

	execution := &TaskExecution{
		ProcessID: processID,
		Type:      TaskTypeFetch,
		Context:   taskCtx,
		Cancel:    cancelFunc,
		ExecuteFunc: func(execCtx context.Context) (*TaskResult, error) {
			return tm.executeFetchTask(execCtx, processID, source, poolManager, syncClient)
		},
	}

	// Submit to worker pool
	select {
	case tm.taskChan <- execution:
		return nil
	case <-ctx.Done():
		cancelFunc()
		return ctx.Err()
	default:
		cancelFunc()
		return fmt.Errorf("task queue is full")
	}
}

// GetTaskResult retrieves the result of a task by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a task by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (models.AsyncStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists all active tasks (for monitoring)
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// worker processes tasks from the task channel
func (tm *TaskManagerImpl) worker(workerID int) {
	defer tm.wg.Done()

	tm.appLogger.Info("Task worker started", map[string]interface{}{
		"worker_id": workerID,
	})

	for {
		select {
		case <-tm.ctx.Done():
			tm.appLogger.Info("Task worker stopping", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		case task, ok := <-tm.taskChan:
			if !ok {
				tm.appLogger.Info("Task channel closed, worker stopping", map[string]interface{}{
					"worker_id": workerID,
				})
				return
			}

			tm.processTask(workerID, task)
		}
	}
}

// processTask processes a single task
func (tm *TaskManagerImpl) processTask(workerID int, task *TaskExecution) {
	startTime := time.Now()

	tm.appLogger.Info("Processing task", map[string]interface{}{
		"worker_id":  workerID,
		"process_id": task.ProcessID,
		"task_type":  task.Type,
	})

	// Update task status to processing
	if err := tm.updateTaskStatus(task.ProcessID, models.AsyncStatusProcessing); err != nil {
		tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Log task start
	tm.logger.LogTaskStart(task.ProcessID, task.Type)

	// Execute the task
	result, err := task.ExecuteFunc(task.Context)
	processingTime := time.Since(startTime)

	if err != nil {
		// Task failed
		tm.appLogger.Error("Task execution failed", map[string]interface{}{
			"worker_id":       workerID,
			"process_id":      task.ProcessID,
			"task_type":       task.Type,
			"processing_time": processingTime,
			"error":           err.Error(),
		})

		// Retrieve existing task result to preserve original CreatedAt
		existingResult, getErr := tm.store.Get(task.Context, task.ProcessID)
		if getErr != nil {
			tm.appLogger.Error("Failed to retrieve existing task result for failure update", map[string]interface{}{
				"error": getErr.Error(),
			})
			result = &TaskResult{
				ProcessID:      task.ProcessID,
				Type:           task.Type,
				Status:         models.AsyncStatusFailure,
				Error:          err.Error(),
				CreatedAt:      time.Now(),
				ProcessingTime: &processingTime,
			}
		} else {
			existingResult.Status = models.AsyncStatusFailure
			existingResult.Error = err.Error()
			existingResult.ProcessingTime = &processingTime
			result = existingResult
		}

		tm.logger.LogTaskError(task.ProcessID, task.Type, err)
	} else {
		// Task succeeded
		tm.appLogger.Info("Task execution completed successfully", map[string]interface{}{
			"worker_id":       workerID,
			"process_id":      task.ProcessID,
			"task_type":       task.Type,
			"processing_time": processingTime,
		})

		result.Status = models.AsyncStatusSuccess
		result.ProcessingTime = &processingTime
		completedAt := time.Now()
		result.CompletedAt = &completedAt

		tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
	}

	// Store the final result
	if err := tm.store.Update(task.Context, result); err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Log structured completion to stdout
	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Cancel the task context to prevent context leaks
	if task.Cancel != nil {
		task.Cancel()
	}
}

// updateTaskStatus updates the status of a task
func (tm *TaskManagerImpl) updateTaskStatus(processID string, status models.AsyncStatus) error {
	result, err := tm.store.Get(context.Background(), processID)
	if err != nil {
		return err
	}

	result.Status = status
	return tm.store.Update(context.Background(), result)
}

// cleanupRoutine periodically cleans up old task results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	interval := tm.config.BackgroundTasks.CleanupInterval
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	maxAge := tm.config.BackgroundTasks.MaxTaskAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(context.Background(), maxAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// executeFetchTask executes a fetch task in the background
func (tm *TaskManagerImpl) executeFetchTask(ctx context.Context, processID string, source *models.SourceConfig, poolManager *workers.PoolManager, syncClient *jobsync.Client) (*TaskResult, error) {
	// Retrieve the existing task result to preserve original CreatedAt
	existingResult, err := tm.store.Get(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve existing task result: %w", err)
	}

	// Execute the fetch through the shared worker pool
	poolResult, err := poolManager.SubmitTask(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to submit fetch task: %w", err)
	}

	envelope := poolResult.Result
	if envelope == nil {
		return nil, fmt.Errorf("fetch completed but no result was returned")
	}

	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "no strategy could handle the source configuration"
		}
		return nil, errors.New(msg)
	}

	data := &models.AsyncFetchCompletionData{
		Result: envelope,
	}

	// Deliver the batch downstream when auto-sync is on. A sync failure
	// does not fail the task; the jobs were fetched.
	if tm.config.Sync.Auto && syncClient != nil && syncClient.IsConfigured() && len(envelope.Jobs) > 0 {
		summary, syncErr := syncClient.SyncJobs(ctx, envelope.Jobs, source.GetSource(), source.APIBaseURL)
		observability.Global().RecordSync(summary, syncErr)
		if syncErr != nil {
			tm.appLogger.Warn("Auto-sync failed for fetched batch", map[string]interface{}{
				"process_id": processID,
				"company_id": source.CompanyID,
				"error":      syncErr.Error(),
			})
			existingResult.Metadata["sync_error"] = syncErr.Error()
		} else {
			data.Sync = summary
		}
	}

	// Update the existing task result with success data
	existingResult.Status = models.AsyncStatusSuccess
	existingResult.Data = data
	existingResult.Metadata["method"] = envelope.Method
	existingResult.Metadata["total_count"] = envelope.TotalCount

	return existingResult, nil
}

// engineLabel names the fetch engine for task metadata
func engineLabel(source *models.SourceConfig) string {
	engine := source.GetEngine()
	if engine == "" {
		return "auto"
	}
	return engine
}
