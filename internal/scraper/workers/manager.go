package workers

import (
	"context"
	"fmt"
	"sync"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/pkg/models"
)

// PoolManager manages the worker pool lifecycle.
type PoolManager struct {
	config      *config.Config
	pool        *WorkerPool
	fetcher     Fetcher
	logger      types.Logger
	mu          sync.RWMutex
	initialized bool
}

// PoolManagerStats aggregates pool and rate limiter statistics.
type PoolManagerStats struct {
	Initialized      bool                              `json:"initialized"`
	Pool             PoolStatsSnapshot                 `json:"pool"`
	RateLimiterStats map[string]map[string]interface{} `json:"rate_limiter_stats"`
	WorkerCount      int                               `json:"worker_count"`
	QueueCapacity    int                               `json:"queue_capacity"`
}

// NewPoolManager creates a new worker pool manager.
func NewPoolManager(cfg *config.Config, fetcher Fetcher) *PoolManager {
	return &PoolManager{
		config:  cfg,
		fetcher: fetcher,
		logger:  logging.GetGlobalLogger().WithField("component", "pool_manager"),
	}
}

// Initialize creates and starts the worker pool.
func (pm *PoolManager) Initialize() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.initialized {
		return fmt.Errorf("worker pool already initialized")
	}

	pm.pool = NewWorkerPool(pm.config, pm.fetcher)

	if err := pm.pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	pm.initialized = true
	pm.logger.Info("Worker pool manager initialized", nil)
	return nil
}

// Shutdown gracefully shuts down the worker pool.
func (pm *PoolManager) Shutdown() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.initialized || pm.pool == nil {
		return nil
	}

	if err := pm.pool.Stop(); err != nil {
		pm.logger.Error("Error stopping worker pool", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	pm.pool.rateLimiter.Stop()

	pm.initialized = false
	pm.logger.Info("Worker pool shutdown complete", nil)
	return nil
}

// SubmitTask submits a fetch task to the worker pool.
func (pm *PoolManager) SubmitTask(ctx context.Context, source *models.SourceConfig) (*TaskResult, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if !pm.initialized || pm.pool == nil {
		return nil, fmt.Errorf("worker pool not initialized")
	}

	return pm.pool.SubmitTask(ctx, source)
}

// GetStats returns worker pool statistics.
func (pm *PoolManager) GetStats() (*PoolManagerStats, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if !pm.initialized || pm.pool == nil {
		return nil, fmt.Errorf("worker pool not initialized")
	}

	return &PoolManagerStats{
		Initialized:      pm.initialized,
		Pool:             pm.pool.GetStats(),
		RateLimiterStats: pm.pool.rateLimiter.GetAllStats(),
		WorkerCount:      len(pm.pool.workers),
		QueueCapacity:    pm.config.Workers.QueueSize,
	}, nil
}

// IsHealthy returns true if the worker pool is healthy.
func (pm *PoolManager) IsHealthy() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return pm.initialized && pm.pool != nil && pm.pool.IsRunning()
}

// GetDomainStats returns rate limiter statistics for a specific domain.
func (pm *PoolManager) GetDomainStats(domain string) (map[string]interface{}, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if !pm.initialized || pm.pool == nil {
		return nil, fmt.Errorf("worker pool not initialized")
	}

	return pm.pool.rateLimiter.GetDomainStats(domain), nil
}
