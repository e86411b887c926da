package routes

import (
	"net/http"
	"time"

	"careersync/internal/api/handlers"
	"careersync/internal/api/middleware"
	"careersync/internal/background"
	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/scraper"
	"careersync/internal/scraper/workers"
	jobsync "careersync/internal/sync"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, orch *scraper.Orchestrator, poolManager *workers.PoolManager, taskManager background.TaskManager, syncClient *jobsync.Client) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	// Use selective timeout: 30s for most endpoints, 5 minutes for fetch/sync
	// endpoints that may ride a full browser strategy chain
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, 5*time.Minute))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(poolManager, taskManager))
		health.GET("/live", handlers.LivenessHandler)
		health.GET("/workers", handlers.WorkerHealthHandler(poolManager))

		// Logging system monitoring
		health.GET("/logging", func(c echo.Context) error {
			logger := logging.GetGlobalLogger()
			logger.Info("Logging health check requested", map[string]interface{}{
				"request_id": c.Response().Header().Get("X-Request-ID"),
				"test_log":   "This log should appear in Betterstack if configured correctly",
			})

			return c.JSON(http.StatusOK, map[string]interface{}{
				"status":   "ok",
				"message":  "Logging test completed - check your Betterstack dashboard",
				"adapters": "Logging system is active",
			})
		})
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(orch, poolManager, taskManager))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		// Job fetching routes
		fetch := v1.Group("/fetch")
		{
			fetch.POST("", handlers.FetchHandler(cfg, poolManager))
			fetch.POST("/async", handlers.AsyncFetchHandler(cfg, taskManager, poolManager, syncClient))
			fetch.GET("/status/:processId", handlers.TaskStatusHandler(taskManager))
		}

		// Sync delivery route
		v1.POST("/sync", handlers.SyncHandler(cfg, poolManager, syncClient))

		// Worker monitoring routes
		workers := v1.Group("/workers")
		{
			workers.GET("/stats", handlers.WorkerStatsHandler(poolManager))
			workers.GET("/status", handlers.DetailedWorkerStatusHandler(poolManager))
		}

		// Domain-specific routes
		domains := v1.Group("/domains")
		{
			domains.GET("/:domain/stats", handlers.DomainStatsHandler(poolManager))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": "CareerSync Job Fetcher",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
