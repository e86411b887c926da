package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careersync/internal/api/routes"
	"careersync/internal/background"
	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/scraper"
	"careersync/internal/scraper/workers"
	jobsync "careersync/internal/sync"
	"careersync/pkg/utils"

	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting CareerSync Job Fetcher")

	// Connect to Redis for the task ledger; fall back to in-memory storage
	// when Redis is unreachable so the service still comes up
	var taskStore background.TaskStore
	redisClient := utils.NewRedisClient(cfg)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	if err := redisClient.Ping(pingCtx); err != nil {
		logger.Warn("Redis unavailable, using in-memory task store", map[string]interface{}{
			"error": err.Error(),
		})
		redisClient.Close()
		redisClient = nil
	} else {
		taskStore = background.NewRedisTaskStore(redisClient)
		logger.Info("Connected to Redis task store", map[string]interface{}{
			"url": cfg.Redis.URL,
		})
	}
	pingCancel()

	// Initialize the fetch orchestrator
	orch, err := scraper.NewOrchestrator(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize fetch orchestrator", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize worker pool
	poolManager := workers.NewPoolManager(cfg, orch)
	if err := poolManager.Initialize(); err != nil {
		logger.Fatal("Failed to start worker pool", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer poolManager.Shutdown()

	// Initialize background task manager
	logger.Info("Initializing background task manager")
	taskManager := background.NewTaskManager(cfg, taskStore)
	ctx := context.Background()
	if err := taskManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize the sync delivery client
	syncClient := jobsync.NewClient(cfg)
	if syncClient.IsConfigured() {
		logger.Info("Sync delivery enabled", map[string]interface{}{
			"auto": cfg.Sync.Auto,
		})
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Setup routes
	routes.SetupRoutes(e, cfg, orch, poolManager, taskManager, syncClient)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		// Create a shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop task manager first (most important for background tasks)
		logger.Info("Stopping background task manager...")
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping task manager", map[string]interface{}{
				"error": err.Error(),
			})
		}

		// Stop worker pool
		logger.Info("Stopping worker pool...")
		if err := poolManager.Shutdown(); err != nil {
			logger.Error("Error stopping worker pool", map[string]interface{}{
				"error": err.Error(),
			})
		}

		// Release fetch strategy resources (browser instances)
		orch.Cleanup()

		// Close Redis
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Error("Error closing Redis client", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		// Shutdown Echo server
		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address": address,
	})

	if err := e.Start(address); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed to start", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
