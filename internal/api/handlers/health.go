package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"careersync/internal/background"
	"careersync/internal/logging"
	"careersync/internal/observability"
	"careersync/internal/scraper"
	"careersync/internal/scraper/workers"
	"careersync/pkg/models"
)

var startTime = time.Now()

const serviceVersion = "1.0.0" // TODO: Get from build info

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	requestID := requestIDFrom(c)
	logger := logging.GetGlobalLogger()

	logger.Debug("Health check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   serviceVersion,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler handles readiness probe requests. The service is ready
// once the worker pool and task manager are accepting work.
func ReadinessHandler(poolManager *workers.PoolManager, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.GetGlobalLogger()

		logger.Debug("Readiness check requested", map[string]interface{}{"request_id": requestID})

		checks := map[string]string{
			"api":     "ok",
			"workers": "ok",
			"tasks":   "ok",
		}
		ready := true

		if !poolManager.IsHealthy() {
			checks["workers"] = "unavailable"
			ready = false
		}
		if !taskManager.IsHealthy() {
			checks["tasks"] = "unavailable"
			ready = false
		}

		status := "ready"
		httpStatus := http.StatusOK
		if !ready {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		return c.JSON(httpStatus, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   serviceVersion,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	requestID := requestIDFrom(c)
	logger := logging.GetGlobalLogger()

	logger.Debug("Liveness check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   serviceVersion,
		Uptime:    time.Since(startTime),
	}

	return c.JSON(http.StatusOK, response)
}

// StatusHandler provides detailed service status: fetch counters, strategy
// health and the state of the worker and task subsystems.
func StatusHandler(orch *scraper.Orchestrator, poolManager *workers.PoolManager, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.GetGlobalLogger()

		logger.Debug("Status check requested", map[string]interface{}{"request_id": requestID})

		workersHealthy := poolManager.IsHealthy()
		tasksHealthy := taskManager.IsHealthy()

		status := "operational"
		if !workersHealthy || !tasksHealthy {
			status = "degraded"
		}

		response := map[string]interface{}{
			"status":     status,
			"timestamp":  time.Now(),
			"version":    serviceVersion,
			"uptime":     time.Since(startTime).String(),
			"stats":      observability.Global().GetSnapshot(),
			"strategies": orch.StrategyHealth(),
			"checks": map[string]string{
				"workers": healthLabel(workersHealthy),
				"tasks":   healthLabel(tasksHealthy),
			},
		}

		return c.JSON(http.StatusOK, response)
	}
}

func healthLabel(healthy bool) string {
	if healthy {
		return "operational"
	}
	return "unavailable"
}
