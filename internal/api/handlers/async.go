package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"careersync/internal/background"
	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/scraper/workers"
	jobsync "careersync/internal/sync"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

// AsyncFetchHandler handles the POST /api/v1/fetch/async endpoint. The
// fetch runs in the background; the response carries a process ID for
// status polling.
func AsyncFetchHandler(cfg *config.Config, taskManager background.TaskManager, poolManager *workers.PoolManager, syncClient *jobsync.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.GetGlobalLogger()

		logger.Info("Processing async fetch request", map[string]interface{}{
			"request_id": requestID,
			"endpoint":   "/api/v1/fetch/async",
			"method":     "POST",
		})

		// Parse and validate request body
		var req models.FetchRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to parse request body", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"invalid_request",
				"Invalid request body: "+err.Error(),
			))
		}

		if err := validate.Struct(&req); err != nil {
			logger.Error("Request validation failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"validation_failed",
				"Request validation failed: "+err.Error(),
			))
		}

		// Generate process ID for background task
		processID := utils.GenerateProcessID()

		logger.Info("Submitting fetch task for background processing", map[string]interface{}{
			"request_id": requestID,
			"process_id": processID,
			"url":        req.CareersURL,
			"company_id": req.CompanyID,
		})

		// Submit task to background task manager
		source := req.ToSourceConfig()
		ctx := c.Request().Context()
		if err := taskManager.SubmitFetchTask(ctx, processID, &source, poolManager, syncClient); err != nil {
			logger.Error("Failed to submit background fetch task", map[string]interface{}{
				"request_id": requestID,
				"process_id": processID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, models.CreateAsyncErrorResponse(
				"task_submission_failed",
				fmt.Sprintf("Failed to submit fetch task: %v", err),
				processID,
			))
		}

		// Return immediate response with process ID
		response := models.CreateAsyncFetchResponse(processID)

		logger.Info("Fetch task submitted successfully for background processing", map[string]interface{}{
			"request_id": requestID,
			"process_id": processID,
			"company_id": req.CompanyID,
		})

		return c.JSON(http.StatusAccepted, response)
	}
}

// TaskStatusHandler handles GET /api/v1/fetch/status/:processId for polling
// background task state.
func TaskStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.GetGlobalLogger()

		processID := c.Param("processId")
		if processID == "" {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"missing_process_id",
				"Process ID is required",
			))
		}

		logger.Debug("Task status requested", map[string]interface{}{
			"request_id": requestID,
			"process_id": processID,
		})

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			if errors.Is(err, background.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, models.CreateAsyncErrorResponse(
					"task_not_found",
					fmt.Sprintf("No task found for process ID %s", processID),
					processID,
				))
			}
			logger.Error("Failed to look up task", map[string]interface{}{
				"request_id": requestID,
				"process_id": processID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, models.CreateAsyncErrorResponse(
				"task_lookup_failed",
				fmt.Sprintf("Failed to look up task: %v", err),
				processID,
			))
		}

		response := models.AsyncTaskStatusResponse{
			ProcessID:      result.ProcessID,
			Status:         result.Status,
			Data:           result.Data,
			Error:          result.Error,
			CreatedAt:      result.CreatedAt,
			CompletedAt:    result.CompletedAt,
			ProcessingTime: result.ProcessingTime,
			Metadata:       result.Metadata,
		}

		return c.JSON(http.StatusOK, response)
	}
}
