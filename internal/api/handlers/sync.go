package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/observability"
	"careersync/internal/scraper/workers"
	jobsync "careersync/internal/sync"
	"careersync/pkg/models"
)

// SyncHandler handles POST /api/v1/sync: fetch a careers page and deliver
// the normalized batch downstream in one request.
func SyncHandler(cfg *config.Config, poolManager *workers.PoolManager, syncClient *jobsync.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := requestIDFrom(c)
		logger := logging.GetGlobalLogger()

		logger.Info("Sync request received", map[string]interface{}{
			"request_id": requestID,
		})

		var req models.FetchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if !syncClient.IsConfigured() {
			return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:     "sync_disabled",
				Message:   "Sync delivery is disabled",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		// Fetch first
		source := req.ToSourceConfig()
		ctx := c.Request().Context()
		taskResult, err := poolManager.SubmitTask(ctx, &source)
		if err != nil {
			status, code := fetchErrorStatus(err)
			logger.Error("Failed to run fetch for sync request", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(status, models.ErrorResponse{
				Error:     code,
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		result := taskResult.Result
		if !result.Success {
			logger.Warn("Fetch failed, nothing to sync", map[string]interface{}{
				"request_id": requestID,
				"company_id": req.CompanyID,
				"error":      result.Error,
			})
			return c.JSON(http.StatusOK, models.SyncResponse{
				Success:        false,
				Result:         result,
				Error:          result.Error,
				ProcessingTime: time.Since(startTime),
				RequestID:      requestID,
			})
		}

		// An empty successful fetch is not delivered; there is nothing for
		// the consumer to upsert.
		if len(result.Jobs) == 0 {
			return c.JSON(http.StatusOK, models.SyncResponse{
				Success:        true,
				Result:         result,
				ProcessingTime: time.Since(startTime),
				RequestID:      requestID,
			})
		}

		// Then deliver
		summary, syncErr := syncClient.SyncJobs(ctx, result.Jobs, source.GetSource(), source.APIBaseURL)
		observability.Global().RecordSync(summary, syncErr)
		if syncErr != nil {
			logger.Error("Downstream delivery failed", map[string]interface{}{
				"request_id": requestID,
				"company_id": req.CompanyID,
				"jobs":       len(result.Jobs),
				"error":      syncErr.Error(),
			})
			return c.JSON(http.StatusBadGateway, models.SyncResponse{
				Success:        false,
				Result:         result,
				Error:          syncErr.Error(),
				ProcessingTime: time.Since(startTime),
				RequestID:      requestID,
			})
		}

		logger.Info("Sync request completed", map[string]interface{}{
			"request_id":      requestID,
			"company_id":      req.CompanyID,
			"jobs":            len(result.Jobs),
			"synced":          summary.SyncedCount,
			"skipped":         summary.SkippedCount,
			"processing_time": time.Since(startTime),
		})

		return c.JSON(http.StatusOK, models.SyncResponse{
			Success:        true,
			Result:         result,
			Sync:           summary,
			ProcessingTime: time.Since(startTime),
			RequestID:      requestID,
		})
	}
}
