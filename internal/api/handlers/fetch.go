package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/scraper/workers"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

var validate = validator.New()

// requestIDFrom returns the middleware-assigned request ID, generating one
// for requests that bypassed the middleware chain.
func requestIDFrom(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

// fetchErrorStatus maps pipeline errors to an HTTP status and a stable
// error code for the response body.
func fetchErrorStatus(err error) (int, string) {
	var ce *utils.CustomError
	if errors.As(err, &ce) {
		switch ce.Code {
		case http.StatusTooManyRequests:
			return ce.Code, "rate_limited"
		case http.StatusRequestTimeout:
			return ce.Code, "fetch_timeout"
		default:
			return ce.Code, "fetch_failed"
		}
	}
	return http.StatusInternalServerError, "fetch_failed"
}

// FetchHandler handles synchronous job fetch requests using the worker pool
func FetchHandler(cfg *config.Config, poolManager *workers.PoolManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := requestIDFrom(c)
		logger := logging.GetGlobalLogger()

		logger.Info("Fetch request received", map[string]interface{}{
			"request_id": requestID,
		})

		// Parse request body
		var req models.FetchRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to bind fetch request", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		// Validate request
		if err := validate.Struct(&req); err != nil {
			logger.Error("Fetch request validation failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		logger.Info("Processing fetch request", map[string]interface{}{
			"request_id": requestID,
			"url":        req.CareersURL,
			"company_id": req.CompanyID,
		})

		// Submit the fetch to the worker pool and wait for the envelope
		source := req.ToSourceConfig()
		ctx := c.Request().Context()
		taskResult, err := poolManager.SubmitTask(ctx, &source)
		if err != nil {
			status, code := fetchErrorStatus(err)
			logger.Error("Failed to run fetch task", map[string]interface{}{
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

		// An unsuccessful envelope is still a completed fetch; the outcome
		// rides in the body, not the HTTP status.
		result := taskResult.Result
		response := models.FetchResponse{
			Success:        result.Success,
			Result:         result,
			Error:          result.Error,
			ProcessingTime: time.Since(startTime),
			RequestID:      requestID,
		}

		if result.Success {
			logger.Info("Fetch request completed", map[string]interface{}{
				"request_id":      requestID,
				"company_id":      req.CompanyID,
				"method":          result.Method,
				"jobs":            result.TotalCount,
				"processing_time": time.Since(startTime),
			})
		} else {
			logger.Warn("Fetch request yielded no jobs", map[string]interface{}{
				"request_id": requestID,
				"company_id": req.CompanyID,
				"error":      result.Error,
			})
		}

		return c.JSON(http.StatusOK, response)
	}
}
