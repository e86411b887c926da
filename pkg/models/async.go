package models

import (
	"time"
)

// AsyncStatus represents the status of an async operation
type AsyncStatus string

const (
	AsyncStatusAccepted   AsyncStatus = "ACCEPTED"
	AsyncStatusProcessing AsyncStatus = "PROCESSING"
	AsyncStatusSuccess    AsyncStatus = "SUCCESS"
	AsyncStatusFailure    AsyncStatus = "FAILURE"
)

// AsyncFetchResponse is the immediate response from the async fetch endpoint.
type AsyncFetchResponse struct {
	ProcessID string      `json:"processId"`
	Status    AsyncStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// AsyncTaskStatusResponse is returned by task status queries.
type AsyncTaskStatusResponse struct {
	ProcessID      string                 `json:"processId"`
	Status         AsyncStatus            `json:"status"`
	Data           interface{}            `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration         `json:"processingTime,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// AsyncFetchCompletionData carries the outcome of a finished fetch task.
type AsyncFetchCompletionData struct {
	Result *JobFetchResult `json:"result,omitempty"`
	Sync   *SyncSummary    `json:"sync,omitempty"`
}

// AsyncErrorResponse represents an error response for async operations
type AsyncErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	ProcessID string    `json:"processId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateAsyncFetchResponse creates the accepted response for a queued fetch.
func CreateAsyncFetchResponse(processID string) *AsyncFetchResponse {
	return &AsyncFetchResponse{
		ProcessID: processID,
		Status:    AsyncStatusAccepted,
		Message:   "Fetch request accepted for background processing",
		Timestamp: time.Now(),
	}
}

// CreateAsyncErrorResponse creates an error response for async operations
func CreateAsyncErrorResponse(errCode, message string, processID ...string) *AsyncErrorResponse {
	response := &AsyncErrorResponse{
		Error:     errCode,
		Message:   message,
		Timestamp: time.Now(),
	}
	if len(processID) > 0 && processID[0] != "" {
		response.ProcessID = processID[0]
	}
	return response
}

// IsCompleted checks if the async task has finished, successfully or not.
func (r *AsyncTaskStatusResponse) IsCompleted() bool {
	return r.Status == AsyncStatusSuccess || r.Status == AsyncStatusFailure
}

// IsSuccessful checks if the async task completed successfully
func (r *AsyncTaskStatusResponse) IsSuccessful() bool {
	return r.Status == AsyncStatusSuccess
}
