package models

import "time"

// FetchResponse is the response from a synchronous fetch request.
type FetchResponse struct {
	Success        bool            `json:"success"`
	Result         *JobFetchResult `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	ProcessingTime time.Duration   `json:"processing_time"`
	RequestID      string          `json:"request_id"`
}

// SyncSummary is the downstream consumer's accounting of one delivered
// batch of normalized jobs.
type SyncSummary struct {
	Success      bool     `json:"success"`
	SyncedCount  int      `json:"synced_count"`
	SkippedCount int      `json:"skipped_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// SyncResponse is the response from a fetch-then-deliver request.
type SyncResponse struct {
	Success        bool            `json:"success"`
	Result         *JobFetchResult `json:"result,omitempty"`
	Sync           *SyncSummary    `json:"sync,omitempty"`
	Error          string          `json:"error,omitempty"`
	ProcessingTime time.Duration   `json:"processing_time"`
	RequestID      string          `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
