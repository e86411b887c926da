package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"careersync/internal/logging/types"
)

// BetterstackAdapter ships log entries to the Better Stack ingest API.
// Entries are buffered and sent in batches, either when the batch fills
// up or when the flush interval elapses.
type BetterstackAdapter struct {
	name       string
	config     BetterstackConfig
	httpClient *http.Client

	mu            sync.Mutex
	buffer        []betterstackEntry
	closed        bool
	healthy       bool
	lastError     error
	lastErrorTime time.Time

	stopFlush chan struct{}
	wg        sync.WaitGroup
}

// BetterstackConfig represents configuration for the Better Stack adapter
type BetterstackConfig struct {
	SourceToken   string        `yaml:"source_token"`   // Better Stack source token
	Endpoint      string        `yaml:"endpoint"`       // ingest API endpoint
	BatchSize     int           `yaml:"batch_size"`     // entries per batch
	FlushInterval time.Duration `yaml:"flush_interval"` // how often to flush a partial batch
	MaxRetries    int           `yaml:"max_retries"`    // max delivery attempts per batch
	Timeout       time.Duration `yaml:"timeout"`        // HTTP request timeout
	UserAgent     string        `yaml:"user_agent"`     // HTTP user agent
}

type betterstackEntry struct {
	Timestamp time.Time              `json:"dt"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// NewBetterstackAdapter creates a Better Stack adapter and starts its flush loop
func NewBetterstackAdapter(name string, config BetterstackConfig) (*BetterstackAdapter, error) {
	if config.SourceToken == "" {
		return nil, fmt.Errorf("source_token is required for the betterstack adapter")
	}
	if config.Endpoint == "" {
		config.Endpoint = "https://in.logs.betterstack.com"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "careersync/1.0"
	}

	adapter := &BetterstackAdapter{
		name:   name,
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		buffer:    make([]betterstackEntry, 0, config.BatchSize),
		healthy:   true,
		stopFlush: make(chan struct{}),
	}

	adapter.wg.Add(1)
	go adapter.flushLoop()

	return adapter, nil
}

// Write buffers a log entry, sending the batch when it is full
func (a *BetterstackAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	a.buffer = append(a.buffer, betterstackEntry{
		Timestamp: entry.Timestamp,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Fields:    entry.Fields,
	})
	var batch []betterstackEntry
	if len(a.buffer) >= a.config.BatchSize {
		batch = a.takeBufferLocked()
	}
	a.mu.Unlock()

	if batch != nil {
		return a.sendBatch(batch)
	}
	return nil
}

// Close flushes buffered entries and stops the flush loop
func (a *BetterstackAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.stopFlush)
	a.wg.Wait()

	err := a.Flush()
	if transport, ok := a.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return err
}

// Health reports the outcome of the most recent delivery attempt
func (a *BetterstackAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.healthy {
		return fmt.Errorf("adapter unhealthy: %v (last error at %v)", a.lastError, a.lastErrorTime)
	}
	return nil
}

// Name returns the name of the adapter
func (a *BetterstackAdapter) Name() string {
	return a.name
}

// Flush sends any buffered entries immediately
func (a *BetterstackAdapter) Flush() error {
	a.mu.Lock()
	batch := a.takeBufferLocked()
	a.mu.Unlock()

	if batch == nil {
		return nil
	}
	return a.sendBatch(batch)
}

func (a *BetterstackAdapter) takeBufferLocked() []betterstackEntry {
	if len(a.buffer) == 0 {
		return nil
	}
	batch := a.buffer
	a.buffer = make([]betterstackEntry, 0, a.config.BatchSize)
	return batch
}

// flushLoop flushes partial batches on a ticker. Delivery failures are
// recorded and surfaced through Health rather than returned here.
func (a *BetterstackAdapter) flushLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Flush()
		case <-a.stopFlush:
			return
		}
	}
}

// sendBatch delivers a batch to the ingest endpoint, retrying transient
// failures with linear backoff
func (a *BetterstackAdapter) sendBatch(batch []betterstackEntry) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal log batch: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, reqErr := http.NewRequest(http.MethodPost, a.config.Endpoint, bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("failed to create ingest request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.config.SourceToken)
		req.Header.Set("User-Agent", a.config.UserAgent)

		resp, doErr := a.httpClient.Do(req)
		if doErr != nil {
			lastErr = doErr
			continue
		}

		retryable, respErr := a.handleResponse(resp)
		if respErr == nil {
			a.recordResult(nil)
			return nil
		}
		lastErr = respErr
		if !retryable {
			break
		}
	}

	deliveryErr := fmt.Errorf("failed to deliver %d log entries: %w", len(batch), lastErr)
	a.recordResult(deliveryErr)
	return deliveryErr
}

// handleResponse drains the response body and classifies failures
func (a *BetterstackAdapter) handleResponse(resp *http.Response) (retryable bool, err error) {
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return true, fmt.Errorf("failed to read response body: %w", readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return false, fmt.Errorf("unauthorized: invalid source token")
	case http.StatusForbidden:
		return false, fmt.Errorf("forbidden: access denied")
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true, fmt.Errorf("transient error (%d): %s", resp.StatusCode, string(body))
	default:
		return false, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
}

func (a *BetterstackAdapter) recordResult(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.healthy = false
		a.lastError = err
		a.lastErrorTime = time.Now()
		return
	}
	a.healthy = true
	a.lastError = nil
}
