package sync

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

// Request signing headers. The signature is an HMAC-SHA256 over
// "<timestamp>.<body>" keyed with the shared sync secret, hex encoded.
const (
	HeaderSignature = "X-Careersync-Signature"
	HeaderTimestamp = "X-Careersync-Timestamp"
)

// payload is the JSON body delivered to the downstream consumer.
type payload struct {
	Source     models.JobSource       `json:"source"`
	Jobs       []models.NormalizedJob `json:"jobs"`
	TotalCount int                    `json:"total_count"`
	SyncedAt   time.Time              `json:"synced_at"`
}

// Client delivers normalized job batches to the configured consumer
// endpoint.
type Client struct {
	config     *config.Config
	client     *http.Client
	retryDelay time.Duration
	logger     types.Logger
}

// NewClient creates a sync client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		config:     cfg,
		client:     &http.Client{Timeout: cfg.Sync.Timeout},
		retryDelay: time.Second,
		logger:     logging.GetGlobalLogger().WithField("component", "sync"),
	}
}

// IsConfigured reports whether deliveries can be attempted at all.
// Individual requests may still supply their own base URL.
func (c *Client) IsConfigured() bool {
	return c.config.Sync.Enabled
}

// SyncJobs POSTs the batch to the consumer endpoint and returns its
// accounting. baseURL overrides the configured default destination when
// non-empty. Server errors are retried with linear backoff; client errors
// are not.
func (c *Client) SyncJobs(ctx context.Context, jobs []models.NormalizedJob, source models.JobSource, baseURL string) (*models.SyncSummary, error) {
	if !c.config.Sync.Enabled {
		return nil, utils.NewSyncError("sync delivery is disabled")
	}

	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = strings.TrimSpace(c.config.Sync.DefaultBaseURL)
	}
	if base == "" {
		return nil, utils.NewSyncError("no sync destination configured")
	}

	endpoint := strings.TrimRight(base, "/") + c.config.Sync.Path

	body, err := json.Marshal(payload{
		Source:     source,
		Jobs:       jobs,
		TotalCount: len(jobs),
		SyncedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync payload: %w", err)
	}

	maxRetries := c.config.Sync.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		summary, retryable, err := c.deliver(ctx, endpoint, body)
		if err == nil {
			c.logger.Info("Sync batch delivered", map[string]interface{}{
				"endpoint": endpoint,
				"jobs":     len(jobs),
				"synced":   summary.SyncedCount,
				"skipped":  summary.SkippedCount,
				"errors":   summary.ErrorCount,
			})
			return summary, nil
		}

		lastErr = err
		if !retryable {
			break
		}

		c.logger.Warn("Sync delivery attempt failed", map[string]interface{}{
			"endpoint": endpoint,
			"attempt":  attempt,
			"error":    err.Error(),
		})
	}

	return nil, utils.NewSyncError(lastErr.Error())
}

// deliver performs one signed POST. The second return value reports whether
// the failure is worth retrying.
func (c *Client) deliver(ctx context.Context, endpoint string, body []byte) (*models.SyncSummary, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build sync request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if secret := c.config.Sync.Secret; secret != "" {
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set(HeaderTimestamp, timestamp)
		req.Header.Set(HeaderSignature, Sign(secret, timestamp, body))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("sync endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("sync endpoint returned %d", resp.StatusCode)
	}

	var summary models.SyncSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, false, fmt.Errorf("failed to decode sync response: %w", err)
	}

	return &summary, false, nil
}

// Sign computes the hex HMAC-SHA256 signature for a timestamped body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
