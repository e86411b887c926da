package background

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"careersync/pkg/utils"
)

// RedisTaskStore implements TaskStore on top of the shared Redis client.
// Records are written with a TTL, so restarts keep the task ledger and
// expiry does the cleanup.
type RedisTaskStore struct {
	client *utils.RedisClient
}

// NewRedisTaskStore creates a Redis-backed task store
func NewRedisTaskStore(client *utils.RedisClient) *RedisTaskStore {
	return &RedisTaskStore{client: client}
}

// Store stores a task result
func (s *RedisTaskStore) Store(ctx context.Context, result *TaskResult) error {
	return s.client.SaveTaskRecord(ctx, result.ProcessID, result)
}

// Get retrieves a task result by process ID
func (s *RedisTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	var result TaskResult
	if err := s.client.GetTaskRecord(ctx, processID, &result); err != nil {
		if errors.Is(err, utils.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &result, nil
}

// Update updates a task result. Rewriting the record refreshes its TTL,
// which keeps active tasks alive in the ledger.
func (s *RedisTaskStore) Update(ctx context.Context, result *TaskResult) error {
	return s.client.SaveTaskRecord(ctx, result.ProcessID, result)
}

// Delete removes a task result
func (s *RedisTaskStore) Delete(ctx context.Context, processID string) error {
	return s.client.DeleteTaskRecord(ctx, processID)
}

// Cleanup is a no-op; Redis TTL expiry removes stale records.
func (s *RedisTaskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	return nil
}

// List returns all live task results
func (s *RedisTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	payloads, err := s.client.ListTaskRecords(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*TaskResult, 0, len(payloads))
	for _, payload := range payloads {
		var result TaskResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			// Written by an older build or truncated; skip it.
			continue
		}
		results = append(results, &result)
	}

	return results, nil
}
