package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"careersync/internal/config"
	"careersync/internal/logging"
)

// ErrRecordNotFound is returned when a task record key has no value,
// either because it never existed or its TTL expired.
var ErrRecordNotFound = errors.New("task record not found")

// RedisClient wraps the Redis client for the ephemeral task ledger.
// Every record is written with a TTL; Redis expiry is the cleanup
// mechanism, nothing here is durable state.
type RedisClient struct {
	client *redis.Client
	config *config.Config
	logger logging.Logger
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(cfg *config.Config) *RedisClient {
	// Parse Redis URL
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		// Fallback to default configuration
		opts = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	// Configure timeouts
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	return &RedisClient{
		client: client,
		config: cfg,
		logger: logging.GetGlobalLogger(),
	}
}

// Ping tests the Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// IsHealthy checks if Redis is connected and healthy
func (r *RedisClient) IsHealthy(ctx context.Context) error {
	return r.Ping(ctx)
}

// SaveTaskRecord stores a task record as JSON under the task key with the
// configured TTL.
func (r *RedisClient) SaveTaskRecord(ctx context.Context, processID string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal task record: %w", err)
	}

	key := r.taskKey(processID)
	if err := r.client.Set(ctx, key, payload, r.taskTTL()).Err(); err != nil {
		r.logger.Error("Failed to save task record", map[string]interface{}{
			"process_id": processID,
			"error":      err.Error(),
		})
		return fmt.Errorf("failed to save task record: %w", err)
	}

	return nil
}

// GetTaskRecord loads a task record into out. Returns ErrRecordNotFound
// when the key is absent or expired.
func (r *RedisClient) GetTaskRecord(ctx context.Context, processID string, out interface{}) error {
	payload, err := r.client.Get(ctx, r.taskKey(processID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to get task record: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to unmarshal task record: %w", err)
	}

	return nil
}

// DeleteTaskRecord removes a task record
func (r *RedisClient) DeleteTaskRecord(ctx context.Context, processID string) error {
	return r.client.Del(ctx, r.taskKey(processID)).Err()
}

// ListTaskRecords returns the raw JSON payload of every live task record.
func (r *RedisClient) ListTaskRecords(ctx context.Context) ([]string, error) {
	var (
		cursor  uint64
		records []string
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, "task:fetch:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan task records: %w", err)
		}

		for _, key := range keys {
			payload, err := r.client.Get(ctx, key).Result()
			if err != nil {
				// Key can expire between scan and get; skip it.
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("failed to get task record %s: %w", key, err)
			}
			records = append(records, payload)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return records, nil
}

func (r *RedisClient) taskKey(processID string) string {
	return fmt.Sprintf("task:fetch:%s", processID)
}

func (r *RedisClient) taskTTL() time.Duration {
	if r.config != nil && r.config.Redis.TaskTTL > 0 {
		return r.config.Redis.TaskTTL
	}
	return 24 * time.Hour
}
