/**
 * Redis job status tracking for the OCR worker
 *
 * Keeps processing/completed/failed sets, result and error hashes and an
 * events channel under the queue name, so API layers can follow jobs.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/ocr-engine/internal/storage"
)

// StatusTracker records job transitions outside the database
type StatusTracker interface {
	MarkProcessing(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID string, result interface{}) error
	MarkFailed(ctx context.Context, jobID string, details map[string]interface{}) error
}

// RedisStatusTracker implements StatusTracker on go-redis
type RedisStatusTracker struct {
	client *redis.Client
	prefix string
}

// JobEvent is published on <prefix>:events for every transition
type JobEvent struct {
	Event     string `json:"event"`
	JobID     string `json:"jobId"`
	Timestamp string `json:"timestamp"`
}

// NewRedisStatusTracker creates a tracker and checks connectivity
func NewRedisStatusTracker(ctx context.Context, redisURL, prefix string) (*RedisStatusTracker, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if prefix == "" {
		return nil, fmt.Errorf("key prefix is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStatusTracker{client: client, prefix: prefix}, nil
}

func (t *RedisStatusTracker) key(suffix string) string {
	return fmt.Sprintf("%s:%s", t.prefix, suffix)
}

// MarkProcessing adds the job to the processing set
func (t *RedisStatusTracker) MarkProcessing(ctx context.Context, jobID string) error {
	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, t.key(storage.StatusProcessing), jobID)
	t.publish(ctx, pipe, jobID, storage.StatusProcessing)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", jobID, err)
	}
	return nil
}

// MarkCompleted moves the job to the completed set and stores its result
func (t *RedisStatusTracker) MarkCompleted(ctx context.Context, jobID string, result interface{}) error {
	return t.finish(ctx, jobID, storage.StatusCompleted, "results", result)
}

// MarkFailed moves the job to the failed set and stores the error details
func (t *RedisStatusTracker) MarkFailed(ctx context.Context, jobID string, details map[string]interface{}) error {
	return t.finish(ctx, jobID, storage.StatusFailed, "errors", details)
}

func (t *RedisStatusTracker) finish(ctx context.Context, jobID, status, hash string, payload interface{}) error {
	pipe := t.client.TxPipeline()
	pipe.SRem(ctx, t.key(storage.StatusProcessing), jobID)
	pipe.SAdd(ctx, t.key(status), jobID)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s for job %s: %w", hash, jobID, err)
		}
		pipe.HSet(ctx, t.key(hash), jobID, data)
	}
	t.publish(ctx, pipe, jobID, status)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", jobID, status, err)
	}
	return nil
}

// publish queues the event for WebSocket streaming on the pipeline
func (t *RedisStatusTracker) publish(ctx context.Context, pipe redis.Pipeliner, jobID, status string) {
	event := JobEvent{
		Event:     fmt.Sprintf("job:%s", status),
		JobID:     jobID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, _ := json.Marshal(event)
	pipe.Publish(ctx, t.key("events"), data)
}

// Result returns the stored result JSON of a completed job
func (t *RedisStatusTracker) Result(ctx context.Context, jobID string) ([]byte, error) {
	data, err := t.client.HGet(ctx, t.key("results"), jobID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("no result for job %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result for job %s: %w", jobID, err)
	}
	return data, nil
}

// GetStats returns the size of every status set
func (t *RedisStatusTracker) GetStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, 3)
	for _, status := range []string{storage.StatusProcessing, storage.StatusCompleted, storage.StatusFailed} {
		n, err := t.client.SCard(ctx, t.key(status)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", status, err)
		}
		stats[status] = n
	}
	return stats, nil
}

// Close closes the Redis connection
func (t *RedisStatusTracker) Close() error {
	return t.client.Close()
}
