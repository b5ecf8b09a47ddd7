/**
 * Queue Consumer for the OCR worker
 *
 * Consumes OCR jobs from Redis with asynq and runs each one through the
 * image processor.
 */

package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/ocr-engine/internal/errors"
	"github.com/adverant/nexus/ocr-engine/internal/logging"
	"github.com/adverant/nexus/ocr-engine/internal/processor"
	"github.com/adverant/nexus/ocr-engine/internal/storage"
)

// TypeProcessImage is the asynq task type of an OCR job
const TypeProcessImage = "ocr:process-image"

const defaultProcessingTimeout = 120000 * time.Millisecond

// JobData is the task payload
type JobData struct {
	JobID     string                 `json:"jobId"`
	UserID    string                 `json:"userId,omitempty"`
	ImagePath string                 `json:"imagePath"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Consumer handles job consumption from Redis queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.ImageProcessorInterface
	tracker   StatusTracker
	log       *logging.Logger
	config    *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.ImageProcessorInterface
	Tracker           StatusTracker
	Logger            *logging.Logger
	ProcessingTimeout int64 // Processing timeout in milliseconds
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Tracker == nil {
		return nil, fmt.Errorf("Tracker is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// Exponential backoff: 5s, 10s, 20s, capped at 60s
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("Task processing error", "type", task.Type(), "error", err.Error())
			}),
			Logger:   newAsynqLogger(log),
			LogLevel: asynq.InfoLevel,
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		tracker:   cfg.Tracker,
		log:       log,
		config:    cfg,
	}

	mux.HandleFunc(TypeProcessImage, consumer.handleProcessImage)

	return consumer, nil
}

// Start starts processing in the background
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.log.Info("Stopping queue consumer")
	c.server.Shutdown()
	c.log.Info("Queue consumer stopped")
	return nil
}

func (c *Consumer) timeout() time.Duration {
	if c.config.ProcessingTimeout > 0 {
		return time.Duration(c.config.ProcessingTimeout) * time.Millisecond
	}
	return defaultProcessingTimeout
}

// handleProcessImage processes one OCR job. Deterministic failures are
// returned wrapped in asynq.SkipRetry.
func (c *Consumer) handleProcessImage(ctx context.Context, task *asynq.Task) error {
	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		perr := errors.NewInvalidPayloadError("", err)
		return fmt.Errorf("%w: %w", perr, asynq.SkipRetry)
	}
	if err := validateJobData(&job); err != nil {
		perr := errors.NewInvalidPayloadError(job.JobID, err)
		return fmt.Errorf("%w: %w", perr, asynq.SkipRetry)
	}

	log := c.log.With("jobId", job.JobID)
	log.Info("Processing image", "path", job.ImagePath, "user", job.UserID)

	if err := c.tracker.MarkProcessing(ctx, job.JobID); err != nil {
		log.Warn("Failed to mark job processing in Redis", "error", err.Error())
	}
	meta := map[string]interface{}{"imagePath": job.ImagePath, "userId": job.UserID}
	for k, v := range job.Metadata {
		meta[k] = v
	}
	if err := c.processor.UpdateJobStatus(ctx, job.JobID, storage.StatusProcessing, meta); err != nil {
		log.Warn("Failed to update status to processing", "error", err.Error())
	}

	timeout := c.timeout()
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.processor.ProcessImage(processCtx, &processor.ProcessRequest{
		JobID:     job.JobID,
		UserID:    job.UserID,
		ImagePath: job.ImagePath,
		Metadata:  job.Metadata,
	})
	if err != nil {
		return c.fail(ctx, log, job.JobID, err)
	}

	if err := c.tracker.MarkCompleted(ctx, job.JobID, result); err != nil {
		log.Warn("Failed to mark job completed in Redis", "error", err.Error())
	}
	if err := c.processor.UpdateJobStatus(ctx, job.JobID, storage.StatusCompleted, result.ResultMetadata()); err != nil {
		// The text is already in Redis; a retry would only repeat the OCR.
		log.Error("Failed to update status to completed", "error", err.Error())
	}

	log.Info("Job completed", "words", result.WordCount, "chars", result.CharCount, "processingTimeMs", result.ProcessingTimeMs)
	return nil
}

func (c *Consumer) fail(ctx context.Context, log *logging.Logger, jobID string, err error) error {
	var perr *errors.ProcessingError
	if !stderrors.As(err, &perr) {
		perr = errors.NewStorageFailedError(jobID, err)
	}
	details := perr.ToMap()

	log.Error("Job failed", "code", string(perr.Code), "error", err.Error())

	if terr := c.tracker.MarkFailed(ctx, jobID, details); terr != nil {
		log.Warn("Failed to mark job failed in Redis", "error", terr.Error())
	}
	if uerr := c.processor.UpdateJobStatus(ctx, jobID, storage.StatusFailed, details); uerr != nil {
		log.Warn("Failed to update status to failed", "error", uerr.Error())
	}

	if !perr.Retryable() {
		return fmt.Errorf("%w: %w", perr, asynq.SkipRetry)
	}
	return perr
}

func validateJobData(job *JobData) error {
	if job.JobID == "" {
		return fmt.Errorf("jobId is required")
	}
	if job.ImagePath == "" {
		return fmt.Errorf("imagePath is required")
	}
	return nil
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"timeout":     c.timeout().String(),
	}
}
