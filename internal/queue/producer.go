package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Producer submits OCR jobs to the worker queue
type Producer struct {
	client    *asynq.Client
	queueName string
	timeout   time.Duration
}

// NewProducer creates a producer for queueName. timeout bounds a task's run
// on the worker side; zero keeps the asynq default.
func NewProducer(redisURL, queueName string, timeout time.Duration) (*Producer, error) {
	if queueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Producer{
		client:    asynq.NewClient(redisOpt),
		queueName: queueName,
		timeout:   timeout,
	}, nil
}

// NewProcessImageTask builds the task for job, assigning a job ID when empty
func NewProcessImageTask(job *JobData) (*asynq.Task, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if err := validateJobData(job); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job data: %w", err)
	}
	return asynq.NewTask(TypeProcessImage, payload), nil
}

// Submit enqueues an OCR job and returns its job ID
func (p *Producer) Submit(ctx context.Context, job JobData) (string, error) {
	task, err := NewProcessImageTask(&job)
	if err != nil {
		return "", err
	}

	opts := []asynq.Option{
		asynq.Queue(p.queueName),
		asynq.TaskID(job.JobID),
		asynq.MaxRetry(3),
	}
	if p.timeout > 0 {
		opts = append(opts, asynq.Timeout(p.timeout))
	}

	if _, err := p.client.EnqueueContext(ctx, task, opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return job.JobID, nil
}

// Close closes the Redis connection
func (p *Producer) Close() error {
	return p.client.Close()
}
