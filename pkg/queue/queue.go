package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueBlobDeletes is the Redis list key for blob delete jobs.
	QueueBlobDeletes = "content:jobs:blob-delete"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "content:jobs:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 5
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// dequeueTimeout bounds one BLPOP so the worker notices shutdown.
	dequeueTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeBlobDelete JobType = "blob_delete"
)

// BlobDeletePayload is the payload for blob delete jobs.
type BlobDeletePayload struct {
	Keys []string `json:"keys"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload in a fresh envelope.
func NewJob(typ JobType, payload any, now time.Time) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{ID: uuid.New().String(), Type: typ, Payload: body, CreatedAt: now}, nil
}

// Destination returns the list a job goes back to after a failed attempt:
// its own queue, or the DLQ once it has used up its retries.
func Destination(job *Job) string {
	if job.Attempt >= MaxRetries {
		return QueueDLQ
	}
	return QueueBlobDeletes
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	clock  func() time.Time
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger, clock: time.Now}
}

// EnqueueBlobDelete enqueues a job deleting keys from the object store.
func (q *Queue) EnqueueBlobDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	job, err := NewJob(JobTypeBlobDelete, BlobDeletePayload{Keys: keys}, q.clock())
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueBlobDeletes, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued blob delete job", zap.String("job_id", job.ID), zap.Int("keys", len(keys)))
	return nil
}

// RetryDelete implements uploads.Retrier.
func (q *Queue) RetryDelete(ctx context.Context, keys []string) error {
	return q.EnqueueBlobDelete(ctx, keys)
}

// Dequeue waits for a job. It returns a nil job when none arrived in time
// or the entry could not be decoded.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, dequeueTimeout, QueueBlobDeletes).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	dest := Destination(job)
	if err := q.push(ctx, dest, job); err != nil {
		q.logger.Error("job requeue failed", zap.String("job_id", job.ID), zap.String("queue", dest), zap.Error(err))
		return err
	}
	if dest == QueueDLQ {
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}
