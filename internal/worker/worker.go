// Package worker retries object store deletes that failed during an admin
// action.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/coastline-realty/content-backend/pkg/queue"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

// Jobs is the queue the cleaner consumes.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// BlobCleaner processes blob delete jobs: delete every key, requeue the ones
// that still fail.
type BlobCleaner struct {
	objects storage.ObjectStore
	jobs    Jobs
	backoff time.Duration
	logger  *zap.Logger
}

// NewBlobCleaner creates a blob delete processor.
func NewBlobCleaner(objects storage.ObjectStore, jobs Jobs, logger *zap.Logger) *BlobCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobCleaner{objects: objects, jobs: jobs, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one blob delete job. When some keys fail, the job payload
// is narrowed to those keys and an error is returned.
func (p *BlobCleaner) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeBlobDelete {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.BlobDeletePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var failed []string
	var lastErr error
	for _, key := range payload.Keys {
		err := p.objects.Delete(ctx, key)
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			continue
		}
		failed = append(failed, key)
		lastErr = err
	}
	if len(failed) == 0 {
		p.logger.Info("blob delete completed", zap.String("job_id", job.ID), zap.Int("keys", len(payload.Keys)))
		return nil
	}

	body, err := json.Marshal(queue.BlobDeletePayload{Keys: failed})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job.Payload = body
	return fmt.Errorf("delete %d of %d blobs: %w", len(failed), len(payload.Keys), lastErr)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *BlobCleaner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("blob cleaner stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *BlobCleaner) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
