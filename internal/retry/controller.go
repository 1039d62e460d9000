// Package retry re-enqueues stalled or failed jobs on operator request.
package retry

import (
	"context"
	"crypto/subtle"
	"fmt"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/metrics"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// Controller owns the operator-facing retry operations. Both require the
// configured admin token.
type Controller struct {
	jobs   outreach.JobRepository
	queue  outreach.Queue
	token  string
	limit  int
	logger *zap.Logger
}

// New constructs a Controller. limit is the initial listing size used by
// RetryAllQueued; the listing widens until the repository is exhausted.
func New(jobs outreach.JobRepository, queue outreach.Queue, token string, limit int, logger *zap.Logger) *Controller {
	if limit <= 0 {
		limit = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{jobs: jobs, queue: queue, token: token, limit: limit, logger: logger}
}

func (c *Controller) authorize(token string) error {
	if c.token == "" {
		return fmt.Errorf("retry operations disabled: %w", outreach.ErrUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.token)) != 1 {
		return outreach.ErrUnauthorized
	}
	return nil
}

// RetryAllQueued re-enqueues every job still in the queued state and returns
// how many were enqueued. Zero queued jobs is a successful no-op. The listing
// is widened until the repository is exhausted so old queued jobs are not
// missed.
func (c *Controller) RetryAllQueued(ctx context.Context, token string) (int, error) {
	if err := c.authorize(token); err != nil {
		return 0, err
	}

	jobs, err := c.listAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs for retry: %w", err)
	}

	enqueued := 0
	for _, job := range jobs {
		if job.Status != outreach.StatusQueued {
			continue
		}
		if err := c.queue.Enqueue(ctx, outreach.QueueItem{JobID: job.ID}); err != nil {
			return enqueued, fmt.Errorf("enqueue job %s: %w", job.ID, err)
		}
		enqueued++
		metrics.ObserveRetry()
	}

	c.logger.Info("requeued stalled jobs", zap.Int("count", enqueued))
	return enqueued, nil
}

func (c *Controller) listAll(ctx context.Context) ([]outreach.Job, error) {
	limit := c.limit
	for {
		jobs, err := c.jobs.List(ctx, limit)
		if err != nil {
			return nil, err
		}
		if len(jobs) < limit {
			return jobs, nil
		}
		limit *= 2
	}
}

// RetryOne re-dispatches a single job. Failed jobs are reset to queued with
// progress 0 and a cleared error before enqueueing; queued jobs are enqueued
// as-is. Jobs in any other state are left alone and reported back unchanged.
func (c *Controller) RetryOne(ctx context.Context, token, jobID string) (outreach.Job, bool, error) {
	if err := c.authorize(token); err != nil {
		return outreach.Job{}, false, err
	}

	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return outreach.Job{}, false, err
	}

	switch job.Status {
	case outreach.StatusFailed:
		job, err = c.jobs.Update(ctx, jobID, outreach.RequeuePatch())
		if err != nil {
			return outreach.Job{}, false, fmt.Errorf("reset job %s: %w", jobID, err)
		}
	case outreach.StatusQueued:
		// re-dispatch without touching the record
	default:
		return job, false, nil
	}

	if err := c.queue.Enqueue(ctx, outreach.QueueItem{JobID: job.ID}); err != nil {
		return outreach.Job{}, false, fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	metrics.ObserveRetry()
	c.logger.Info("requeued job", zap.String("job_id", jobID))
	return job, true, nil
}
