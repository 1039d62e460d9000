// Package failover wraps a primary job repository with a local fallback that
// takes over when the primary backend is unreachable.
package failover

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// JobRepository routes operations to the primary store and falls back to the
// secondary store when the primary reports ErrBackendUnavailable. Every other
// error (not found, constraint violations) passes through unchanged.
type JobRepository struct {
	primary  outreach.JobRepository
	fallback outreach.JobRepository
	logger   *zap.Logger
	degraded atomic.Bool
}

// New wires a failover repository around the two stores.
func New(primary, fallback outreach.JobRepository, logger *zap.Logger) *JobRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRepository{primary: primary, fallback: fallback, logger: logger}
}

// Degraded reports whether the most recent operation had to use the fallback.
func (r *JobRepository) Degraded() bool {
	return r.degraded.Load()
}

func (r *JobRepository) Insert(ctx context.Context, job outreach.Job) (outreach.Job, error) {
	stored, err := r.primary.Insert(ctx, job)
	if !errors.Is(err, outreach.ErrBackendUnavailable) {
		r.degraded.Store(false)
		return stored, err
	}
	r.noteFallback("insert", job.ID, err)
	return r.fallback.Insert(ctx, job)
}

func (r *JobRepository) Update(ctx context.Context, jobID string, patch outreach.JobPatch) (outreach.Job, error) {
	updated, err := r.primary.Update(ctx, jobID, patch)
	if !errors.Is(err, outreach.ErrBackendUnavailable) {
		r.degraded.Store(false)
		return updated, err
	}
	r.noteFallback("update", jobID, err)
	return r.fallback.Update(ctx, jobID, patch)
}

func (r *JobRepository) Get(ctx context.Context, jobID string) (outreach.Job, error) {
	job, err := r.primary.Get(ctx, jobID)
	if !errors.Is(err, outreach.ErrBackendUnavailable) {
		r.degraded.Store(false)
		return job, err
	}
	r.noteFallback("get", jobID, err)
	return r.fallback.Get(ctx, jobID)
}

func (r *JobRepository) List(ctx context.Context, limit int) ([]outreach.Job, error) {
	jobs, err := r.primary.List(ctx, limit)
	if !errors.Is(err, outreach.ErrBackendUnavailable) {
		r.degraded.Store(false)
		return jobs, err
	}
	r.noteFallback("list", "", err)
	return r.fallback.List(ctx, limit)
}

func (r *JobRepository) noteFallback(op, jobID string, err error) {
	r.degraded.Store(true)
	r.logger.Warn("primary job store unavailable, using fallback",
		zap.String("op", op),
		zap.String("job_id", jobID),
		zap.Error(err),
	)
}
