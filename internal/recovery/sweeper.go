// Package recovery fails over jobs left mid-flight by a previous process.
package recovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/metrics"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// RecoveredErrorText is written to every job the sweep fails. Operators and
// the retry endpoints key off this exact message.
const RecoveredErrorText = "Recovered after server restart"

// Sweeper marks non-terminal jobs as failed at startup. It runs before the
// listener and the workers, so nothing races it.
type Sweeper struct {
	jobs   outreach.JobRepository
	limit  int
	logger *zap.Logger
}

// New constructs a Sweeper. limit is the initial listing size; the sweep
// widens it until the repository is exhausted.
func New(jobs outreach.JobRepository, limit int, logger *zap.Logger) *Sweeper {
	if limit <= 0 {
		limit = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{jobs: jobs, limit: limit, logger: logger}
}

// Sweep fails every queued or processing job and returns how many were
// updated. Terminal jobs are left untouched. All jobs are examined, however
// old: stale records beyond the first listing are picked up by widening it.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	jobs, err := listAll(ctx, s.jobs, s.limit)
	if err != nil {
		return 0, fmt.Errorf("list jobs for recovery: %w", err)
	}

	recovered := 0
	for _, job := range jobs {
		if job.Status.Terminal() {
			continue
		}
		if _, err := s.jobs.Update(ctx, job.ID, outreach.FailurePatch(RecoveredErrorText)); err != nil {
			return recovered, fmt.Errorf("recover job %s: %w", job.ID, err)
		}
		recovered++
		s.logger.Info("recovered stale job",
			zap.String("job_id", job.ID),
			zap.String("previous_status", string(job.Status)),
		)
	}

	metrics.ObserveRecoveredJobs(recovered)
	return recovered, nil
}

// listAll re-lists with a doubled limit until the repository returns fewer
// rows than requested, so no job escapes the sweep.
func listAll(ctx context.Context, jobs outreach.JobRepository, limit int) ([]outreach.Job, error) {
	for {
		out, err := jobs.List(ctx, limit)
		if err != nil {
			return nil, err
		}
		if len(out) < limit {
			return out, nil
		}
		limit *= 2
	}
}
