// Package memory provides an in-memory job repository for development and
// testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// JobRepository stores job records in a map guarded by a single lock, so
// every update is a whole-record read-modify-write.
type JobRepository struct {
	mu    sync.RWMutex
	jobs  map[string]outreach.Job
	clock outreach.Clock
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(clock outreach.Clock) *JobRepository {
	return &JobRepository{
		jobs:  make(map[string]outreach.Job),
		clock: clock,
	}
}

// Insert stores a new job record.
func (r *JobRepository) Insert(_ context.Context, job outreach.Job) (outreach.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return outreach.Job{}, errors.New("job already exists")
	}
	now := r.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	job.Payload = job.ClonePayload()
	r.jobs[job.ID] = job
	return job, nil
}

// Update applies a partial patch under the lock and refreshes updated_at.
func (r *JobRepository) Update(_ context.Context, jobID string, patch outreach.JobPatch) (outreach.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return outreach.Job{}, outreach.ErrNotFound
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.OutputURL != nil {
		job.OutputURL = *patch.OutputURL
	}
	if patch.ErrorText != nil {
		job.ErrorText = *patch.ErrorText
	}
	job.UpdatedAt = r.now()
	r.jobs[jobID] = job
	return job, nil
}

// Get fetches a job by id.
func (r *JobRepository) Get(_ context.Context, jobID string) (outreach.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return outreach.Job{}, outreach.ErrNotFound
	}
	return job, nil
}

// List returns up to limit jobs, newest first by created_at.
func (r *JobRepository) List(_ context.Context, limit int) ([]outreach.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]outreach.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobRepository) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}
	return time.Now().UTC()
}
