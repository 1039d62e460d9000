// Package file implements a job repository backed by a single JSON file on
// local disk. It is the degraded-mode fallback when the primary store is
// unreachable, and a zero-dependency option for development.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// Config captures the parameters for the file-backed repository.
type Config struct {
	// Path is the JSON file holding the job records.
	Path string `mapstructure:"path" yaml:"path"`
}

// JobRepository serializes all access through one mutex; every update reads,
// patches, and rewrites the whole file, so racing writers cannot interleave
// fields. Writes go through a temp file plus rename to stay durable across
// crashes mid-write.
type JobRepository struct {
	mu    sync.Mutex
	path  string
	clock outreach.Clock
}

// New creates the file-backed repository, initializing an empty store if the
// file does not exist yet.
func New(cfg Config, clock outreach.Clock) (*JobRepository, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("repository file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create repository directory: %w", err)
	}
	r := &JobRepository{path: cfg.Path, clock: clock}
	if _, err := os.Stat(cfg.Path); errors.Is(err, os.ErrNotExist) {
		if writeErr := r.write([]outreach.Job{}); writeErr != nil {
			return nil, fmt.Errorf("initialize repository file: %w", writeErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat repository file: %w", err)
	}
	return r, nil
}

// Insert stores a new job record.
func (r *JobRepository) Insert(_ context.Context, job outreach.Job) (outreach.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs, err := r.read()
	if err != nil {
		return outreach.Job{}, err
	}
	for _, existing := range jobs {
		if existing.ID == job.ID {
			return outreach.Job{}, errors.New("job already exists")
		}
	}
	now := r.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	jobs = append(jobs, job)
	if err := r.write(jobs); err != nil {
		return outreach.Job{}, err
	}
	return job, nil
}

// Update applies a partial patch and rewrites the file.
func (r *JobRepository) Update(_ context.Context, jobID string, patch outreach.JobPatch) (outreach.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs, err := r.read()
	if err != nil {
		return outreach.Job{}, err
	}
	for i := range jobs {
		if jobs[i].ID != jobID {
			continue
		}
		if patch.Status != nil {
			jobs[i].Status = *patch.Status
		}
		if patch.Progress != nil {
			jobs[i].Progress = *patch.Progress
		}
		if patch.OutputURL != nil {
			jobs[i].OutputURL = *patch.OutputURL
		}
		if patch.ErrorText != nil {
			jobs[i].ErrorText = *patch.ErrorText
		}
		jobs[i].UpdatedAt = r.now()
		if err := r.write(jobs); err != nil {
			return outreach.Job{}, err
		}
		return jobs[i], nil
	}
	return outreach.Job{}, outreach.ErrNotFound
}

// Get fetches a job by id.
func (r *JobRepository) Get(_ context.Context, jobID string) (outreach.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs, err := r.read()
	if err != nil {
		return outreach.Job{}, err
	}
	for _, job := range jobs {
		if job.ID == jobID {
			return job, nil
		}
	}
	return outreach.Job{}, outreach.ErrNotFound
}

// List returns up to limit jobs, newest first by created_at.
func (r *JobRepository) List(_ context.Context, limit int) ([]outreach.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs, err := r.read()
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *JobRepository) read() ([]outreach.Job, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read repository file: %w", err)
	}
	var jobs []outreach.Job
	if len(data) > 0 {
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("decode repository file: %w", err)
		}
	}
	return jobs, nil
}

func (r *JobRepository) write(jobs []outreach.Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode repository file: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write repository temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace repository file: %w", err)
	}
	return nil
}

func (r *JobRepository) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}
	return time.Now().UTC()
}
