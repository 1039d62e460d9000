package outreach

import (
	"context"
	"time"
)

// JobRepository persists job records. All operations are safe for concurrent
// callers; Update applies as a whole-record read-modify-write so two racing
// writers never interleave fields.
type JobRepository interface {
	// Insert stores a new job and returns the persisted record.
	Insert(ctx context.Context, job Job) (Job, error)
	// Update applies a partial patch, refreshes updated_at, and returns the
	// updated record. It returns ErrNotFound for unknown ids.
	Update(ctx context.Context, jobID string, patch JobPatch) (Job, error)
	// Get fetches one job or returns ErrNotFound.
	Get(ctx context.Context, jobID string) (Job, error)
	// List returns up to limit jobs, newest first by created_at.
	List(ctx context.Context, limit int) ([]Job, error)
}

// Queue provides enqueue/dequeue semantics for the dispatch queue.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// BlobStore persists upload, intermediate, and output artifacts.
type BlobStore interface {
	// PutObject writes data under path and returns a resolvable URI.
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	// GetObject reads an artifact back, e.g. the job's upload.
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// Publisher pushes terminal job events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Stage is one ordered step of the pipeline, transforming an artifact into
// the next. Implementations return *StageError (or any error, which the
// runner wraps) on failure.
type Stage interface {
	// Name identifies the stage in logs, errors, and artifact paths.
	Name() string
	// Checkpoint is the progress value persisted after the stage completes.
	Checkpoint() int
	Run(ctx context.Context, artifact Artifact, job Job) (Artifact, error)
}

// TextGenerator produces completions for the summarize/generate stages.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job ids (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
