// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
	"github.com/aguldbeck/ai-outreach-agent/internal/worker"
)

// ClaimTable tracks job ids currently held by a worker so duplicate queue
// entries for the same job never run concurrently.
type ClaimTable struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

// NewClaimTable creates an empty claim table.
func NewClaimTable() *ClaimTable {
	return &ClaimTable{claims: make(map[string]struct{})}
}

// TryAcquire claims jobID, returning false if another worker holds it.
func (c *ClaimTable) TryAcquire(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.claims[jobID]; held {
		return false
	}
	c.claims[jobID] = struct{}{}
	return true
}

// Release frees the claim on jobID.
func (c *ClaimTable) Release(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, jobID)
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   outreach.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue outreach.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item outreach.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
