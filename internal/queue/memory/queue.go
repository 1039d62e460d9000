// Package memory provides the in-process dispatch queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aguldbeck/ai-outreach-agent/internal/metrics"
	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// ErrClosed is returned by Enqueue once the queue has been shut down.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory FIFO with context-aware operations. It does
// not deduplicate: enqueueing an id already in flight is tolerated and
// resolved by the stage runner's idempotent skip.
type Queue struct {
	ch     chan outreach.QueueItem
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan outreach.QueueItem, capacity),
	}
}

// Enqueue pushes an item into the queue or returns if the context ends.
// After Close it returns ErrClosed instead of panicking on the closed
// channel; Close waits for in-flight enqueues to finish.
func (q *Queue) Enqueue(ctx context.Context, item outreach.QueueItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	}
}

// Dequeue pops the next item, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (outreach.QueueItem, error) {
	select {
	case <-ctx.Done():
		return outreach.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return outreach.QueueItem{}, ErrClosed
		}
		metrics.SetQueueDepth(len(q.ch))
		return item, nil
	}
}

// Depth reports the number of items waiting in the queue.
func (q *Queue) Depth() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
