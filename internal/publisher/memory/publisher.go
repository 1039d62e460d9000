// Package memory provides an in-process publisher that records terminal job
// notifications, standing in for Pub/Sub in tests and topic-less dev runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// Publisher records every publish for later inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// Event captures one publish call. Payload is typically an
// outreach.TerminalEvent; TerminalEvents filters down to those.
type Event struct {
	Topic   string
	Payload any
}

// New returns an empty recording Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a synthetic message id.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-%s-%d", topic, len(p.events)), nil
}

// Events returns a snapshot of everything published, in order.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// TerminalEvents returns the published job terminal notifications, in order,
// skipping any payload of another type.
func (p *Publisher) TerminalEvents() []outreach.TerminalEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []outreach.TerminalEvent
	for _, e := range p.events {
		if ev, ok := e.Payload.(outreach.TerminalEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}
