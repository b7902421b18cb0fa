package testutil

import (
	"context"
	"sync"

	"github.com/vitacare/vitacare/internal/types"
)

// InMemoryPublisher implements publisher.EventPublisher by capturing events
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []*types.WebhookEvent
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, event *types.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	clone := *event
	p.events = append(p.events, &clone)
	return nil
}

func (p *InMemoryPublisher) Close() error {
	return nil
}

// Events returns a copy of all published events in publish order
func (p *InMemoryPublisher) Events() []*types.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*types.WebhookEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventNames returns the names of published events in publish order
func (p *InMemoryPublisher) EventNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName)
	}
	return names
}

// Clear drops all captured events
func (p *InMemoryPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
