package engine

import (
	"context"
	"sync"

	"github.com/petrijr/evok/pkg/api"
)

// Listener receives every event published on a Bus.
type Listener func(ctx context.Context, ev api.Event)

// Bus is an in-process, synchronous publish/subscribe channel. Each
// workflow run owns exactly one Bus.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

var _ api.Publisher = (*Bus)(nil)

// NewBus creates a bus with no listeners.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l for every subsequent Publish.
func (b *Bus) Subscribe(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish calls every listener with ev, synchronously and in registration
// order. Anything a listener starts in the background is not awaited.
func (b *Bus) Publish(ctx context.Context, ev api.Event) {
	b.mu.RLock()
	ls := make([]Listener, len(b.listeners))
	copy(ls, b.listeners)
	b.mu.RUnlock()

	for _, l := range ls {
		l(ctx, ev)
	}
}
