package api

import (
	"context"
	"sync"
)

// Event is a named signal emitted by a step and consumed by a workflow
// router. Events are treated as immutable once emitted.
type Event struct {
	Type    string
	Payload any
}

// NewEvent returns an Event with the given type and payload.
func NewEvent(typ string, payload any) Event {
	return Event{Type: typ, Payload: payload}
}

// Publisher delivers an event to the bus of a running workflow.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Emitter lets a running step publish events before it returns. It is
// installed into the step's context by the scheduler and closed as soon as
// the step returns.
type Emitter struct {
	mu     sync.RWMutex
	pub    Publisher
	closed bool
}

// NewEmitter returns an open Emitter publishing to pub.
func NewEmitter(pub Publisher) *Emitter {
	return &Emitter{pub: pub}
}

// Emit publishes ev, or returns ErrEmitterClosed once the owning step has
// returned.
func (e *Emitter) Emit(ctx context.Context, ev Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEmitterClosed
	}
	e.pub.Publish(ctx, ev)
	return nil
}

// Close waits for in-flight emits and rejects later ones.
func (e *Emitter) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

type emitterKey struct{}

// WithEmitter returns a copy of ctx carrying e.
func WithEmitter(ctx context.Context, e *Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

// Emit publishes ev on behalf of the step currently running with ctx.
// The event is routed immediately, while the step is still running.
func Emit(ctx context.Context, ev Event) error {
	e, ok := ctx.Value(emitterKey{}).(*Emitter)
	if !ok || e == nil {
		return ErrNoEmitter
	}
	return e.Emit(ctx, ev)
}
