// Package taskqueue holds the FIFO of pending step activations drained by
// the scheduler.
package taskqueue

import (
	"sync"
	"time"
)

// Activation is a request to run a step.
type Activation struct {
	StepID string

	// Cause is the type of the event whose routing produced this
	// activation; empty for the start step.
	Cause string

	EnqueuedAt time.Time
}

// Queue is a FIFO of activations with a single consumer and any number of
// producers. It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []Activation
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends activations to the back of the queue, preserving their order.
func (q *Queue) Push(acts ...Activation) {
	if len(acts) == 0 {
		return
	}
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range acts {
		if a.EnqueuedAt.IsZero() {
			a.EnqueuedAt = now
		}
		q.items = append(q.items, a)
	}
}

// PushSteps enqueues one activation per step id, all caused by cause.
func (q *Queue) PushSteps(cause string, ids ...string) {
	acts := make([]Activation, 0, len(ids))
	for _, id := range ids {
		acts = append(acts, Activation{StepID: id, Cause: cause})
	}
	q.Push(acts...)
}

// Pop removes and returns the front activation.
func (q *Queue) Pop() (Activation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Activation{}, false
	}
	a := q.items[0]
	q.items[0] = Activation{}
	q.items = q.items[1:]
	return a, true
}

// Len returns the number of queued activations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
