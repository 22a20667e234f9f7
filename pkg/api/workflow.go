package api

import (
	"context"
	"fmt"
	"time"
)

// Router maps an emitted event to the ids of the steps to activate next.
// It sees the state as of the last committed step.
type Router[S any] func(ctx context.Context, ev Event, state S) ([]string, error)

// RouteTable is a static event type -> step ids routing table.
type RouteTable map[string][]string

// RouteTableRouter returns a Router that looks ev.Type up in the table.
// Unknown event types activate nothing.
func RouteTableRouter[S any](t RouteTable) Router[S] {
	return func(_ context.Context, ev Event, _ S) ([]string, error) {
		ids := t[ev.Type]
		if len(ids) == 0 {
			return nil, nil
		}
		out := make([]string, len(ids))
		copy(out, ids)
		return out, nil
	}
}

// Registry resolves step ids to steps. It is the closed step set of a
// workflow.
type Registry[S any] struct {
	steps map[string]Step[S]
	order []string
}

// NewRegistry creates a registry holding steps.
func NewRegistry[S any](steps ...Step[S]) (*Registry[S], error) {
	r := &Registry[S]{steps: make(map[string]Step[S], len(steps))}
	for _, s := range steps {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds step to the registry.
func (r *Registry[S]) Register(step Step[S]) error {
	if step == nil {
		return fmt.Errorf("register step: nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("register step: empty id")
	}
	if r.steps == nil {
		r.steps = make(map[string]Step[S])
	}
	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, id)
	}
	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Lookup returns the step registered under id.
func (r *Registry[S]) Lookup(id string) (Step[S], error) {
	if r != nil {
		if s, ok := r.steps[id]; ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrStepNotFound, id)
}

// IDs returns the registered ids in registration order.
func (r *Registry[S]) IDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered steps.
func (r *Registry[S]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.steps)
}

// WorkflowDefinition describes a workflow: a closed set of steps, the id of
// the first step and the router deciding what runs after each event.
//
// Start and every id returned by Router must name a step in Steps. This is
// only checked when the scheduler resolves the id.
type WorkflowDefinition[S any] struct {
	Name   string
	Steps  *Registry[S]
	Start  string
	Router Router[S]
	Hooks  Hooks[S]
}

// RunInfo identifies one execution of a workflow.
type RunInfo struct {
	ID       string
	Workflow string

	// ParentID is the run id of the enclosing workflow when this run is a
	// nested workflow step; empty for top-level runs.
	ParentID string
}

type runKey struct{}

// WithRun returns a copy of ctx carrying run.
func WithRun(ctx context.Context, run RunInfo) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext returns the run executing the current step, if any.
func RunFromContext(ctx context.Context) (RunInfo, bool) {
	run, ok := ctx.Value(runKey{}).(RunInfo)
	return run, ok
}

// RetryPolicy controls how a step is retried when it returns an error.
// MaxAttempts includes the first attempt. For example:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// The delay before retry n (1-based) is InitialBackoff * BackoffMultiplier^(n-1),
// capped by MaxBackoff when it is positive. A zero InitialBackoff retries
// immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// Delay returns the wait before retry number n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if p.InitialBackoff <= 0 || n <= 0 {
		return 0
	}
	d := float64(p.InitialBackoff)
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	for i := 1; i < n; i++ {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}
