package evok

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/evok/pkg/api"
)

var (
	// ErrStepTimeout is returned by TimeoutStep when the wrapped step does
	// not finish in time.
	ErrStepTimeout = errors.New("step timed out")

	// ErrDependenciesUnsatisfied is returned by DependentStep when a
	// dependency has not completed yet.
	ErrDependenciesUnsatisfied = errors.New("dependencies not satisfied")
)

// Event types emitted by the decorators.
const (
	EventStepSkipped    = "step:skipped"
	EventBatchCompleted = "batch:completed"
)

// SkippedPayload is the payload of a step:skipped event.
type SkippedPayload struct {
	StepID string
}

// BatchCompletedPayload is the payload of a batch:completed event.
type BatchCompletedPayload struct {
	TotalItems int
}

// CompleteEvent returns the event type SimpleStep and Sequential use to
// signal that the step id finished.
func CompleteEvent(id string) string {
	return id + ":complete"
}

// decorated runs fn in place of the inner step's Run and forwards the
// lifecycle hooks the inner step implements.
type decorated[S any] struct {
	inner Step[S]
	run   StepFunc[S]
}

var (
	_ api.StartHook[int]    = (*decorated[int])(nil)
	_ api.CompleteHook[int] = (*decorated[int])(nil)
	_ api.ErrorHook[int]    = (*decorated[int])(nil)
)

func wrap[S any](inner Step[S], run StepFunc[S]) Step[S] {
	return &decorated[S]{inner: inner, run: run}
}

func (d *decorated[S]) ID() string { return d.inner.ID() }

func (d *decorated[S]) Run(ctx context.Context, state S) (api.Result[S], error) {
	return d.run(ctx, state)
}

func (d *decorated[S]) OnStart(ctx context.Context, state S) error {
	if h, ok := d.inner.(api.StartHook[S]); ok {
		return h.OnStart(ctx, state)
	}
	return nil
}

func (d *decorated[S]) OnComplete(ctx context.Context, state S) error {
	if h, ok := d.inner.(api.CompleteHook[S]); ok {
		return h.OnComplete(ctx, state)
	}
	return nil
}

func (d *decorated[S]) OnError(ctx context.Context, err error, state S) {
	if h, ok := d.inner.(api.ErrorHook[S]); ok {
		h.OnError(ctx, err, state)
	}
}

// SimpleStep adapts a plain state transformation into a step. It emits
// events after fn succeeds, or a single "<id>:complete" event when none are
// given.
func SimpleStep[S any](id string, fn func(ctx context.Context, state S) (S, error), events ...Event) *api.FuncStep[S] {
	if len(events) == 0 {
		events = []Event{{Type: CompleteEvent(id)}}
	}
	return api.NewStep(id, func(ctx context.Context, state S) (api.Result[S], error) {
		next, err := fn(ctx, state)
		if err != nil {
			return api.Result[S]{}, err
		}
		return api.Result[S]{State: next, Events: slices.Clone(events)}, nil
	})
}

// TimeoutStep fails with ErrStepTimeout when step does not return within d.
// The step's context is cancelled on timeout; a step that ignores it keeps
// running in the background but its result is dropped.
func TimeoutStep[S any](step Step[S], d time.Duration) Step[S] {
	type outcome struct {
		res api.Result[S]
		err error
	}

	return wrap(step, func(ctx context.Context, state S) (api.Result[S], error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan outcome, 1)
		go func() {
			var o outcome
			defer func() {
				if r := recover(); r != nil {
					o.err = fmt.Errorf("%w: %v", api.ErrStepPanic, r)
				}
				done <- o
			}()
			o.res, o.err = step.Run(ctx, state)
		}()

		select {
		case o := <-done:
			return o.res, o.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return api.Result[S]{}, fmt.Errorf("%w: %q after %s", ErrStepTimeout, step.ID(), d)
			}
			return api.Result[S]{}, ctx.Err()
		}
	})
}

// BatchConfig configures BatchStep.
type BatchConfig[S, T, R any] struct {
	// Items extracts the items to process from the state.
	Items func(state S) []T

	// Process handles one item. Items of a chunk run concurrently.
	Process func(ctx context.Context, item T, state S) (R, error)

	// Update folds the results, in item order, back into the state.
	Update func(state S, results []R, items []T) S

	// Size is the chunk size; <= 0 is treated as 1.
	Size int
}

// BatchStep processes the state's items in chunks of cfg.Size. Chunks run
// one after another; the items of a chunk run concurrently. The first
// failing item fails the step. On success it emits batch:completed.
func BatchStep[S, T, R any](id string, cfg BatchConfig[S, T, R]) *api.FuncStep[S] {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	logger := slog.Default().With(slog.String("step", id))

	return &api.FuncStep[S]{
		Name:   id,
		Params: cfg,
		Fn: func(ctx context.Context, state S) (api.Result[S], error) {
			items := cfg.Items(state)
			results := make([]R, len(items))

			logger.InfoContext(ctx, "processing batch",
				slog.Int("items", len(items)),
				slog.Int("size", size),
			)

			for start := 0; start < len(items); start += size {
				end := min(start+size, len(items))

				g, gctx := errgroup.WithContext(ctx)
				for i := start; i < end; i++ {
					g.Go(func() error {
						r, err := cfg.Process(gctx, items[i], state)
						if err != nil {
							return fmt.Errorf("item %d: %w", i, err)
						}
						results[i] = r
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return api.Result[S]{}, err
				}
			}

			next := state
			if cfg.Update != nil {
				next = cfg.Update(state, results, items)
			}
			return api.Result[S]{
				State:  next,
				Events: []Event{{Type: EventBatchCompleted, Payload: BatchCompletedPayload{TotalItems: len(items)}}},
			}, nil
		},
	}
}

// ConditionalStep runs step only when cond holds for the current state.
// Otherwise the state passes through unchanged and skip is emitted, or a
// step:skipped event when skip is empty.
func ConditionalStep[S any](step Step[S], cond func(state S) bool, skip ...Event) Step[S] {
	id := step.ID()
	return wrap(step, func(ctx context.Context, state S) (api.Result[S], error) {
		if cond(state) {
			return step.Run(ctx, state)
		}
		slog.Default().DebugContext(ctx, "condition not met, skipping", slog.String("step", id))

		events := slices.Clone(skip)
		if len(events) == 0 {
			events = []Event{{Type: EventStepSkipped, Payload: SkippedPayload{StepID: id}}}
		}
		return api.Result[S]{State: state, Events: events}, nil
	})
}

// CompletionTracker records which steps have completed. It is safe for
// concurrent use.
type CompletionTracker struct {
	mu   sync.RWMutex
	done map[string]struct{}
}

// NewCompletionTracker returns a tracker with ids already completed.
func NewCompletionTracker(ids ...string) *CompletionTracker {
	t := &CompletionTracker{done: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		t.done[id] = struct{}{}
	}
	return t
}

// MarkCompleted records id as completed.
func (t *CompletionTracker) MarkCompleted(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		t.done = make(map[string]struct{})
	}
	t.done[id] = struct{}{}
}

// Completed reports whether id has completed.
func (t *CompletionTracker) Completed(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.done[id]
	return ok
}

// Missing returns the ids in deps that have not completed, in order.
func (t *CompletionTracker) Missing(deps []string) []string {
	var out []string
	for _, d := range deps {
		if !t.Completed(d) {
			out = append(out, d)
		}
	}
	return out
}

// DependentStep runs step only when every id in deps has completed in the
// tracker found in the state, and marks step completed when it succeeds.
// A nil tracker counts as nothing completed.
func DependentStep[S any](step Step[S], deps []string, tracker func(state S) *CompletionTracker) Step[S] {
	id := step.ID()
	deps = slices.Clone(deps)

	return wrap(step, func(ctx context.Context, state S) (api.Result[S], error) {
		t := tracker(state)
		if t == nil {
			t = NewCompletionTracker()
		}
		if missing := t.Missing(deps); len(missing) > 0 {
			return api.Result[S]{}, fmt.Errorf("%w: step %q waits for %s",
				ErrDependenciesUnsatisfied, id, strings.Join(missing, ", "))
		}

		res, err := step.Run(ctx, state)
		if err != nil {
			return res, err
		}
		if done := tracker(res.State); done != nil {
			done.MarkCompleted(id)
		}
		return res, nil
	})
}

// Sequential builds a workflow running steps in order: each step's
// "<id>:complete" event activates the next one. Steps built with SimpleStep
// emit that event by default.
func Sequential[S any](name string, steps []Step[S], opts ...Option) (*Workflow[S], error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequential workflow %q has no steps", name)
	}
	b := New[S](name)
	for i, s := range steps {
		b.Step(s)
		if i+1 < len(steps) {
			b.On(CompleteEvent(s.ID()), steps[i+1].ID())
		}
	}
	return b.Build(opts...)
}
