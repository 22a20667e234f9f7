package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/petrijr/evok/pkg/api"
)

// Config holds the ambient collaborators of a workflow.
type Config struct {
	Observer api.Observer
	Logger   *slog.Logger
}

// Workflow executes a WorkflowDefinition. It satisfies api.Step, so a
// workflow can be registered as a step of another workflow.
//
// A Workflow is safe for concurrent use: every Execute call gets its own
// scheduler, bus and queue.
type Workflow[S any] struct {
	def      api.WorkflowDefinition[S]
	observer api.Observer
	logger   *slog.Logger
}

var _ api.Step[int] = (*Workflow[int])(nil)

// NewWorkflow creates a Workflow. Nothing beyond the shape of def is
// validated here; unknown step ids fail the run that resolves them.
func NewWorkflow[S any](def api.WorkflowDefinition[S], cfg Config) *Workflow[S] {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if def.Steps == nil {
		def.Steps = &api.Registry[S]{}
	}
	return &Workflow[S]{
		def:      def,
		observer: obs,
		logger:   logger.With(slog.String("workflow", def.Name)),
	}
}

// ID returns the workflow name.
func (w *Workflow[S]) ID() string { return w.def.Name }

// Definition returns the definition the workflow was built from.
func (w *Workflow[S]) Definition() api.WorkflowDefinition[S] { return w.def }

// Run executes the workflow as a step. Events of the inner run are not
// passed to the caller.
func (w *Workflow[S]) Run(ctx context.Context, state S) (api.Result[S], error) {
	final, err := w.Execute(ctx, state)
	if err != nil {
		return api.Result[S]{}, err
	}
	return api.Result[S]{State: final}, nil
}

// Execute runs the workflow from its start step until no activation is
// left and returns the final state.
func (w *Workflow[S]) Execute(ctx context.Context, initial S) (S, error) {
	var zero S

	run := api.RunInfo{
		ID:       uuid.NewString(),
		Workflow: w.def.Name,
	}
	if parent, ok := api.RunFromContext(ctx); ok {
		run.ParentID = parent.ID
	}
	ctx = api.WithRun(ctx, run)

	w.observer.OnWorkflowStart(ctx, run)

	if err := w.def.Hooks.Start(ctx, initial); err != nil {
		err = fmt.Errorf("workflow %q start hook: %w", w.def.Name, err)
		w.def.Hooks.Fail(ctx, err, initial)
		w.observer.OnWorkflowFailed(ctx, run, err)
		return zero, err
	}

	sched := newScheduler(&w.def, run, w.observer, w.logger, initial)
	sched.queue.PushSteps("", w.def.Start)

	if err := sched.drain(ctx); err != nil {
		w.def.Hooks.Fail(ctx, err, sched.snapshot())
		w.observer.OnWorkflowFailed(ctx, run, err)
		return zero, err
	}

	final := sched.snapshot()
	if err := w.def.Hooks.Complete(ctx, final); err != nil {
		err = fmt.Errorf("workflow %q complete hook: %w", w.def.Name, err)
		w.observer.OnWorkflowFailed(ctx, run, err)
		return zero, err
	}

	w.observer.OnWorkflowCompleted(ctx, run)
	return final, nil
}
