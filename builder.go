package evok

import (
	"context"
	"errors"
	"fmt"

	"github.com/petrijr/evok/pkg/api"
)

// FlowBuilder provides a fluent API for defining workflows:
//
//	wf, err := evok.New[Order]("checkout").
//	    StepFunc("validate", validate).
//	    StepFunc("charge", charge).
//	    StepFunc("ship", ship).
//	    On("validate:ok", "charge").
//	    On("charge:ok", "ship").
//	    Build()
//
//	final, err := wf.Execute(ctx, order)
//
// The first step added is the start step unless Start says otherwise.
type FlowBuilder[S any] struct {
	name   string
	steps  []api.Step[S]
	start  string
	routes api.RouteTable
	router api.Router[S]
	hooks  api.Hooks[S]
}

// New creates a new workflow builder with the given name.
func New[S any](name string) *FlowBuilder[S] {
	if name == "" {
		panic("evok: workflow name must not be empty")
	}
	return &FlowBuilder[S]{
		name:   name,
		routes: make(api.RouteTable),
	}
}

// Name returns the workflow name.
func (b *FlowBuilder[S]) Name() string {
	return b.name
}

// Step adds a step to the workflow.
func (b *FlowBuilder[S]) Step(step Step[S]) *FlowBuilder[S] {
	if step == nil {
		panic("evok: step must not be nil")
	}
	b.steps = append(b.steps, step)
	return b
}

// StepFunc adds a step backed by fn.
func (b *FlowBuilder[S]) StepFunc(id string, fn StepFunc[S]) *FlowBuilder[S] {
	if id == "" {
		panic("evok: step id must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("evok: step %q has nil function", id))
	}
	return b.Step(api.NewStep(id, fn))
}

// Start sets the id of the first step to run.
func (b *FlowBuilder[S]) Start(id string) *FlowBuilder[S] {
	b.start = id
	return b
}

// On routes events of type eventType to the given step ids, in order.
// Calling On again for the same type appends.
func (b *FlowBuilder[S]) On(eventType string, stepIDs ...string) *FlowBuilder[S] {
	b.routes[eventType] = append(b.routes[eventType], stepIDs...)
	return b
}

// Router installs a routing function. It cannot be combined with On.
func (b *FlowBuilder[S]) Router(r Router[S]) *FlowBuilder[S] {
	b.router = r
	return b
}

// OnStart sets the workflow's start hook.
func (b *FlowBuilder[S]) OnStart(fn func(ctx context.Context, state S) error) *FlowBuilder[S] {
	b.hooks.OnStart = fn
	return b
}

// OnComplete sets the workflow's completion hook.
func (b *FlowBuilder[S]) OnComplete(fn func(ctx context.Context, state S) error) *FlowBuilder[S] {
	b.hooks.OnComplete = fn
	return b
}

// OnError sets the workflow's error hook.
func (b *FlowBuilder[S]) OnError(fn func(ctx context.Context, err error, state S)) *FlowBuilder[S] {
	b.hooks.OnError = fn
	return b
}

// Definition assembles the WorkflowDefinition. It fails on duplicate step
// ids, an empty workflow, or when both On and Router were used.
func (b *FlowBuilder[S]) Definition() (WorkflowDefinition[S], error) {
	if len(b.steps) == 0 {
		return WorkflowDefinition[S]{}, fmt.Errorf("workflow %q has no steps", b.name)
	}

	reg, err := api.NewRegistry(b.steps...)
	if err != nil {
		return WorkflowDefinition[S]{}, fmt.Errorf("workflow %q: %w", b.name, err)
	}

	router := b.router
	if router != nil && len(b.routes) > 0 {
		return WorkflowDefinition[S]{}, errors.New("evok: On and Router are mutually exclusive")
	}
	if router == nil {
		routes := make(api.RouteTable, len(b.routes))
		for typ, ids := range b.routes {
			routes[typ] = append([]string(nil), ids...)
		}
		router = api.RouteTableRouter[S](routes)
	}

	start := b.start
	if start == "" {
		start = b.steps[0].ID()
	}

	return WorkflowDefinition[S]{
		Name:   b.name,
		Steps:  reg,
		Start:  start,
		Router: router,
		Hooks:  b.hooks,
	}, nil
}

// Build returns the workflow.
func (b *FlowBuilder[S]) Build(opts ...Option) (*Workflow[S], error) {
	def, err := b.Definition()
	if err != nil {
		return nil, err
	}
	return NewWorkflow(def, opts...), nil
}

// MustBuild is like Build but panics on error.
// Useful for initialization in main().
func (b *FlowBuilder[S]) MustBuild(opts ...Option) *Workflow[S] {
	wf, err := b.Build(opts...)
	if err != nil {
		panic(err)
	}
	return wf
}
