package api

import "context"

// Result is what a step hands back to the scheduler: the next state and the
// events to route, in the order they should be routed.
type Result[S any] struct {
	State  S
	Events []Event
}

// Step is the unit of work in a workflow.
//
// Run receives the current state and returns the next one together with
// zero or more events. Steps are polymorphic over the state type S; the
// engine imposes no purity requirement beyond returning a state value.
type Step[S any] interface {
	// ID returns the step identifier, unique within a workflow.
	ID() string

	// Run executes the step against state.
	Run(ctx context.Context, state S) (Result[S], error)
}

// StartHook is implemented by steps that want a callback before Run.
// A non-nil error is treated exactly like a failing Run.
type StartHook[S any] interface {
	OnStart(ctx context.Context, state S) error
}

// CompleteHook is implemented by steps that want a callback with the state
// produced by a successful Run.
type CompleteHook[S any] interface {
	OnComplete(ctx context.Context, state S) error
}

// ErrorHook is implemented by steps that want to observe their own failure.
// It is best-effort: the engine does not handle anything it does.
type ErrorHook[S any] interface {
	OnError(ctx context.Context, err error, state S)
}

// StepFunc is the function form of Step.Run.
type StepFunc[S any] func(ctx context.Context, state S) (Result[S], error)

// Hooks groups the optional lifecycle callbacks shared by steps and
// workflows. Nil fields are skipped.
type Hooks[S any] struct {
	OnStart    func(ctx context.Context, state S) error
	OnComplete func(ctx context.Context, state S) error
	OnError    func(ctx context.Context, err error, state S)
}

// Start runs OnStart if set.
func (h Hooks[S]) Start(ctx context.Context, state S) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx, state)
}

// Complete runs OnComplete if set.
func (h Hooks[S]) Complete(ctx context.Context, state S) error {
	if h.OnComplete == nil {
		return nil
	}
	return h.OnComplete(ctx, state)
}

// Fail runs OnError if set.
func (h Hooks[S]) Fail(ctx context.Context, err error, state S) {
	if h.OnError != nil {
		h.OnError(ctx, err, state)
	}
}

// FuncStep adapts a StepFunc plus optional hooks into a Step.
//
//	step := &api.FuncStep[Order]{
//	    Name: "price",
//	    Fn:   priceOrder,
//	}
type FuncStep[S any] struct {
	Name  string
	Fn    StepFunc[S]
	Hooks Hooks[S]

	// Params is caller-defined static configuration. The engine never reads it.
	Params any
}

var (
	_ Step[int]         = (*FuncStep[int])(nil)
	_ StartHook[int]    = (*FuncStep[int])(nil)
	_ CompleteHook[int] = (*FuncStep[int])(nil)
	_ ErrorHook[int]    = (*FuncStep[int])(nil)
)

// NewStep returns a FuncStep with the given id and function.
func NewStep[S any](id string, fn StepFunc[S]) *FuncStep[S] {
	return &FuncStep[S]{Name: id, Fn: fn}
}

func (f *FuncStep[S]) ID() string { return f.Name }

func (f *FuncStep[S]) Run(ctx context.Context, state S) (Result[S], error) {
	return f.Fn(ctx, state)
}

func (f *FuncStep[S]) OnStart(ctx context.Context, state S) error {
	return f.Hooks.Start(ctx, state)
}

func (f *FuncStep[S]) OnComplete(ctx context.Context, state S) error {
	return f.Hooks.Complete(ctx, state)
}

func (f *FuncStep[S]) OnError(ctx context.Context, err error, state S) {
	f.Hooks.Fail(ctx, err, state)
}
