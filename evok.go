package evok

import (
	"log/slog"

	"github.com/petrijr/evok/internal/engine"
	"github.com/petrijr/evok/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Event                = api.Event
	RunInfo              = api.RunInfo
	RouteTable           = api.RouteTable
	RetryPolicy          = api.RetryPolicy
	StepError            = api.StepError
	HistoryRecord        = api.HistoryRecord
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

type (
	Step[S any]               = api.Step[S]
	StepFunc[S any]           = api.StepFunc[S]
	Result[S any]             = api.Result[S]
	Hooks[S any]              = api.Hooks[S]
	Router[S any]             = api.Router[S]
	Registry[S any]           = api.Registry[S]
	WorkflowDefinition[S any] = api.WorkflowDefinition[S]

	// Workflow executes a WorkflowDefinition. It is itself a Step, so
	// workflows nest.
	Workflow[S any] = engine.Workflow[S]
)

// Re-export common helpers.

var (
	NewEvent             = api.NewEvent
	Emit                 = api.Emit
	FailedStep           = api.FailedStep
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export engine errors.

var (
	ErrStepNotFound  = api.ErrStepNotFound
	ErrDuplicateStep = api.ErrDuplicateStep
	ErrRouting       = api.ErrRouting
	ErrStepPanic     = api.ErrStepPanic
	ErrEmitterClosed = api.ErrEmitterClosed
	ErrNoEmitter     = api.ErrNoEmitter
)

// Option configures a Workflow.
type Option func(*options)

type options struct {
	observers []api.Observer
	logger    *slog.Logger
}

// WithObserver adds an observer to the workflow. It may be given several
// times; observers are called in the order they were added.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger sets the logger used for engine diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func (o options) config() engine.Config {
	return engine.Config{
		Observer: api.NewCompositeObserver(o.observers...),
		Logger:   o.logger,
	}
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewWorkflow creates a Workflow from def. The definition is not validated:
// a start or routed id without a registered step fails the run that
// resolves it.
func NewWorkflow[S any](def WorkflowDefinition[S], opts ...Option) *Workflow[S] {
	return engine.NewWorkflow(def, collect(opts).config())
}

// NewStep returns a Step running fn under id.
func NewStep[S any](id string, fn StepFunc[S]) *api.FuncStep[S] {
	return api.NewStep(id, fn)
}

// NewRegistry creates a step registry holding steps.
func NewRegistry[S any](steps ...Step[S]) (*Registry[S], error) {
	return api.NewRegistry(steps...)
}
