package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay workflow execution. Callbacks for one
// run are never issued concurrently, except OnEvent for events a step emits
// from its own goroutines while it is running.
type Observer interface {
	// OnWorkflowStart is called once per run, before the workflow's own
	// OnStart hook and before the first step.
	OnWorkflowStart(ctx context.Context, run RunInfo)

	// OnWorkflowCompleted is called when the activation queue has drained
	// and the workflow's OnComplete hook succeeded.
	OnWorkflowCompleted(ctx context.Context, run RunInfo)

	// OnWorkflowFailed is called when a run aborts.
	OnWorkflowFailed(ctx context.Context, run RunInfo, err error)

	// OnStepStart is called before a step's OnStart hook.
	OnStepStart(ctx context.Context, run RunInfo, stepID string)

	// OnStepCompleted is called after a step returns, for both successes
	// and failures (err != nil).
	OnStepCompleted(ctx context.Context, run RunInfo, stepID string, err error, duration time.Duration)

	// OnEvent is called after the router handled ev; activated holds the
	// step ids it enqueued.
	OnEvent(ctx context.Context, run RunInfo, ev Event, activated []string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnWorkflowStart(ctx context.Context, run RunInfo)             {}
func (NoopObserver) OnWorkflowCompleted(ctx context.Context, run RunInfo)         {}
func (NoopObserver) OnWorkflowFailed(ctx context.Context, run RunInfo, err error) {}
func (NoopObserver) OnStepStart(ctx context.Context, run RunInfo, stepID string)  {}
func (NoopObserver) OnStepCompleted(ctx context.Context, run RunInfo, stepID string, err error, d time.Duration) {
}
func (NoopObserver) OnEvent(ctx context.Context, run RunInfo, ev Event, activated []string) {}

// CompositeObserver fans out callbacks to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards callbacks to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnWorkflowStart(ctx context.Context, run RunInfo) {
	for _, o := range c.observers {
		o.OnWorkflowStart(ctx, run)
	}
}

func (c *CompositeObserver) OnWorkflowCompleted(ctx context.Context, run RunInfo) {
	for _, o := range c.observers {
		o.OnWorkflowCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnWorkflowFailed(ctx context.Context, run RunInfo, err error) {
	for _, o := range c.observers {
		o.OnWorkflowFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run RunInfo, stepID string) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, stepID)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run RunInfo, stepID string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, stepID, err, d)
	}
}

func (c *CompositeObserver) OnEvent(ctx context.Context, run RunInfo, ev Event, activated []string) {
	for _, o := range c.observers {
		o.OnEvent(ctx, run, ev, activated)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs workflow, step and event
// callbacks using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func runAttrs(run RunInfo) []any {
	attrs := []any{
		slog.String("workflow", run.Workflow),
		slog.String("run_id", run.ID),
	}
	if run.ParentID != "" {
		attrs = append(attrs, slog.String("parent_run_id", run.ParentID))
	}
	return attrs
}

func (o *LoggingObserver) OnWorkflowStart(ctx context.Context, run RunInfo) {
	o.Logger.InfoContext(ctx, "workflow_start", runAttrs(run)...)
}

func (o *LoggingObserver) OnWorkflowCompleted(ctx context.Context, run RunInfo) {
	o.Logger.InfoContext(ctx, "workflow_completed", runAttrs(run)...)
}

func (o *LoggingObserver) OnWorkflowFailed(ctx context.Context, run RunInfo, err error) {
	o.Logger.ErrorContext(ctx, "workflow_failed",
		append(runAttrs(run), slog.Any("error", err))...,
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run RunInfo, stepID string) {
	o.Logger.DebugContext(ctx, "step_start",
		append(runAttrs(run), slog.String("step", stepID))...,
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run RunInfo, stepID string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		append(runAttrs(run),
			slog.String("step", stepID),
			slog.Duration("duration", d),
			slog.Any("error", err),
		)...,
	)
}

func (o *LoggingObserver) OnEvent(ctx context.Context, run RunInfo, ev Event, activated []string) {
	o.Logger.DebugContext(ctx, "event_routed",
		append(runAttrs(run),
			slog.String("event", ev.Type),
			slog.Any("activated", activated),
		)...,
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	workflowsStarted   atomic.Int64
	workflowsCompleted atomic.Int64
	workflowsFailed    atomic.Int64
	stepsCompleted     atomic.Int64
	stepsFailed        atomic.Int64
	eventsRouted       atomic.Int64
	activations        atomic.Int64
	totalStepDuration  atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	WorkflowsStarted   int64
	WorkflowsCompleted int64
	WorkflowsFailed    int64
	PendingWorkflows   int64

	StepsCompleted  int64
	StepsFailed     int64
	AvgStepDuration time.Duration

	EventsRouted int64
	Activations  int64
}

func (m *BasicMetrics) OnWorkflowStart(ctx context.Context, run RunInfo) {
	m.workflowsStarted.Add(1)
}

func (m *BasicMetrics) OnWorkflowCompleted(ctx context.Context, run RunInfo) {
	m.workflowsCompleted.Add(1)
}

func (m *BasicMetrics) OnWorkflowFailed(ctx context.Context, run RunInfo, err error) {
	m.workflowsFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run RunInfo, stepID string, err error, d time.Duration) {
	// Only successful steps feed the average duration.
	if err != nil {
		m.stepsFailed.Add(1)
		return
	}
	m.stepsCompleted.Add(1)
	m.totalStepDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnEvent(ctx context.Context, run RunInfo, ev Event, activated []string) {
	m.eventsRouted.Add(1)
	m.activations.Add(int64(len(activated)))
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.workflowsStarted.Load()
	completed := m.workflowsCompleted.Load()
	failed := m.workflowsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		WorkflowsStarted:   started,
		WorkflowsCompleted: completed,
		WorkflowsFailed:    failed,
		PendingWorkflows:   started - completed - failed,
		StepsCompleted:     steps,
		StepsFailed:        m.stepsFailed.Load(),
		AvgStepDuration:    avg,
		EventsRouted:       m.eventsRouted.Load(),
		Activations:        m.activations.Load(),
	}
}
