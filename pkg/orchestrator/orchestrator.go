package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/petrijr/evok"
	"github.com/petrijr/evok/pkg/api"
	"github.com/petrijr/evok/pkg/worker"
)

var (
	// ErrUnknownTaskType is recorded as the failure of a task whose type
	// WorkerFactory does not know.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrMissingCallback is returned by New when a required callback is nil.
	ErrMissingCallback = errors.New("missing callback")

	// ErrDuplicateTask is returned by the orchestrator step when the
	// breakdown yields two tasks with the same id.
	ErrDuplicateTask = errors.New("duplicate task id")
)

// DefaultWorkflowName is the workflow name used when Config.Name is empty.
const DefaultWorkflowName = "orchestrator-workers"

// WorkerFunc executes one task against the state as of dispatch.
type WorkerFunc[S, R any] func(ctx context.Context, task Task, state S) (R, error)

// Config configures the orchestrator-workers pattern.
type Config[S, R any] struct {
	// Name is the workflow name. Defaults to DefaultWorkflowName.
	Name string

	// TaskBreakdown splits the original task into subtasks. Required.
	TaskBreakdown func(ctx context.Context, originalTask string, state S) ([]Task, error)

	// WorkerFactory resolves the worker for a task type. Required.
	WorkerFactory func(taskType string) (WorkerFunc[S, R], bool)

	// SynthesizeResults combines all results, failed ones included, into
	// the final state. Required.
	SynthesizeResults func(ctx context.Context, results []Result[R], state S) (S, error)

	// MaxConcurrentWorkers bounds the tasks in flight. Defaults to
	// DefaultMaxConcurrentWorkers.
	MaxConcurrentWorkers int

	// WorkerTimeout bounds each task; <= 0 means no timeout.
	WorkerTimeout time.Duration

	// TimeoutPolicy decides what happens to a worker that timed out.
	TimeoutPolicy worker.TimeoutPolicy

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Components are the steps of the pattern and the workflow wiring them:
//
//	orchestrator:breakdown_complete -> worker
//	worker:continue                 -> worker
//	worker:all_complete             -> synthesizer
type Components[S any] struct {
	Orchestrator api.Step[S]
	Worker       api.Step[S]
	Synthesizer  api.Step[S]
	Workflow     *evok.Workflow[S]
}

type pattern[S Carrier[S, R], R any] struct {
	cfg    Config[S, R]
	limit  int
	logger *slog.Logger
}

// New builds the orchestrator-workers steps and workflow. opts configure
// the workflow.
func New[S Carrier[S, R], R any](cfg Config[S, R], opts ...evok.Option) (*Components[S], error) {
	switch {
	case cfg.TaskBreakdown == nil:
		return nil, fmt.Errorf("%w: TaskBreakdown", ErrMissingCallback)
	case cfg.WorkerFactory == nil:
		return nil, fmt.Errorf("%w: WorkerFactory", ErrMissingCallback)
	case cfg.SynthesizeResults == nil:
		return nil, fmt.Errorf("%w: SynthesizeResults", ErrMissingCallback)
	}

	name := cfg.Name
	if name == "" {
		name = DefaultWorkflowName
	}
	limit := cfg.MaxConcurrentWorkers
	if limit <= 0 {
		limit = DefaultMaxConcurrentWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &pattern[S, R]{
		cfg:    cfg,
		limit:  limit,
		logger: logger.With(slog.String("workflow", name)),
	}

	c := &Components[S]{
		Orchestrator: api.NewStep[S](StepOrchestrator, p.breakdown),
		Worker:       api.NewStep[S](StepWorker, p.work),
		Synthesizer:  api.NewStep[S](StepSynthesizer, p.synthesize),
	}

	wf, err := evok.New[S](name).
		Step(c.Orchestrator).
		Step(c.Worker).
		Step(c.Synthesizer).
		Start(StepOrchestrator).
		On(EventBreakdownComplete, StepWorker).
		On(EventWorkerContinue, StepWorker).
		On(EventWorkerAllComplete, StepSynthesizer).
		Build(opts...)
	if err != nil {
		return nil, err
	}
	c.Workflow = wf
	return c, nil
}

// breakdown replaces the task lists with the breakdown of the original task.
func (p *pattern[S, R]) breakdown(ctx context.Context, state S) (api.Result[S], error) {
	orch := state.OrchestratorState()

	p.logger.InfoContext(ctx, "analyzing task")
	tasks, err := p.cfg.TaskBreakdown(ctx, orch.OriginalTask, state)
	if err != nil {
		return api.Result[S]{}, fmt.Errorf("task breakdown: %w", err)
	}

	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			return api.Result[S]{}, fmt.Errorf("%w: %q", ErrDuplicateTask, t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	p.logger.InfoContext(ctx, "task broken down", slog.Int("subtasks", len(tasks)))

	next := State[R]{
		OriginalTask:         orch.OriginalTask,
		PendingTasks:         slices.Clone(tasks),
		ActiveTasks:          make(map[string]Task),
		Workers:              make(map[string]WorkerStatus),
		MaxConcurrentWorkers: p.limit,
	}
	return api.Result[S]{
		State:  state.WithOrchestratorState(next),
		Events: []api.Event{api.NewEvent(EventBreakdownComplete, BreakdownPayload{SubtaskCount: len(tasks)})},
	}, nil
}

// work dispatches as many pending tasks as there is capacity for and waits
// for all of them. Every update to the task maps happens here, before
// dispatch and after the join, never from the workers themselves.
func (p *pattern[S, R]) work(ctx context.Context, state S) (api.Result[S], error) {
	orch := state.OrchestratorState().clone()

	available := orch.MaxConcurrentWorkers - len(orch.ActiveTasks)
	if available <= 0 || len(orch.PendingTasks) == 0 {
		p.logger.InfoContext(ctx, "no capacity or no pending tasks",
			slog.Int("active", len(orch.ActiveTasks)),
			slog.Int("pending", len(orch.PendingTasks)),
		)
		return api.Result[S]{State: state}, nil
	}

	n := min(available, len(orch.PendingTasks))
	batch := slices.Clone(orch.PendingTasks[:n])
	orch.PendingTasks = slices.Delete(orch.PendingTasks, 0, n)

	jobs := make([]worker.Job[R], len(batch))
	for i, task := range batch {
		workerID := worker.NewID()
		orch.ActiveTasks[task.ID] = task
		orch.Workers[workerID] = WorkerBusy
		jobs[i] = worker.Job[R]{ID: task.ID, WorkerID: workerID}
	}

	// Workers see the state with their batch marked active.
	dispatched := state.WithOrchestratorState(orch)
	for i, task := range batch {
		jobs[i].Run = p.job(task, dispatched)
	}

	p.logger.InfoContext(ctx, "processing tasks in parallel", slog.Int("tasks", len(batch)))

	outcomes := worker.RunAll(ctx, jobs, worker.Options{
		Concurrency:   len(jobs),
		Timeout:       p.cfg.WorkerTimeout,
		TimeoutPolicy: p.cfg.TimeoutPolicy,
		Logger:        p.logger,
	})

	next := orch.clone()
	for _, o := range outcomes {
		res := Result[R]{
			TaskID:      o.JobID,
			WorkerID:    o.WorkerID,
			CompletedAt: o.CompletedAt,
		}
		if o.Err != nil {
			res.Error = o.Err.Error()
			p.logger.ErrorContext(ctx, "task failed",
				slog.String("task_id", o.JobID),
				slog.String("worker_id", o.WorkerID),
				slog.Any("error", o.Err),
			)
		} else {
			res.Value = o.Value
			p.logger.InfoContext(ctx, "task completed",
				slog.String("task_id", o.JobID),
				slog.String("worker_id", o.WorkerID),
			)
		}
		next.CompletedTasks = append(next.CompletedTasks, res)
		delete(next.ActiveTasks, o.JobID)
		next.Workers[o.WorkerID] = WorkerIdle
	}

	var events []api.Event
	if len(next.PendingTasks) > 0 {
		events = append(events, api.NewEvent(EventWorkerContinue, ContinuePayload{Remaining: len(next.PendingTasks)}))
	}
	if len(next.PendingTasks) == 0 && len(next.ActiveTasks) == 0 {
		events = append(events, api.NewEvent(EventWorkerAllComplete, AllCompletePayload{TotalResults: len(next.CompletedTasks)}))
	}

	return api.Result[S]{State: state.WithOrchestratorState(next), Events: events}, nil
}

func (p *pattern[S, R]) job(task Task, state S) func(context.Context) (R, error) {
	return func(ctx context.Context) (R, error) {
		fn, ok := p.cfg.WorkerFactory(task.Type)
		if !ok || fn == nil {
			var zero R
			return zero, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.Type)
		}
		return fn(ctx, task, state)
	}
}

// synthesize hands every result to SynthesizeResults and reports the tally.
func (p *pattern[S, R]) synthesize(ctx context.Context, state S) (api.Result[S], error) {
	results := slices.Clone(state.OrchestratorState().CompletedTasks)

	var failed []Result[R]
	for _, r := range results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	successful := len(results) - len(failed)

	p.logger.InfoContext(ctx, "combining results",
		slog.Int("successful", successful),
		slog.Int("failed", len(failed)),
	)
	for _, r := range failed {
		p.logger.WarnContext(ctx, "task failed",
			slog.String("task_id", r.TaskID),
			slog.String("error", r.Error),
		)
	}

	final, err := p.cfg.SynthesizeResults(ctx, results, state)
	if err != nil {
		return api.Result[S]{}, fmt.Errorf("synthesize results: %w", err)
	}

	return api.Result[S]{
		State: final,
		Events: []api.Event{api.NewEvent(EventComplete, CompletePayload{
			TotalTasks: len(results),
			Successful: successful,
			Failed:     len(failed),
		})},
	}, nil
}
