package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/petrijr/evok/internal/taskqueue"
	"github.com/petrijr/evok/pkg/api"
)

// phase is the drain state of a scheduler.
type phase int

const (
	// phaseIdle: no drain loop is running.
	phaseIdle phase = iota
	// phaseDraining: a drain loop is running and nothing asked for another pass.
	phaseDraining
	// phaseDrainPending: a drain loop is running and another pass was requested.
	phaseDrainPending
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseDraining:
		return "draining"
	case phaseDrainPending:
		return "drain-pending"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// scheduler drives the activation queue of one run to a fixed point.
// It is created per run and never shared between runs.
type scheduler[S any] struct {
	def      *api.WorkflowDefinition[S]
	run      api.RunInfo
	observer api.Observer
	logger   *slog.Logger

	bus   *Bus
	queue *taskqueue.Queue

	mu    sync.Mutex
	phase phase
	state S
	fault error
	steps int
}

func newScheduler[S any](def *api.WorkflowDefinition[S], run api.RunInfo, obs api.Observer, logger *slog.Logger, initial S) *scheduler[S] {
	s := &scheduler[S]{
		def:      def,
		run:      run,
		observer: obs,
		logger:   logger,
		bus:      NewBus(),
		queue:    taskqueue.New(),
		state:    initial,
	}
	s.bus.Subscribe(s.route)
	return s
}

// drain runs passes over the queue until it is empty and no pass was
// requested meanwhile. Calling drain while a drain is in progress only
// requests another pass.
func (s *scheduler[S]) drain(ctx context.Context) error {
	if !s.enter() {
		return nil
	}
	defer s.setPhase(phaseIdle)

	for pass := 1; ; pass++ {
		s.setPhase(phaseDraining)

		for {
			act, ok := s.queue.Pop()
			if !ok {
				break
			}
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run %s cancelled before step %q: %w", s.run.ID, act.StepID, err)
			}
			if err := s.execute(ctx, act); err != nil {
				return err
			}
		}

		if !s.again() {
			s.logger.Debug("drain settled",
				slog.String("run_id", s.run.ID),
				slog.Int("passes", pass),
				slog.Int("steps", s.executed()),
			)
			return nil
		}
	}
}

// enter moves Idle -> Draining. Any other phase becomes DrainPending and
// enter reports false.
func (s *scheduler[S]) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseIdle {
		s.phase = phaseDrainPending
		return false
	}
	s.phase = phaseDraining
	return true
}

// requestDrain asks the running drain loop for another pass.
func (s *scheduler[S]) requestDrain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case phaseDraining:
		s.phase = phaseDrainPending
	case phaseIdle:
		// Only reachable if a listener fires after the run settled.
		s.logger.Debug("drain requested while idle; activation dropped",
			slog.String("run_id", s.run.ID),
		)
	}
}

// again reports whether another pass is needed.
func (s *scheduler[S]) again() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == phaseDrainPending || s.queue.Len() > 0
}

func (s *scheduler[S]) setPhase(p phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *scheduler[S]) currentPhase() phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *scheduler[S]) snapshot() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *scheduler[S]) commit(state S) {
	s.mu.Lock()
	s.state = state
	s.steps++
	s.mu.Unlock()
}

func (s *scheduler[S]) executed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

func (s *scheduler[S]) setFault(err error) {
	s.mu.Lock()
	if s.fault == nil {
		s.fault = err
	}
	s.mu.Unlock()
}

func (s *scheduler[S]) takeFault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.fault
	s.fault = nil
	return err
}

// execute resolves and runs one activation, then routes the events the step
// returned.
func (s *scheduler[S]) execute(ctx context.Context, act taskqueue.Activation) error {
	step, err := s.def.Steps.Lookup(act.StepID)
	if err != nil {
		return &api.StepError{StepID: act.StepID, Err: err}
	}

	state := s.snapshot()

	emitter := api.NewEmitter(s.bus)
	stepCtx := api.WithEmitter(ctx, emitter)

	s.observer.OnStepStart(ctx, s.run, act.StepID)
	start := time.Now()

	res, err := invoke(stepCtx, step, state)
	emitter.Close()

	s.observer.OnStepCompleted(ctx, s.run, act.StepID, err, time.Since(start))

	if err != nil {
		if h, ok := step.(api.ErrorHook[S]); ok {
			safeOnError(ctx, h, err, state)
		}
		return &api.StepError{StepID: act.StepID, Err: err}
	}

	s.commit(res.State)

	for _, ev := range res.Events {
		s.bus.Publish(ctx, ev)
	}

	// Faults from mid-step emits and from the returned events both land here.
	if err := s.takeFault(); err != nil {
		return &api.StepError{StepID: act.StepID, Err: err}
	}
	return nil
}

// route is the bus subscriber: it asks the router which steps ev activates
// and appends them to the back of the queue.
func (s *scheduler[S]) route(ctx context.Context, ev api.Event) {
	var ids []string
	if s.def.Router != nil {
		var err error
		ids, err = s.def.Router(ctx, ev, s.snapshot())
		if err != nil {
			s.setFault(fmt.Errorf("%w: event %q: %w", api.ErrRouting, ev.Type, err))
			return
		}
	}

	s.queue.PushSteps(ev.Type, ids...)
	s.observer.OnEvent(ctx, s.run, ev, ids)

	if len(ids) > 0 {
		s.requestDrain()
	}
}

// invoke runs the start hook, the step and the complete hook, converting
// panics into errors.
func invoke[S any](ctx context.Context, step api.Step[S], state S) (res api.Result[S], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", api.ErrStepPanic, r)
		}
	}()

	if h, ok := step.(api.StartHook[S]); ok {
		if err := h.OnStart(ctx, state); err != nil {
			return api.Result[S]{}, err
		}
	}

	res, err = step.Run(ctx, state)
	if err != nil {
		return api.Result[S]{}, err
	}

	if h, ok := step.(api.CompleteHook[S]); ok {
		if err := h.OnComplete(ctx, res.State); err != nil {
			return api.Result[S]{}, err
		}
	}
	return res, nil
}

func safeOnError[S any](ctx context.Context, h api.ErrorHook[S], err error, state S) {
	defer func() { _ = recover() }()
	h.OnError(ctx, err, state)
}
