package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTimeout is returned for jobs that did not finish within Options.Timeout.
	ErrTimeout = errors.New("worker timeout")

	// ErrPanic wraps a panic recovered from a job.
	ErrPanic = errors.New("worker panic")
)

// TimeoutPolicy decides what happens to a job that lost its timeout race.
type TimeoutPolicy int

const (
	// CancelOnTimeout cancels the job's context.
	CancelOnTimeout TimeoutPolicy = iota
	// DetachOnTimeout leaves the job running with a live context.
	DetachOnTimeout
)

func (p TimeoutPolicy) String() string {
	switch p {
	case CancelOnTimeout:
		return "cancel"
	case DetachOnTimeout:
		return "detach"
	default:
		return fmt.Sprintf("TimeoutPolicy(%d)", int(p))
	}
}

// Job is one unit of work.
type Job[R any] struct {
	ID string

	// WorkerID is the id reported in the outcome. When empty a fresh one
	// is generated with NewID.
	WorkerID string

	Run func(ctx context.Context) (R, error)
}

// Outcome is the result of one job. Err is nil on success; Value is only
// meaningful in that case.
type Outcome[R any] struct {
	JobID       string
	WorkerID    string
	Value       R
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Options configures RunAll.
type Options struct {
	// Concurrency caps the number of jobs in flight; <= 0 means unbounded.
	Concurrency int

	// Timeout bounds each job; <= 0 disables the race.
	Timeout time.Duration

	TimeoutPolicy TimeoutPolicy

	// Logger receives per-job diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewID returns a fresh worker id.
func NewID() string {
	return "worker_" + uuid.NewString()
}

// RunAll executes jobs concurrently and returns one outcome per job, in job
// order. It never returns early: failures are reported per job.
func RunAll[R any](ctx context.Context, jobs []Job[R], opts Options) []Outcome[R] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outcomes := make([]Outcome[R], len(jobs))

	// Jobs never return errors to the group, so the group context is only
	// cancelled by the parent.
	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, job := range jobs {
		workerID := job.WorkerID
		if workerID == "" {
			workerID = NewID()
		}

		g.Go(func() error {
			started := time.Now()
			logger.DebugContext(ctx, "worker_start",
				slog.String("job_id", job.ID),
				slog.String("worker_id", workerID),
			)

			value, err := race(ctx, job, opts.Timeout, opts.TimeoutPolicy)

			outcomes[i] = Outcome[R]{
				JobID:       job.ID,
				WorkerID:    workerID,
				Value:       value,
				Err:         err,
				StartedAt:   started,
				CompletedAt: time.Now(),
			}

			if err != nil {
				logger.WarnContext(ctx, "worker_failed",
					slog.String("job_id", job.ID),
					slog.String("worker_id", workerID),
					slog.Any("error", err),
				)
			} else {
				logger.DebugContext(ctx, "worker_completed",
					slog.String("job_id", job.ID),
					slog.String("worker_id", workerID),
					slog.Duration("duration", time.Since(started)),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

type settled[R any] struct {
	value R
	err   error
}

// race runs job against the timeout and the parent context.
func race[R any](ctx context.Context, job Job[R], timeout time.Duration, policy TimeoutPolicy) (R, error) {
	var zero R

	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if timeout <= 0 {
		return invoke(ctx, job)
	}

	base := ctx
	if policy == DetachOnTimeout {
		base = context.WithoutCancel(ctx)
	}
	jobCtx, cancel := context.WithCancel(base)

	done := make(chan settled[R], 1)
	go func() {
		v, err := invoke(jobCtx, job)
		cancel()
		done <- settled[R]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		if policy == CancelOnTimeout {
			cancel()
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		if policy == CancelOnTimeout {
			cancel()
		}
		return zero, ctx.Err()
	}
}

func invoke[R any](ctx context.Context, job Job[R]) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	if job.Run == nil {
		return value, fmt.Errorf("job %q has no run function", job.ID)
	}
	return job.Run(ctx)
}
