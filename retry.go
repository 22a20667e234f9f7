package evok

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/evok/pkg/api"
)

// RetryBuilder provides a fluent way to construct RetryPolicy values
// for use with RetryStep.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry creates a RetryBuilder with the given maxAttempts.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryBuilder{
		policy: RetryPolicy{
			MaxAttempts: maxAttempts,
		},
	}
}

// WithExponentialBackoff configures exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, there is no cap.
//
// Example:
//
//	Retry(3).WithExponentialBackoff(100*time.Millisecond, 2.0, 2*time.Second)
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	p := r.policy
	p.InitialBackoff = initial
	p.MaxBackoff = max
	if multiplier <= 0 {
		multiplier = 2.0
	}
	p.BackoffMultiplier = multiplier
	return RetryBuilder{policy: p}
}

// WithConstantBackoff waits delay between every two attempts.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	p := r.policy
	p.InitialBackoff = delay
	p.MaxBackoff = 0
	p.BackoffMultiplier = 1.0
	return RetryBuilder{policy: p}
}

// Immediate disables any sleep between retries.
func (r RetryBuilder) Immediate() RetryBuilder {
	p := r.policy
	p.InitialBackoff = 0
	p.MaxBackoff = 0
	p.BackoffMultiplier = 0
	return RetryBuilder{policy: p}
}

// Policy returns the underlying RetryPolicy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}

// RetryStep re-runs step while it fails, up to policy.MaxAttempts times in
// total, waiting policy.Delay between attempts. Hooks of step run once, not
// per attempt. The final error wraps the last cause.
//
// Waiting is aborted when ctx is done.
func RetryStep[S any](step Step[S], policy RetryPolicy) Step[S] {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	id := step.ID()
	logger := slog.Default().With(slog.String("step", id))

	return wrap(step, func(ctx context.Context, state S) (api.Result[S], error) {
		var lastErr error
		for attempt := 1; attempt <= attempts; attempt++ {
			res, err := step.Run(ctx, state)
			if err == nil {
				return res, nil
			}
			lastErr = err
			logger.WarnContext(ctx, "attempt failed",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Any("error", err),
			)

			if attempt == attempts {
				break
			}
			if err := sleep(ctx, policy.Delay(attempt)); err != nil {
				return api.Result[S]{}, err
			}
		}
		return api.Result[S]{}, fmt.Errorf("step %q failed after %d attempts: %w", id, attempts, lastErr)
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
