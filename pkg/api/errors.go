package api

import (
	"errors"
	"fmt"
)

var (
	// ErrStepNotFound is returned when the start id or a routed id does not
	// name a registered step.
	ErrStepNotFound = errors.New("step not found")

	// ErrDuplicateStep is returned when two steps share an id.
	ErrDuplicateStep = errors.New("duplicate step id")

	// ErrRouting wraps failures returned by a workflow router.
	ErrRouting = errors.New("routing failed")

	// ErrStepPanic wraps a recovered panic from a step or hook.
	ErrStepPanic = errors.New("step panicked")

	// ErrEmitterClosed is returned by Emit after the emitting step returned.
	ErrEmitterClosed = errors.New("emitter closed: step already returned")

	// ErrNoEmitter is returned by Emit when ctx does not belong to a running step.
	ErrNoEmitter = errors.New("no emitter in context")
)

// StepError reports the step whose execution aborted a run.
type StepError struct {
	StepID string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the id of the step that aborted a run, if err carries one.
func FailedStep(err error) (string, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.StepID, true
	}
	return "", false
}
