package orchestrator

import (
	"maps"
	"slices"
	"time"
)

// Event types of the orchestrator-workers workflow.
const (
	EventBreakdownComplete = "orchestrator:breakdown_complete"
	EventWorkerContinue    = "worker:continue"
	EventWorkerAllComplete = "worker:all_complete"
	EventComplete          = "orchestrator:complete"
)

// Step ids of the orchestrator-workers workflow.
const (
	StepOrchestrator = "orchestrator"
	StepWorker       = "worker"
	StepSynthesizer  = "synthesizer"
)

// DefaultMaxConcurrentWorkers is used when Config.MaxConcurrentWorkers is
// not positive.
const DefaultMaxConcurrentWorkers = 3

// Task is a unit of work produced by the breakdown.
type Task struct {
	ID          string
	Type        string
	Description string
	Payload     any

	// Priority is carried along but not used: tasks run in breakdown order.
	Priority int
}

// Result is the outcome of one task. A non-empty Error marks a failure, in
// which case Value is the zero value.
type Result[R any] struct {
	TaskID      string
	WorkerID    string
	Value       R
	Error       string
	CompletedAt time.Time
}

// Failed reports whether the task failed.
func (r Result[R]) Failed() bool { return r.Error != "" }

// WorkerStatus is the last known status of a worker id.
type WorkerStatus string

const (
	WorkerIdle WorkerStatus = "idle"
	WorkerBusy WorkerStatus = "busy"
)

// State is the bookkeeping block the pattern keeps inside the caller's
// state. Between steps every task id is in exactly one of PendingTasks and
// ActiveTasks until it moves, once, to CompletedTasks.
type State[R any] struct {
	OriginalTask         string
	PendingTasks         []Task
	ActiveTasks          map[string]Task
	CompletedTasks       []Result[R]
	Workers              map[string]WorkerStatus
	MaxConcurrentWorkers int
}

// clone returns a copy sharing no slices or maps with s.
func (s State[R]) clone() State[R] {
	out := s
	out.PendingTasks = slices.Clone(s.PendingTasks)
	out.CompletedTasks = slices.Clone(s.CompletedTasks)
	out.ActiveTasks = maps.Clone(s.ActiveTasks)
	if out.ActiveTasks == nil {
		out.ActiveTasks = make(map[string]Task)
	}
	out.Workers = maps.Clone(s.Workers)
	if out.Workers == nil {
		out.Workers = make(map[string]WorkerStatus)
	}
	return out
}

// Carrier is implemented by caller state types that embed a State block.
// WithOrchestratorState returns a copy of the receiver with the block
// replaced; it must not modify the receiver.
type Carrier[S, R any] interface {
	OrchestratorState() State[R]
	WithOrchestratorState(State[R]) S
}

// BreakdownPayload is the payload of EventBreakdownComplete.
type BreakdownPayload struct {
	SubtaskCount int
}

// ContinuePayload is the payload of EventWorkerContinue.
type ContinuePayload struct {
	Remaining int
}

// AllCompletePayload is the payload of EventWorkerAllComplete.
type AllCompletePayload struct {
	TotalResults int
}

// CompletePayload is the payload of EventComplete.
type CompletePayload struct {
	TotalTasks int
	Successful int
	Failed     int
}
