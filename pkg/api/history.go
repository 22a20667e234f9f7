package api

import (
	"context"
	"time"
)

// RecordType identifies a history record.
type RecordType string

const (
	RecordWorkflowStarted   RecordType = "workflow.started"
	RecordWorkflowCompleted RecordType = "workflow.completed"
	RecordWorkflowFailed    RecordType = "workflow.failed"

	RecordStepStarted   RecordType = "step.started"
	RecordStepCompleted RecordType = "step.completed"
	RecordStepFailed    RecordType = "step.failed"

	RecordEventRouted RecordType = "event.routed"
)

// HistoryRecord is a minimal append-only audit record of one run.
// It is intentionally small; payloads are never stored.
type HistoryRecord struct {
	RunID       string
	ParentRunID string
	Workflow    string
	At          time.Time
	Type        RecordType

	// Optional context.
	Step  string
	Event string

	// Small, human-oriented details (activated step ids, error string).
	Detail string
}

// HistoryReader allows reading the records of a run.
type HistoryReader interface {
	// ListRecords returns all records for a run in append order.
	ListRecords(ctx context.Context, runID string) ([]HistoryRecord, error)
}
