package persistence

import (
	"context"
	"errors"

	"github.com/petrijr/evok/pkg/api"
)

// ErrMissingRunID is returned when a record without a run id is appended.
var ErrMissingRunID = errors.New("history record has no run id")

// HistoryStore is an append-only store of run history records.
//
// Implementations must be safe for concurrent use and must return the
// records of a run in the order they were appended.
type HistoryStore interface {
	Append(ctx context.Context, rec api.HistoryRecord) error
	List(ctx context.Context, runID string) ([]api.HistoryRecord, error)
}

// NoopHistoryStore discards all records.
type NoopHistoryStore struct{}

func (NoopHistoryStore) Append(ctx context.Context, rec api.HistoryRecord) error { return nil }
func (NoopHistoryStore) List(ctx context.Context, runID string) ([]api.HistoryRecord, error) {
	return nil, nil
}

func validate(rec api.HistoryRecord) error {
	if rec.RunID == "" {
		return ErrMissingRunID
	}
	return nil
}
