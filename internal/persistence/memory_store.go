package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/petrijr/evok/pkg/api"
)

// InMemoryHistoryStore is a goroutine-safe HistoryStore backed by a map.
type InMemoryHistoryStore struct {
	mu   sync.RWMutex
	runs map[string][]api.HistoryRecord
}

var _ HistoryStore = (*InMemoryHistoryStore)(nil)

// NewInMemoryHistoryStore creates a new InMemoryHistoryStore.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		runs: make(map[string][]api.HistoryRecord),
	}
}

func (s *InMemoryHistoryStore) Append(ctx context.Context, rec api.HistoryRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[rec.RunID] = append(s.runs[rec.RunID], rec)
	return nil
}

func (s *InMemoryHistoryStore) List(ctx context.Context, runID string) ([]api.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.runs[runID]), nil
}

// Runs returns the ids of all runs with at least one record, in no
// particular order.
func (s *InMemoryHistoryStore) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.runs))
	for id := range s.runs {
		out = append(out, id)
	}
	return out
}
