package persistence

import (
	"context"
	"testing"

	"github.com/petrijr/evok/pkg/api"
)

func TestInMemoryHistoryStore(t *testing.T) {
	exerciseHistoryStore(t, NewInMemoryHistoryStore())
}

func TestInMemoryHistoryStore_ConcurrentAppends(t *testing.T) {
	exerciseConcurrentAppends(t, NewInMemoryHistoryStore())
}

func TestInMemoryHistoryStore_ListReturnsCopy(t *testing.T) {
	store := NewInMemoryHistoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, api.HistoryRecord{RunID: "r", Type: api.RecordStepStarted, Step: "a"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, _ := store.List(ctx, "r")
	got[0].Step = "mutated"

	again, _ := store.List(ctx, "r")
	if again[0].Step != "a" {
		t.Fatalf("store was mutated through List result: %+v", again[0])
	}
}

func TestInMemoryHistoryStore_Runs(t *testing.T) {
	store := NewInMemoryHistoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "a"} {
		if err := store.Append(ctx, api.HistoryRecord{RunID: id, Type: api.RecordWorkflowStarted}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if runs := store.Runs(); len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %v", runs)
	}
}
