package evok

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/petrijr/evok/internal/persistence"
)

// History is an Observer that keeps an audit trail of runs and lets callers
// read it back by run id. Pass it to a workflow with WithObserver:
//
//	hist, err := evok.OpenSQLiteHistory("file:evok.db?_pragma=journal_mode(WAL)")
//	defer hist.Close()
//	wf := evok.NewWorkflow(def, evok.WithObserver(hist))
//
// Records are never used to resume a run.
type History struct {
	*persistence.Recorder

	db *sql.DB
}

// NewInMemoryHistory keeps records in process memory.
func NewInMemoryHistory() *History {
	return &History{Recorder: persistence.NewRecorder(persistence.NewInMemoryHistoryStore(), nil)}
}

// NewSQLiteHistory stores records in db, creating the table if needed.
// The caller keeps ownership of db.
func NewSQLiteHistory(db *sql.DB) (*History, error) {
	store, err := persistence.NewSQLiteHistoryStore(db)
	if err != nil {
		return nil, fmt.Errorf("init sqlite history: %w", err)
	}
	return &History{Recorder: persistence.NewRecorder(store, nil)}, nil
}

// OpenSQLiteHistory opens the SQLite database at dsn and stores records in
// it. Close releases the database.
func OpenSQLiteHistory(dsn string) (*History, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	h, err := NewSQLiteHistory(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	h.db = db
	return h, nil
}

// NewRedisHistory stores records in Redis lists under prefix. Records
// expire ttl after the last append to their run; ttl <= 0 keeps them.
func NewRedisHistory(client *redis.Client, prefix string, ttl time.Duration) *History {
	store := persistence.NewRedisHistoryStore(client, prefix, ttl)
	return &History{Recorder: persistence.NewRecorder(store, nil)}
}

// Close releases resources opened by OpenSQLiteHistory. It is a no-op for
// other histories.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
