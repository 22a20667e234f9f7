package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/evok/pkg/api"
)

// SQLiteHistoryStore stores history records in SQLite.
type SQLiteHistoryStore struct {
	db *sql.DB
}

var _ HistoryStore = (*SQLiteHistoryStore)(nil)

// NewSQLiteHistoryStore creates the history table if needed.
func NewSQLiteHistoryStore(db *sql.DB) (*SQLiteHistoryStore, error) {
	s := &SQLiteHistoryStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistoryStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			parent_run_id TEXT NOT NULL DEFAULT '',
			workflow TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			step TEXT NOT NULL DEFAULT '',
			event TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_run_history_run_id ON run_history(run_id, id);
	`)
	return err
}

func (s *SQLiteHistoryStore) Append(ctx context.Context, rec api.HistoryRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_history (run_id, parent_run_id, workflow, at, type, step, event, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.ParentRunID,
		rec.Workflow,
		at.UnixNano(),
		string(rec.Type),
		rec.Step,
		rec.Event,
		rec.Detail,
	)
	return err
}

func (s *SQLiteHistoryStore) List(ctx context.Context, runID string) ([]api.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, parent_run_id, workflow, at, type, step, event, detail
		FROM run_history
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.HistoryRecord
	for rows.Next() {
		var (
			rec api.HistoryRecord
			atN int64
			typ string
		)
		if err := rows.Scan(&rec.RunID, &rec.ParentRunID, &rec.Workflow, &atN, &typ, &rec.Step, &rec.Event, &rec.Detail); err != nil {
			return nil, err
		}
		rec.At = time.Unix(0, atN)
		rec.Type = api.RecordType(typ)
		out = append(out, rec)
	}
	return out, rows.Err()
}
