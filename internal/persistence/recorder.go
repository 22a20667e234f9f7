package persistence

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/petrijr/evok/pkg/api"
)

// Recorder is an api.Observer that appends one history record per engine
// callback to a HistoryStore.
//
// Observer callbacks cannot fail, so append errors are logged and dropped.
type Recorder struct {
	store  HistoryStore
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ api.Observer      = (*Recorder)(nil)
	_ api.HistoryReader = (*Recorder)(nil)
)

// NewRecorder creates a Recorder writing to store. A nil logger means
// slog.Default().
func NewRecorder(store HistoryStore, logger *slog.Logger) *Recorder {
	if store == nil {
		store = NoopHistoryStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// ListRecords returns the records of runID in append order.
func (r *Recorder) ListRecords(ctx context.Context, runID string) ([]api.HistoryRecord, error) {
	return r.store.List(ctx, runID)
}

func (r *Recorder) OnWorkflowStart(ctx context.Context, run api.RunInfo) {
	r.append(ctx, run, api.HistoryRecord{Type: api.RecordWorkflowStarted})
}

func (r *Recorder) OnWorkflowCompleted(ctx context.Context, run api.RunInfo) {
	r.append(ctx, run, api.HistoryRecord{Type: api.RecordWorkflowCompleted})
}

func (r *Recorder) OnWorkflowFailed(ctx context.Context, run api.RunInfo, err error) {
	rec := api.HistoryRecord{Type: api.RecordWorkflowFailed}
	if err != nil {
		rec.Detail = err.Error()
	}
	if step, ok := api.FailedStep(err); ok {
		rec.Step = step
	}
	r.append(ctx, run, rec)
}

func (r *Recorder) OnStepStart(ctx context.Context, run api.RunInfo, stepID string) {
	r.append(ctx, run, api.HistoryRecord{Type: api.RecordStepStarted, Step: stepID})
}

func (r *Recorder) OnStepCompleted(ctx context.Context, run api.RunInfo, stepID string, err error, d time.Duration) {
	if err != nil {
		r.append(ctx, run, api.HistoryRecord{Type: api.RecordStepFailed, Step: stepID, Detail: err.Error()})
		return
	}
	r.append(ctx, run, api.HistoryRecord{Type: api.RecordStepCompleted, Step: stepID, Detail: d.String()})
}

func (r *Recorder) OnEvent(ctx context.Context, run api.RunInfo, ev api.Event, activated []string) {
	r.append(ctx, run, api.HistoryRecord{
		Type:   api.RecordEventRouted,
		Event:  ev.Type,
		Detail: strings.Join(activated, ","),
	})
}

func (r *Recorder) append(ctx context.Context, run api.RunInfo, rec api.HistoryRecord) {
	rec.RunID = run.ID
	rec.ParentRunID = run.ParentID
	rec.Workflow = run.Workflow
	rec.At = r.now()

	if err := r.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.WarnContext(ctx, "history append failed",
			slog.String("run_id", run.ID),
			slog.String("type", string(rec.Type)),
			slog.Any("error", err),
		)
	}
}
