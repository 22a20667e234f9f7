package evok

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/evok/pkg/api"
)

// capturedRuns records the run ids seen by OnWorkflowStart.
type capturedRuns struct {
	api.NoopObserver
	runs []api.RunInfo
}

func (c *capturedRuns) OnWorkflowStart(ctx context.Context, run api.RunInfo) {
	c.runs = append(c.runs, run)
}

func recordTypes(recs []api.HistoryRecord) []api.RecordType {
	out := make([]api.RecordType, len(recs))
	for i, r := range recs {
		out[i] = r.Type
	}
	return out
}

func exerciseHistory(t *testing.T, hist *History) {
	t.Helper()
	ctx := context.Background()
	runs := &capturedRuns{}

	wf := New[[]string]("audited").
		StepFunc("a", appendStep("a", "a:done")).
		StepFunc("b", appendStep("b")).
		On("a:done", "b").
		MustBuild(WithObserver(hist), WithObserver(runs))

	_, err := wf.Execute(ctx, nil)
	require.NoError(t, err)
	require.Len(t, runs.runs, 1)

	recs, err := hist.ListRecords(ctx, runs.runs[0].ID)
	require.NoError(t, err)
	require.Equal(t, []api.RecordType{
		api.RecordWorkflowStarted,
		api.RecordStepStarted,
		api.RecordStepCompleted,
		api.RecordEventRouted,
		api.RecordStepStarted,
		api.RecordStepCompleted,
		api.RecordWorkflowCompleted,
	}, recordTypes(recs))
	require.Equal(t, "a:done", recs[3].Event)
	require.Equal(t, "b", recs[3].Detail)
	for _, r := range recs {
		require.Equal(t, "audited", r.Workflow)
	}
}

func TestInMemoryHistory(t *testing.T) {
	hist := NewInMemoryHistory()
	defer hist.Close()
	exerciseHistory(t, hist)
}

func TestOpenSQLiteHistory(t *testing.T) {
	hist, err := OpenSQLiteHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { require.NoError(t, hist.Close()) }()

	exerciseHistory(t, hist)
}

func TestHistory_RecordsFailuresAndNesting(t *testing.T) {
	ctx := context.Background()
	hist := NewInMemoryHistory()
	runs := &capturedRuns{}

	inner := New[int]("inner").
		StepFunc("explode", func(ctx context.Context, s int) (Result[int], error) {
			return Result[int]{}, errors.New("boom")
		}).
		MustBuild(WithObserver(hist), WithObserver(runs))

	outer := New[int]("outer").Step(inner).MustBuild(WithObserver(hist), WithObserver(runs))

	_, err := outer.Execute(ctx, 0)
	require.Error(t, err)
	require.Len(t, runs.runs, 2)

	outerRun, innerRun := runs.runs[0], runs.runs[1]
	require.Equal(t, outerRun.ID, innerRun.ParentID)

	innerRecs, err := hist.ListRecords(ctx, innerRun.ID)
	require.NoError(t, err)
	require.Equal(t, []api.RecordType{
		api.RecordWorkflowStarted,
		api.RecordStepStarted,
		api.RecordStepFailed,
		api.RecordWorkflowFailed,
	}, recordTypes(innerRecs))
	require.Equal(t, outerRun.ID, innerRecs[0].ParentRunID)
	require.Equal(t, "explode", innerRecs[3].Step)

	outerRecs, err := hist.ListRecords(ctx, outerRun.ID)
	require.NoError(t, err)
	last := outerRecs[len(outerRecs)-1]
	require.Equal(t, api.RecordWorkflowFailed, last.Type)
	require.Equal(t, "inner", last.Step)
	require.Contains(t, last.Detail, "boom")
}
