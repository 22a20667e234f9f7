package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// testObserver counts callbacks and keeps the last arguments.
type testObserver struct {
	mu sync.Mutex

	starts    int
	completes int
	fails     int

	stepStarts    int
	stepCompletes int
	events        int

	lastRun       RunInfo
	lastErr       error
	lastStep      string
	lastActivated []string
}

func (o *testObserver) OnWorkflowStart(ctx context.Context, run RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	o.lastRun = run
}

func (o *testObserver) OnWorkflowCompleted(ctx context.Context, run RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completes++
	o.lastRun = run
}

func (o *testObserver) OnWorkflowFailed(ctx context.Context, run RunInfo, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails++
	o.lastRun = run
	o.lastErr = err
}

func (o *testObserver) OnStepStart(ctx context.Context, run RunInfo, stepID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stepStarts++
	o.lastStep = stepID
}

func (o *testObserver) OnStepCompleted(ctx context.Context, run RunInfo, stepID string, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stepCompletes++
	o.lastStep = stepID
	o.lastErr = err
}

func (o *testObserver) OnEvent(ctx context.Context, run RunInfo, ev Event, activated []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events++
	o.lastActivated = activated
}

func driveObserver(obs Observer, run RunInfo) {
	ctx := context.Background()
	obs.OnWorkflowStart(ctx, run)
	obs.OnStepStart(ctx, run, "a")
	obs.OnStepCompleted(ctx, run, "a", nil, 10*time.Millisecond)
	obs.OnEvent(ctx, run, NewEvent("a:done", nil), []string{"b", "c"})
	obs.OnStepStart(ctx, run, "b")
	obs.OnStepCompleted(ctx, run, "b", errors.New("boom"), time.Millisecond)
	obs.OnWorkflowFailed(ctx, run, errors.New("boom"))
}

func TestCompositeObserver_FansOut(t *testing.T) {
	o1 := &testObserver{}
	o2 := &testObserver{}
	obs := NewCompositeObserver(o1, nil, o2)

	run := RunInfo{ID: "r1", Workflow: "wf"}
	driveObserver(obs, run)
	obs.OnWorkflowCompleted(context.Background(), run)

	for i, o := range []*testObserver{o1, o2} {
		if o.starts != 1 || o.completes != 1 || o.fails != 1 {
			t.Fatalf("observer %d: unexpected workflow counts %+v", i, o)
		}
		if o.stepStarts != 2 || o.stepCompletes != 2 || o.events != 1 {
			t.Fatalf("observer %d: unexpected step/event counts %+v", i, o)
		}
		if o.lastRun != run {
			t.Fatalf("observer %d: expected run %+v, got %+v", i, run, o.lastRun)
		}
		if strings.Join(o.lastActivated, ",") != "b,c" {
			t.Fatalf("observer %d: unexpected activated %v", i, o.lastActivated)
		}
	}
}

func TestNewCompositeObserver_Collapses(t *testing.T) {
	if _, ok := NewCompositeObserver().(NoopObserver); !ok {
		t.Fatalf("expected NoopObserver for no observers")
	}
	if _, ok := NewCompositeObserver(nil, nil).(NoopObserver); !ok {
		t.Fatalf("expected NoopObserver for only nil observers")
	}
	single := &testObserver{}
	if got := NewCompositeObserver(single); got != Observer(single) {
		t.Fatalf("expected the single observer to be returned as-is")
	}
}

func TestLoggingObserver_WritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	driveObserver(NewLoggingObserver(logger), RunInfo{ID: "r1", Workflow: "wf", ParentID: "p1"})

	out := buf.String()
	for _, want := range []string{
		"workflow_start",
		"step_start",
		"step_completed",
		"event_routed",
		"workflow_failed",
		"run_id=r1",
		"parent_run_id=p1",
		"workflow=wf",
		"step=b",
		"event=a:done",
		"error=boom",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestLoggingObserver_DefaultLogger(t *testing.T) {
	obs, ok := NewLoggingObserver(nil).(*LoggingObserver)
	if !ok || obs.Logger == nil {
		t.Fatalf("expected a LoggingObserver with the default logger")
	}
}

func TestLoggingObserver_OmitsEmptyParent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewLoggingObserver(logger).OnWorkflowStart(context.Background(), RunInfo{ID: "r", Workflow: "wf"})

	if strings.Contains(buf.String(), "parent_run_id") {
		t.Fatalf("did not expect parent_run_id for a top-level run: %s", buf.String())
	}
}

func TestBasicMetrics_Snapshot(t *testing.T) {
	m := &BasicMetrics{}
	var _ Observer = m

	run := RunInfo{ID: "r1", Workflow: "wf"}
	driveObserver(m, run)
	m.OnWorkflowStart(context.Background(), RunInfo{ID: "r2"})
	m.OnWorkflowCompleted(context.Background(), RunInfo{ID: "r2"})
	m.OnWorkflowStart(context.Background(), RunInfo{ID: "r3"})

	s := m.Snapshot()
	if s.WorkflowsStarted != 3 || s.WorkflowsCompleted != 1 || s.WorkflowsFailed != 1 {
		t.Fatalf("unexpected workflow counters %+v", s)
	}
	if s.PendingWorkflows != 1 {
		t.Fatalf("expected 1 pending workflow, got %d", s.PendingWorkflows)
	}
	if s.StepsCompleted != 1 || s.StepsFailed != 1 {
		t.Fatalf("unexpected step counters %+v", s)
	}
	if s.AvgStepDuration != 10*time.Millisecond {
		t.Fatalf("expected avg 10ms from successful steps only, got %v", s.AvgStepDuration)
	}
	if s.EventsRouted != 1 || s.Activations != 2 {
		t.Fatalf("unexpected event counters %+v", s)
	}
}
