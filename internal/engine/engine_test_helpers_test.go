package engine

import (
	"context"
	"sync"
	"time"

	"github.com/petrijr/evok/pkg/api"
)

type trail struct {
	Visited []string
}

func (t trail) with(id string) trail {
	out := make([]string, len(t.Visited), len(t.Visited)+1)
	copy(out, t.Visited)
	return trail{Visited: append(out, id)}
}

// visit returns a step that records its id and emits the given events.
func visit(id string, events ...string) *api.FuncStep[trail] {
	return api.NewStep(id, func(ctx context.Context, s trail) (api.Result[trail], error) {
		evs := make([]api.Event, 0, len(events))
		for _, e := range events {
			evs = append(evs, api.Event{Type: e})
		}
		return api.Result[trail]{State: s.with(id), Events: evs}, nil
	})
}

func mustRegistry(steps ...api.Step[trail]) *api.Registry[trail] {
	r, err := api.NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

// recordingObserver captures callbacks for assertions.
type recordingObserver struct {
	api.NoopObserver

	mu        sync.Mutex
	runs      []api.RunInfo
	failed    []error
	completed int
	steps     []string
	events    []string
}

func (o *recordingObserver) OnWorkflowStart(ctx context.Context, run api.RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, run)
}

func (o *recordingObserver) OnWorkflowCompleted(ctx context.Context, run api.RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *recordingObserver) OnWorkflowFailed(ctx context.Context, run api.RunInfo, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err)
}

func (o *recordingObserver) OnStepCompleted(ctx context.Context, run api.RunInfo, stepID string, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, stepID)
}

func (o *recordingObserver) OnEvent(ctx context.Context, run api.RunInfo, ev api.Event, activated []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev.Type)
}
