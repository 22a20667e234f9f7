package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/evok/pkg/api"
)

func TestWorkflow_HooksSeeInitialAndFinalState(t *testing.T) {
	var started, completed []string

	wf := NewWorkflow(api.WorkflowDefinition[trail]{
		Name:   "hooks",
		Steps:  mustRegistry(visit("a", "go"), visit("b")),
		Start:  "a",
		Router: api.RouteTableRouter[trail](api.RouteTable{"go": {"b"}}),
		Hooks: api.Hooks[trail]{
			OnStart: func(ctx context.Context, s trail) error {
				started = s.Visited
				return nil
			},
			OnComplete: func(ctx context.Context, s trail) error {
				completed = s.Visited
				return nil
			},
		},
	}, Config{})

	_, err := wf.Execute(context.Background(), trail{Visited: []string{"seed"}})
	require.NoError(t, err)
	require.Equal(t, []string{"seed"}, started)
	require.Equal(t, []string{"seed", "a", "b"}, completed)
}

func TestWorkflow_StartHookFailureCallsOnError(t *testing.T) {
	startErr := errors.New("refused")
	var onErr error
	obs := &recordingObserver{}

	wf := NewWorkflow(api.WorkflowDefinition[trail]{
		Name:  "refuse",
		Steps: mustRegistry(visit("a")),
		Start: "a",
		Hooks: api.Hooks[trail]{
			OnStart: func(ctx context.Context, s trail) error { return startErr },
			OnError: func(ctx context.Context, err error, s trail) { onErr = err },
		},
	}, Config{Observer: obs})

	_, err := wf.Execute(context.Background(), trail{})
	require.ErrorIs(t, err, startErr)
	require.ErrorIs(t, onErr, startErr)
	require.Empty(t, obs.steps)
	require.Len(t, obs.failed, 1)
}

func TestWorkflow_NestedAsStep(t *testing.T) {
	obs := &recordingObserver{}

	inner := NewWorkflow(api.WorkflowDefinition[trail]{
		Name:   "inner",
		Steps:  mustRegistry(visit("i1", "inner:next"), visit("i2", "inner:done")),
		Start:  "i1",
		Router: api.RouteTableRouter[trail](api.RouteTable{"inner:next": {"i2"}}),
	}, Config{Observer: obs})

	outer := NewWorkflow(api.WorkflowDefinition[trail]{
		Name:  "outer",
		Steps: mustRegistry(visit("o1", "go"), inner, visit("o2")),
		Start: "o1",
		Router: api.RouteTableRouter[trail](api.RouteTable{
			"go":         {"inner"},
			"inner:done": {"o2"},
		}),
	}, Config{Observer: obs})

	final, err := outer.Execute(context.Background(), trail{})
	require.NoError(t, err)

	// inner:done is consumed by the inner run and never reaches the outer router.
	require.Equal(t, []string{"o1", "i1", "i2"}, final.Visited)

	require.Len(t, obs.runs, 2)
	require.Equal(t, "outer", obs.runs[0].Workflow)
	require.Equal(t, "inner", obs.runs[1].Workflow)
	require.Equal(t, obs.runs[0].ID, obs.runs[1].ParentID)
	require.Empty(t, obs.runs[0].ParentID)
}

func TestWorkflow_NestedFailurePropagates(t *testing.T) {
	boom := errors.New("inner boom")
	inner := NewWorkflow(api.WorkflowDefinition[trail]{
		Name: "inner",
		Steps: mustRegistry(api.NewStep("fail", func(ctx context.Context, s trail) (api.Result[trail], error) {
			return api.Result[trail]{}, boom
		})),
		Start: "fail",
	}, Config{})

	outer := newTestWorkflow("inner", nil, inner)
	_, err := outer.Execute(context.Background(), trail{})
	require.ErrorIs(t, err, boom)

	id, ok := api.FailedStep(err)
	require.True(t, ok)
	require.Equal(t, "inner", id)
}

func TestWorkflow_ObserverSeesStepsAndEvents(t *testing.T) {
	obs := &recordingObserver{}
	wf := NewWorkflow(api.WorkflowDefinition[trail]{
		Name:   "observed",
		Steps:  mustRegistry(visit("a", "go", "ignored"), visit("b")),
		Start:  "a",
		Router: api.RouteTableRouter[trail](api.RouteTable{"go": {"b"}}),
	}, Config{Observer: obs})

	_, err := wf.Execute(context.Background(), trail{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, obs.steps)
	require.Equal(t, []string{"go", "ignored"}, obs.events)
	require.Equal(t, 1, obs.completed)
}

func TestWorkflow_ConcurrentExecutionsAreIndependent(t *testing.T) {
	wf := newTestWorkflow("a", api.RouteTable{"a:done": {"b"}},
		visit("a", "a:done"),
		visit("b"),
	)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			final, err := wf.Execute(context.Background(), trail{})
			if err != nil {
				errs <- err
				return
			}
			if len(final.Visited) != 2 {
				errs <- errors.New("unexpected trail")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestWorkflow_RunReturnsNoEvents(t *testing.T) {
	wf := newTestWorkflow("a", nil, visit("a", "x"))

	res, err := wf.Run(context.Background(), trail{})
	require.NoError(t, err)
	require.Empty(t, res.Events)
	require.Equal(t, []string{"a"}, res.State.Visited)
	require.Equal(t, "test", wf.ID())
}
