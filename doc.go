// Package evok provides a small, embeddable engine for event-driven step
// graphs.
//
// A workflow is a closed set of named steps, a start step and a router. The
// engine threads a state value through the steps: each step returns the
// next state and a list of events, the router maps every event to the ids
// of the steps to activate next, and activations run in FIFO order until
// none is left. There is no persistence of workflow state and no
// distributed execution: a run lives and dies inside one Execute call.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Step
//  2. Event and Router
//  3. Workflow
//  4. FlowBuilder
//  5. Step decorators
//
// # Step
//
// A Step has an id and a Run method:
//
//	Run(ctx context.Context, state S) (evok.Result[S], error)
//
// The state type S is chosen by the caller; the engine never inspects it.
// NewStep and SimpleStep adapt plain functions. Steps can implement the
// optional api.StartHook, api.CompleteHook and api.ErrorHook interfaces.
//
// # Event and Router
//
// Events are named signals with an optional payload. The Router of a
// workflow sees every event, together with the state committed by the step
// that produced it, and returns the step ids to enqueue. A step may also
// publish events while it is still running with Emit; those are routed at
// once and the activations they produce run in the same drain.
//
// # Workflow
//
// Workflow.Execute runs a workflow to completion and returns the final
// state. A failing step aborts the run: its own error hook runs, then the
// workflow's, and Execute returns a *StepError naming the step. Workflow is
// itself a Step, so workflows nest; a nested run reports its parent run id
// through RunInfo.
//
// # FlowBuilder
//
// FlowBuilder is the fluent way to assemble a workflow:
//
//	wf, err := evok.New[Order]("checkout").
//	    Step(evok.SimpleStep("price", price)).
//	    Step(evok.RetryStep(chargeStep, evok.Retry(3).WithExponentialBackoff(100*time.Millisecond, 2, time.Second).Policy())).
//	    On("price:complete", "charge").
//	    Build(evok.WithObserver(evok.NewLoggingObserver(nil)))
//
// # Step decorators
//
// RetryStep, TimeoutStep, ConditionalStep (with ExprCondition for
// expr-lang conditions) and DependentStep wrap an existing step and keep its
// hooks. BatchStep processes a slice in concurrent chunks and Sequential
// chains steps by their "<id>:complete" events.
//
// # Observability
//
// Observers receive run, step and event callbacks. LoggingObserver logs
// them with log/slog, BasicMetrics counts them, and History keeps an audit
// trail in memory, SQLite or Redis that can be read back by run id.
//
// The orchestrator-workers pattern built on these pieces lives in
// package orchestrator.
package evok
