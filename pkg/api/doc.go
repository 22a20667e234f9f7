// Package api contains the core building blocks used by the evok engine:
// the step and event data model, the workflow definition, and the observer
// and history interfaces.
//
// Most users interact with the higher-level evok package, which re-exports
// selected types and helpers from this package. The api package is intended
// for custom integrations and for code that must not depend on the engine.
//
// # Concepts
//
// A Step receives a state value and returns the next state together with a
// list of Events. A WorkflowDefinition names a closed Registry of steps, the
// id of the start step, and a Router that maps every emitted event to the
// ids of the steps to activate next. The engine repeats this until no step
// is left to run.
//
// Steps may also implement StartHook, CompleteHook and ErrorHook to be
// notified around their own execution. FuncStep implements all of them
// from a Hooks value.
//
// # Emitting while running
//
// A running step can publish an event before it returns:
//
//	func (s *crawler) Run(ctx context.Context, st State) (api.Result[State], error) {
//	    if err := api.Emit(ctx, api.NewEvent("crawl:progress", n)); err != nil {
//	        return api.Result[State]{}, err
//	    }
//	    ...
//	}
//
// Such events are routed immediately. Emitting after the step returned
// fails with ErrEmitterClosed.
//
// # Observability
//
// Observer receives callbacks for runs, steps and routed events. Runs are
// identified by RunInfo, which links nested workflow runs to their parent.
// NoopObserver, CompositeObserver, LoggingObserver and BasicMetrics cover
// the common cases.
package api
