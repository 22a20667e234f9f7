// Package orchestrator implements the orchestrator-workers pattern on top
// of evok workflows.
//
// The pattern is a three-step workflow over a caller-defined state type that
// carries a State block (see Carrier):
//
//   - the orchestrator step breaks the original task down into Tasks;
//   - the worker step runs pending tasks concurrently, at most
//     MaxConcurrentWorkers at a time, and re-activates itself while work is
//     pending;
//   - the synthesizer step combines all results, failed ones included.
//
// A failing, panicking, timed-out or unknown-type task never aborts the
// workflow. It is recorded as a Result with a non-empty Error and handed
// to SynthesizeResults with the rest.
//
// Example:
//
//	type Report struct {
//	    Orch    orchestrator.State[string]
//	    Summary string
//	}
//
//	func (r Report) OrchestratorState() orchestrator.State[string] { return r.Orch }
//	func (r Report) WithOrchestratorState(s orchestrator.State[string]) Report {
//	    r.Orch = s
//	    return r
//	}
//
//	c, err := orchestrator.New(orchestrator.Config[Report, string]{
//	    TaskBreakdown:     split,
//	    WorkerFactory:     workers,
//	    SynthesizeResults: combine,
//	    WorkerTimeout:     30 * time.Second,
//	})
//	final, err := c.Workflow.Execute(ctx, Report{Orch: orchestrator.State[string]{OriginalTask: "..."}})
//
// When the breakdown yields no tasks the workflow ends after the first
// worker pass and the synthesizer does not run.
package orchestrator
