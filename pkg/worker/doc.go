// Package worker runs a batch of jobs concurrently and reports one outcome
// per job, never failing the batch as a whole.
//
// It is the fan-out/join primitive behind the orchestrator-workers pattern,
// but has no dependency on workflows and can be used on its own.
//
// # Semantics
//
// RunAll starts every job, bounded by Options.Concurrency when it is
// positive, and returns once every job has an outcome:
//
//   - a job that returns normally yields its value or error
//   - a job that panics yields an error wrapping ErrPanic
//   - a job still running after Options.Timeout yields an error wrapping
//     ErrTimeout; the job itself is not awaited
//   - a job whose parent context ends first yields the context error
//
// Outcomes are returned in job order, each tagged with the worker id that
// ran it.
//
// # Timeouts
//
// A timeout records a failure but cannot force the job to stop. With
// CancelOnTimeout (the default) the job's context is cancelled so
// cooperative jobs can return early. With DetachOnTimeout the job keeps a
// live context and runs to completion in the background; its result is
// discarded.
//
// Example:
//
//	outcomes := worker.RunAll(ctx, []worker.Job[string]{
//	    {ID: "a", Run: fetchA},
//	    {ID: "b", Run: fetchB},
//	}, worker.Options{Concurrency: 2, Timeout: time.Second})
//
//	for _, o := range outcomes {
//	    if o.Err != nil {
//	        log.Printf("%s failed on %s: %v", o.JobID, o.WorkerID, o.Err)
//	    }
//	}
package worker
