package core

import "context"

// WorkerClient is the coordinator's contract with the external WorkerPool:
// it assigns a task to a node, supervises the node-side execution, and
// posts outcome messages back on Outcomes. The coordinator only submits
// task requests and reads outcomes; it never talks to a worker node
// directly.
type WorkerClient interface {
	// Submit is a synchronous acknowledgement that the request was
	// accepted; the worker assignment itself happens asynchronously and
	// is reported later on Outcomes.
	Submit(ctx context.Context, jobName string, partitionID int, phase PhaseTag, blacklist []string, variants []Variant) error
	// KillJob must cause all outstanding submitted tasks for jobName to
	// stop posting new outcomes. Late outcomes, if any arrive after this
	// call, may be silently dropped by the caller.
	KillJob(ctx context.Context, jobName string) error
	// Outcomes delivers exactly one TaskOutcome per successful Submit
	// under normal operation. The channel is shared across every job
	// this client instance serves.
	Outcomes() <-chan TaskOutcome
}

// EventClient is the coordinator's contract with the event sink, which
// records named events per job for later polling.
type EventClient interface {
	// Emit records one event for jobName. tag is a short machine-readable
	// label ("start", "job_data", "task_ready", "ready", or "" for an
	// untagged info/error line); format/args render the human-readable
	// message the same way fmt.Sprintf would.
	Emit(jobName, tag, format string, args ...any)
	// Flush finalizes the event log for a terminated job.
	Flush(jobName string)
}

// OobClient is the coordinator's contract with the out-of-band key/value
// store. Store is best-effort and fire-and-forget: its failures must never
// affect job outcome.
type OobClient interface {
	Store(jobName, node string, oobKeys []string)
}

// GcClient is the coordinator's contract with the garbage collector that
// reclaims intermediate map outputs after a successful reduce. RemoveMapResults
// is best-effort.
type GcClient interface {
	RemoveMapResults(reduceInputs []InputSpec)
}
