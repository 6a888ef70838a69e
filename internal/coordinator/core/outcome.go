package core

// OutcomeKind discriminates the tagged union of messages a WorkerClient
// delivers back to a PhaseRunner for one submitted task.
type OutcomeKind int

const (
	// OutcomeOk: the task succeeded; OutputURI, OobKeys, Node, and
	// PartitionID are populated.
	OutcomeOk OutcomeKind = iota
	// OutcomeDataError: retriable - the task implicates a specific
	// input/node pair. FailedURI, Node, and PartitionID are populated.
	OutcomeDataError
	// OutcomeJobError: terminal - already logged worker-side. Node and
	// PartitionID are populated.
	OutcomeJobError
	// OutcomeWorkerCrashed: terminal. Reason, Node, and PartitionID are
	// populated.
	OutcomeWorkerCrashed
	// OutcomeMasterError: terminal and global (not tied to a partition).
	// Reason is populated.
	OutcomeMasterError
	// OutcomeUnknown: a message that doesn't fit any of the above arms.
	// Payload is populated.
	OutcomeUnknown
)

// TaskOutcome is the message a WorkerClient delivers back to a PhaseRunner
// for exactly one submitted task (or, for OutcomeMasterError, for the job
// as a whole). Which fields are meaningful depends on Kind.
type TaskOutcome struct {
	Kind        OutcomeKind
	PartitionID int
	Node        string

	// OutcomeOk
	OutputURI string
	OobKeys   []string

	// OutcomeDataError
	FailedURI string

	// OutcomeWorkerCrashed / OutcomeMasterError
	Reason string

	// OutcomeUnknown
	Payload string
}

// Ok builds a successful task outcome.
func Ok(partitionID int, node, outputURI string, oobKeys []string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeOk, PartitionID: partitionID, Node: node, OutputURI: outputURI, OobKeys: oobKeys}
}

// DataError builds a retriable data-fault outcome.
func DataError(partitionID int, node, failedURI string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeDataError, PartitionID: partitionID, Node: node, FailedURI: failedURI}
}

// JobError builds a terminal worker-side fault outcome.
func JobError(partitionID int, node string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeJobError, PartitionID: partitionID, Node: node}
}

// WorkerCrashed builds a terminal worker-crash outcome.
func WorkerCrashed(partitionID int, node, reason string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeWorkerCrashed, PartitionID: partitionID, Node: node, Reason: reason}
}

// MasterError builds a terminal, job-wide fault outcome.
func MasterError(reason string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeMasterError, Reason: reason}
}

// Unknown builds an outcome for a message not covered by the tagged union.
func Unknown(payload string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeUnknown, Payload: payload}
}
