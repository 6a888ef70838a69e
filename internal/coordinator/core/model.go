// Package core implements the job coordinator's state machine: the
// bounded-concurrency dispatch loop that drives one phase (map or reduce) of
// a job to completion, tolerating worker and input-level failures.
package core

import "github.com/google/uuid"

// JobDescriptor is the parsed, validated job submission the coordinator
// receives from the ingress. It is immutable for the lifetime of the job.
type JobDescriptor struct {
	// ID correlates log lines and events; it has no bearing on the state
	// machine itself.
	ID uuid.UUID
	// Name is the job's unique identifier. It must contain neither "/" nor
	// "." and is assumed unique by the time it reaches the coordinator.
	Name string

	Inputs []InputSpec

	// NMap bounds concurrent map tasks. Zero disables the map phase;
	// Inputs then flow directly into the reduce phase.
	NMap int
	// NRed bounds concurrent reduce tasks.
	NRed int
	// DoReduce, when false, skips the reduce phase entirely; map outputs
	// (or the raw inputs, if NMap is zero) are the job's final result.
	DoReduce bool
}

// InputSpec is either a single URI or a non-empty ordered list of
// alternative URIs (redundant replicas of the same partition). The reduce
// phase rejects InputSpecs with more than one URI; the map phase accepts
// both.
type InputSpec struct {
	URIs []string
}

// SingleInput builds an InputSpec backed by exactly one URI.
func SingleInput(uri string) InputSpec {
	return InputSpec{URIs: []string{uri}}
}

// ReplicatedInput builds an InputSpec backed by one or more alternative
// URIs for the same partition.
func ReplicatedInput(uris ...string) InputSpec {
	return InputSpec{URIs: uris}
}

// IsReplicated reports whether the InputSpec carries more than one
// alternative URI.
func (s InputSpec) IsReplicated() bool {
	return len(s.URIs) > 1
}

// Variant is one of a partition's interchangeable input URIs, paired with
// the worker host it's best fetched from.
type Variant struct {
	URI      string
	PrefHost string // empty when no locality hint could be derived
}

// Partition is a single unit of work within one phase: an id and one or
// more interchangeable input variants.
type Partition struct {
	ID       int
	Variants []Variant
}

// PhaseTag names which phase a task belongs to. It is passed to the
// WorkerClient with each submission and appears in event and log messages;
// the FailureTable and ResultBag do not use it.
type PhaseTag string

const (
	PhaseMap    PhaseTag = "map"
	PhaseReduce PhaseTag = "reduce"
)
