package core

import (
	"fmt"
	"strings"
)

// TaskSet is the immutable enumeration of partitions dispatched for one
// phase. Map and reduce task sets are built by MapTaskSet and ReduceTaskSet
// respectively; nothing else constructs a TaskSet.
type TaskSet struct {
	Partitions []Partition
}

// MapTaskSet builds the map phase's task set: one partition per input,
// assignment = input position. A replicated InputSpec becomes a
// multi-variant partition; a singleton becomes a one-element variant list.
// MapTaskSet preserves partition count: len(Partitions) == len(inputs).
func MapTaskSet(inputs []InputSpec) TaskSet {
	partitions := make([]Partition, len(inputs))
	for i, spec := range inputs {
		variants := make([]Variant, len(spec.URIs))
		for j, uri := range spec.URIs {
			variants[j] = Variant{URI: uri, PrefHost: PrefHost(uri)}
		}
		partitions[i] = Partition{ID: i, Variants: variants}
	}
	return TaskSet{Partitions: partitions}
}

// ErrRedundantReduceInput is returned by ReduceTaskSet when one of the
// reduce inputs carries more than one alternative URI; the reduce phase has
// no replica semantics.
var ErrRedundantReduceInput = NewLoggedError("Reduce doesn't support redundant inputs")

// ReduceTaskSet builds the reduce phase's task set: one partition per
// input, each carrying a single synthetic variant whose URI is the
// space-joined, quoted concatenation of every input (so the reduce task
// knows to fetch all of them) and whose locality hint is that partition's
// own input host. ReduceTaskSet rejects redundant (replicated) inputs.
func ReduceTaskSet(inputs []InputSpec) (TaskSet, error) {
	for _, spec := range inputs {
		if spec.IsReplicated() {
			return TaskSet{}, ErrRedundantReduceInput
		}
	}

	uris := make([]string, len(inputs))
	for i, spec := range inputs {
		if len(spec.URIs) == 1 {
			uris[i] = spec.URIs[0]
		}
	}
	synthetic := quoteJoin(uris)

	partitions := make([]Partition, len(inputs))
	for i, spec := range inputs {
		var prefHost string
		if len(spec.URIs) == 1 {
			prefHost = PrefHost(spec.URIs[0])
		}
		partitions[i] = Partition{
			ID:       i,
			Variants: []Variant{{URI: synthetic, PrefHost: prefHost}},
		}
	}
	return TaskSet{Partitions: partitions}, nil
}

// quoteJoin renders uris as "'u0' 'u1' … 'uK-1' " - single-quoted,
// space-separated, with a trailing space.
func quoteJoin(uris []string) string {
	var b strings.Builder
	for _, uri := range uris {
		fmt.Fprintf(&b, "'%s' ", uri)
	}
	return b.String()
}
