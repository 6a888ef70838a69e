package core

// FailureRecord is the mutable per-partition bookkeeping a PhaseRunner
// invocation keeps for the duration of one phase: which nodes this
// partition has failed a data fetch on, and which input variants are still
// considered worth retrying.
//
// Invariant: RemainingInputs is never empty. If removing a failed variant
// would empty it, the removal is skipped and the original set is kept (the
// last-resort retry: re-send the sole variant on a different node).
type FailureRecord struct {
	Blacklist       []string
	RemainingInputs []Variant
}

func (r FailureRecord) hasNode(node string) bool {
	for _, n := range r.Blacklist {
		if n == node {
			return true
		}
	}
	return false
}

// FailureTable is owned exclusively by one PhaseRunner invocation; it is
// populated by Init and discarded when the phase returns.
type FailureTable struct {
	records map[int]*FailureRecord
}

// NewFailureTable builds an empty FailureTable.
func NewFailureTable() *FailureTable {
	return &FailureTable{records: make(map[int]*FailureRecord)}
}

// Init populates one record per partition with an empty blacklist and the
// partition's full variant list.
func (t *FailureTable) Init(partitions []Partition) {
	for _, p := range partitions {
		variants := make([]Variant, len(p.Variants))
		copy(variants, p.Variants)
		t.records[p.ID] = &FailureRecord{RemainingInputs: variants}
	}
}

// BlacklistSize returns the number of nodes currently blacklisted for a
// partition, used by the failure-rate check.
func (t *FailureTable) BlacklistSize(partitionID int) int {
	return len(t.records[partitionID].Blacklist)
}

// Snapshot returns a read-only copy of a partition's current
// (blacklist, remainingInputs) pair.
func (t *FailureTable) Snapshot(partitionID int) FailureRecord {
	rec := t.records[partitionID]
	blacklist := make([]string, len(rec.Blacklist))
	copy(blacklist, rec.Blacklist)
	variants := make([]Variant, len(rec.RemainingInputs))
	copy(variants, rec.RemainingInputs)
	return FailureRecord{Blacklist: blacklist, RemainingInputs: variants}
}

// OnDataError appends node to the partition's blacklist (unless it is
// already listed there, so a repeated node does not grow it) and, when more
// than one remaining input variant is available, prunes any variant whose
// URI equals failedUri. It returns the updated record.
func (t *FailureTable) OnDataError(partitionID int, failedURI, node string) FailureRecord {
	rec := t.records[partitionID]
	if !rec.hasNode(node) {
		rec.Blacklist = append(rec.Blacklist, node)
	}

	if len(rec.RemainingInputs) > 1 {
		pruned := rec.RemainingInputs[:0:0]
		for _, v := range rec.RemainingInputs {
			if v.URI != failedURI {
				pruned = append(pruned, v)
			}
		}
		if len(pruned) > 0 {
			rec.RemainingInputs = pruned
		}
	}

	return t.Snapshot(partitionID)
}
