package core

import (
	"context"
	"fmt"

	"github.com/aalda/mrcoord/internal/shared/logging"
)

// PhaseRunner is the bounded-concurrency dispatch loop for one phase of one
// job: it consumes worker outcomes, applies the retry policy, and enforces
// the failure-rate cap. A PhaseRunner instance is reused across a job's map
// and reduce phases; the FailureTable and ResultBag it builds are owned
// exclusively by a single Run call and discarded when Run returns.
type PhaseRunner struct {
	worker         WorkerClient
	events         EventClient
	oob            OobClient
	maxFailureRate int
	logger         logging.Logger
}

// NewPhaseRunner builds a PhaseRunner bound to the given external
// collaborators. maxFailureRate is the per-partition blacklist-size
// threshold above which a partition's DataError aborts the job (see Run).
func NewPhaseRunner(worker WorkerClient, events EventClient, oob OobClient, maxFailureRate int, logger logging.Logger) *PhaseRunner {
	return &PhaseRunner{
		worker:         worker,
		events:         events,
		oob:            oob,
		maxFailureRate: maxFailureRate,
		logger:         logger,
	}
}

// Run drives partitions to completion for one phase and returns the
// resulting set of output URIs, or a terminal *LoggedError / *UnknownError.
// If ctx is done while waiting for an outcome, it returns ctx.Err() instead.
//
// Submissions honor the order of partitions on first dispatch; a retried
// partition re-enters immediately rather than at the queue tail (it does
// not consume or restore a slot in inFlight - one outcome ends, one retry
// begins). Outcomes are consumed in whatever order the WorkerClient
// delivers them.
func (r *PhaseRunner) Run(ctx context.Context, jobName string, phase PhaseTag, partitions []Partition, maxConcurrency int) ([]string, error) {
	failures := NewFailureTable()
	failures.Init(partitions)
	bag := NewResultBag()

	pending := make([]Partition, len(partitions))
	copy(pending, partitions)
	inFlight := 0

	dispatch := func(partitionID int, blacklist []string, variants []Variant) error {
		return r.worker.Submit(ctx, jobName, partitionID, phase, blacklist, variants)
	}

	for {
		for len(pending) > 0 && inFlight < maxConcurrency {
			p := pending[0]
			pending = pending[1:]
			rec := failures.Snapshot(p.ID)
			if err := dispatch(p.ID, rec.Blacklist, rec.RemainingInputs); err != nil {
				return nil, NewUnknownError(fmt.Sprintf("submit failed for %s:%d: %s", phase, p.ID, err))
			}
			r.logger.Debug("Dispatched task", "job", jobName, "phase", phase, "partition", p.ID, "in_flight", inFlight+1)
			inFlight++
		}

		if inFlight == 0 {
			if len(pending) == 0 {
				return bag.Snapshot(), nil
			}
			r.events.Emit(jobName, "", "ERROR: Nothing to wait")
			return nil, NewLoggedError("Nothing to wait")
		}

		var outcome TaskOutcome
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case outcome = <-r.worker.Outcomes():
		}

		if err := r.handleOutcome(ctx, jobName, phase, failures, bag, outcome); err != nil {
			return nil, err
		}
		if outcome.Kind == OutcomeOk {
			inFlight--
		}
		// OutcomeDataError re-dispatches without touching inFlight: one
		// outcome consumed, one task immediately re-submitted.
	}
}

// handleOutcome applies one outcome to the phase's shared state. A non-nil
// error is always terminal (*LoggedError or *UnknownError) and unwinds Run.
func (r *PhaseRunner) handleOutcome(
	ctx context.Context,
	jobName string,
	phase PhaseTag,
	failures *FailureTable,
	bag *ResultBag,
	outcome TaskOutcome,
) error {
	switch outcome.Kind {
	case OutcomeOk:
		r.events.Emit(jobName, "task_ready", "Received results from %s:%d @ %s.", phase, outcome.PartitionID, outcome.Node)
		r.oob.Store(jobName, outcome.Node, outcome.OobKeys)
		bag.Add(outcome.OutputURI)
		return nil

	case OutcomeDataError:
		if failures.BlacklistSize(outcome.PartitionID) > r.maxFailureRate {
			n := failures.BlacklistSize(outcome.PartitionID)
			msg := fmt.Sprintf("%s:%d failed %d times. Aborting job.", phase, outcome.PartitionID, n)
			r.events.Emit(jobName, "", "ERROR: %s", msg)
			return NewLoggedError("%s", msg)
		}
		rec := failures.OnDataError(outcome.PartitionID, outcome.FailedURI, outcome.Node)
		r.logger.Debug("Retrying after data error", "job", jobName, "phase", phase, "partition", outcome.PartitionID, "node", outcome.Node, "blacklist", rec.Blacklist)
		if err := r.worker.Submit(ctx, jobName, outcome.PartitionID, phase, rec.Blacklist, rec.RemainingInputs); err != nil {
			return NewUnknownError(fmt.Sprintf("resubmit failed for %s:%d: %s", phase, outcome.PartitionID, err))
		}
		return nil

	case OutcomeJobError:
		msg := fmt.Sprintf("ERROR: Job error reported by worker in %s:%d @ %s", phase, outcome.PartitionID, outcome.Node)
		r.events.Emit(jobName, "", "%s", msg)
		return NewLoggedError("%s", msg)

	case OutcomeWorkerCrashed:
		msg := fmt.Sprintf("ERROR: Worker crashed in %s:%d @ %s: %s", phase, outcome.PartitionID, outcome.Node, outcome.Reason)
		r.events.Emit(jobName, "", "%s", msg)
		return NewLoggedError("%s", msg)

	case OutcomeMasterError:
		msg := fmt.Sprintf("ERROR: Master terminated the job: %s", outcome.Reason)
		r.events.Emit(jobName, "", "%s", msg)
		return NewLoggedError("%s", msg)

	case OutcomeUnknown:
		msg := fmt.Sprintf("ERROR: Received an unknown error: %s", outcome.Payload)
		r.events.Emit(jobName, "", "%s", msg)
		return NewUnknownError(msg)

	default:
		msg := fmt.Sprintf("ERROR: Received an unknown error: unrecognized outcome kind %d", outcome.Kind)
		r.events.Emit(jobName, "", "%s", msg)
		return NewUnknownError(msg)
	}
}
