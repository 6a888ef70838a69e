// Package service drives a single job's lifecycle end to end: start, map
// phase, reduce phase, cleanup, and the terminal READY event.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/aalda/mrcoord/internal/coordinator/core"
	"github.com/aalda/mrcoord/internal/shared/logging"
)

// Coordinator runs one JobDescriptor to completion, chaining its map and
// reduce phases through a shared PhaseRunner. A Coordinator instance is not
// reused across jobs; build one per Run call.
type Coordinator struct {
	runner *core.PhaseRunner
	events core.EventClient
	gc     core.GcClient
	worker core.WorkerClient
	logger logging.Logger
}

// NewCoordinator builds a Coordinator bound to the given phase runner and
// collaborators.
func NewCoordinator(runner *core.PhaseRunner, events core.EventClient, gc core.GcClient, worker core.WorkerClient, logger logging.Logger) *Coordinator {
	return &Coordinator{runner: runner, events: events, gc: gc, worker: worker, logger: logger}
}

// Ack is called once, immediately on Run's entry, to signal the spawning
// caller that the coordinator has come up. It must not block Run beyond a
// small bound; a failing Ack does not stop the job from running.
type Ack func(selfID uuid.UUID) error

// Run drives job to READY or ABORTED, returning the final output set on
// success. It always flushes the event sink before returning, whether the
// job succeeded or was aborted.
func (c *Coordinator) Run(ctx context.Context, job core.JobDescriptor, ack Ack) ([]string, error) {
	if ack != nil {
		if err := ack(job.ID); err != nil {
			c.logger.Warn("Ack to parent failed", "job", job.Name, "error", err)
		}
	}

	c.events.Emit(job.Name, "start", "Job coordinator starts")
	c.events.Emit(job.Name, "job_data", "Starting job: nMap=%d nRed=%d doReduce=%t inputs=%d", job.NMap, job.NRed, job.DoReduce, len(job.Inputs))

	finalResults, err := c.run(ctx, job)
	if err != nil {
		c.abort(job.Name, err)
		return nil, err
	}

	c.events.Emit(job.Name, "ready", "READY: %v", finalResults)
	c.events.Flush(job.Name)
	return finalResults, nil
}

func (c *Coordinator) run(ctx context.Context, job core.JobDescriptor) ([]string, error) {
	mapRan := job.NMap > 0
	redInputs := job.Inputs

	if mapRan {
		c.events.Emit(job.Name, "", "Map phase")
		mapTasks := core.MapTaskSet(job.Inputs)
		outputs, err := c.runner.Run(ctx, job.Name, core.PhaseMap, mapTasks.Partitions, job.NMap)
		if err != nil {
			return nil, err
		}
		c.events.Emit(job.Name, "", "Map phase done")
		redInputs = toInputSpecs(outputs)
	}

	reduceRan := job.DoReduce
	finalResults := toOutputs(redInputs)
	if reduceRan {
		c.events.Emit(job.Name, "", "Starting reduce phase")
		reduceTasks, err := core.ReduceTaskSet(redInputs)
		if err != nil {
			c.events.Emit(job.Name, "", "ERROR: %s", reasonOf(err))
			return nil, err
		}
		outputs, err := c.runner.Run(ctx, job.Name, core.PhaseReduce, reduceTasks.Partitions, job.NRed)
		if err != nil {
			return nil, err
		}
		finalResults = outputs
	}

	if mapRan && reduceRan {
		c.gc.RemoveMapResults(redInputs)
	}

	return finalResults, nil
}

func (c *Coordinator) abort(jobName string, err error) {
	switch err.(type) {
	case *core.LoggedError:
		c.events.Emit(jobName, "", "Job terminated due to the previous errors")
	default:
		c.events.Emit(jobName, "", "Job coordinator failed unexpectedly: %s", err)
	}
	if killErr := c.worker.KillJob(context.Background(), jobName); killErr != nil {
		c.logger.Warn("KillJob failed during abort", "job", jobName, "error", killErr)
	}
	c.events.Flush(jobName)
}

// reasonOf extracts a LoggedError's bare reason, falling back to the full
// error text for anything else; used to re-emit a sub-error's message
// without the "logged error:" wrapper Error() adds.
func reasonOf(err error) string {
	if le, ok := err.(*core.LoggedError); ok {
		return le.Reason
	}
	return err.Error()
}

func toInputSpecs(uris []string) []core.InputSpec {
	specs := make([]core.InputSpec, len(uris))
	for i, uri := range uris {
		specs[i] = core.SingleInput(uri)
	}
	return specs
}

// toOutputs renders a job's raw InputSpecs as a flat output set, used when a
// phase is skipped and its inputs pass straight through as final results.
// Redundant (replicated) specs are rendered with quoteJoin's sibling
// semantics dropped: each URI is listed independently since there is no
// reduce-phase synthetic merge to collapse them.
func toOutputs(specs []core.InputSpec) []string {
	var out []string
	for _, spec := range specs {
		out = append(out, spec.URIs...)
	}
	return out
}
