// Package client provides reference implementations of the coordinator's
// external-collaborator contracts (core.WorkerClient, core.EventClient,
// core.OobClient, core.GcClient). They are in-memory stand-ins for the real
// WorkerPool, event sink, OOB store, and garbage collector - useful for the
// local harness in cmd/coordinator and for tests - not a production
// implementation of any of those services.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aalda/mrcoord/internal/coordinator/core"
	"github.com/aalda/mrcoord/internal/shared/logging"
)

// Event is one record emitted by an EventClient for a job.
type Event struct {
	Tag     string
	Message string
}

// MemoryEventStore is an in-memory EventClient that records events per job
// for later polling, grounded on the mutex-guarded-map pattern of the
// teacher's in-memory job store. Every event is mirrored to the ambient
// logger so operators get a correlated process log alongside the job's own
// event stream.
type MemoryEventStore struct {
	mu      sync.RWMutex
	events  map[string][]Event
	flushed map[string]bool
	logger  logging.Logger
}

// NewMemoryEventStore builds an empty MemoryEventStore.
func NewMemoryEventStore(logger logging.Logger) *MemoryEventStore {
	return &MemoryEventStore{
		events:  make(map[string][]Event),
		flushed: make(map[string]bool),
		logger:  logger,
	}
}

func (s *MemoryEventStore) Emit(jobName, tag, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	s.mu.Lock()
	s.events[jobName] = append(s.events[jobName], Event{Tag: tag, Message: msg})
	s.mu.Unlock()

	log := s.logger.With("job", jobName, "tag", tag)
	if strings.HasPrefix(msg, "ERROR") {
		log.Error(msg)
	} else {
		log.Info(msg)
	}
}

func (s *MemoryEventStore) Flush(jobName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed[jobName] = true
}

// Events returns a snapshot of every event recorded for jobName, in
// emission order.
func (s *MemoryEventStore) Events(jobName string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events[jobName]))
	copy(out, s.events[jobName])
	return out
}

// Flushed reports whether Flush has been called for jobName.
func (s *MemoryEventStore) Flushed(jobName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushed[jobName]
}

// OobRecord is one side-channel key/value delivery recorded by
// MemoryOobStore.
type OobRecord struct {
	Node string
	Keys []string
}

// MemoryOobStore is an in-memory, best-effort OobClient.
type MemoryOobStore struct {
	mu      sync.Mutex
	records map[string][]OobRecord
}

func NewMemoryOobStore() *MemoryOobStore {
	return &MemoryOobStore{records: make(map[string][]OobRecord)}
}

func (s *MemoryOobStore) Store(jobName, node string, oobKeys []string) {
	if len(oobKeys) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[jobName] = append(s.records[jobName], OobRecord{Node: node, Keys: oobKeys})
}

// Records returns every OOB delivery recorded for jobName.
func (s *MemoryOobStore) Records(jobName string) []OobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OobRecord, len(s.records[jobName]))
	copy(out, s.records[jobName])
	return out
}

// MemoryGcClient is a best-effort GcClient that just records its calls.
type MemoryGcClient struct {
	mu    sync.Mutex
	calls [][]core.InputSpec
}

func NewMemoryGcClient() *MemoryGcClient {
	return &MemoryGcClient{}
}

func (c *MemoryGcClient) RemoveMapResults(reduceInputs []core.InputSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, reduceInputs)
}

// Calls returns the arguments of every RemoveMapResults call made so far.
func (c *MemoryGcClient) Calls() [][]core.InputSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]core.InputSpec, len(c.calls))
	copy(out, c.calls)
	return out
}

// NodeSimulator stands in for the real WorkerPool's node-side task
// execution: given a submission, it decides the outcome.
type NodeSimulator func(jobName string, partitionID int, phase core.PhaseTag, blacklist []string, variants []core.Variant) core.TaskOutcome

// MemoryWorkerClient is an in-memory, bounded-concurrency WorkerClient. It
// runs each submission through a NodeSimulator on a workerPool goroutine and
// posts the resulting outcome back on its shared Outcomes channel, exactly
// the asynchronous delivery shape core.WorkerClient documents.
type MemoryWorkerClient struct {
	pool     *workerPool
	outcomes chan core.TaskOutcome
	simulate NodeSimulator

	mu     sync.Mutex
	killed map[string]bool
}

// NewMemoryWorkerClient builds a MemoryWorkerClient backed by a pool of
// concurrency goroutines, each task decided by simulate.
func NewMemoryWorkerClient(concurrency int, simulate NodeSimulator) *MemoryWorkerClient {
	return &MemoryWorkerClient{
		pool:     newWorkerPool(concurrency),
		outcomes: make(chan core.TaskOutcome, 64),
		simulate: simulate,
		killed:   make(map[string]bool),
	}
}

func (c *MemoryWorkerClient) Submit(ctx context.Context, jobName string, partitionID int, phase core.PhaseTag, blacklist []string, variants []core.Variant) error {
	return c.pool.submit(ctx, func() {
		outcome := c.simulate(jobName, partitionID, phase, blacklist, variants)

		c.mu.Lock()
		killed := c.killed[jobName]
		c.mu.Unlock()
		if killed {
			return
		}

		select {
		case c.outcomes <- outcome:
		case <-ctx.Done():
		}
	})
}

func (c *MemoryWorkerClient) KillJob(ctx context.Context, jobName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killed[jobName] = true
	return nil
}

func (c *MemoryWorkerClient) Outcomes() <-chan core.TaskOutcome {
	return c.outcomes
}

// Close shuts down the backing worker pool, waiting for in-flight
// submissions to finish.
func (c *MemoryWorkerClient) Close() {
	c.pool.close()
}
