package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aalda/mrcoord/internal/shared/logging"
)

// scriptedWorkerClient is a test double that turns every Submit into an
// asynchronous Outcomes delivery computed by handler.
type scriptedWorkerClient struct {
	mu        sync.Mutex
	submitted []string
	inFlight  int32
	maxSeen   int32

	outcomes chan TaskOutcome
	handler  func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome
	delay    time.Duration
}

func newScriptedWorkerClient(handler func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome) *scriptedWorkerClient {
	return &scriptedWorkerClient{outcomes: make(chan TaskOutcome, 128), handler: handler}
}

func (c *scriptedWorkerClient) Submit(ctx context.Context, jobName string, partitionID int, phase PhaseTag, blacklist []string, variants []Variant) error {
	c.mu.Lock()
	c.submitted = append(c.submitted, fmt.Sprintf("%s:%d", phase, partitionID))
	c.mu.Unlock()

	cur := atomic.AddInt32(&c.inFlight, 1)
	for {
		max := atomic.LoadInt32(&c.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&c.maxSeen, max, cur) {
			break
		}
	}

	go func() {
		if c.delay > 0 {
			time.Sleep(c.delay)
		}
		outcome := c.handler(partitionID, phase, blacklist, variants)
		atomic.AddInt32(&c.inFlight, -1)
		c.outcomes <- outcome
	}()
	return nil
}

func (c *scriptedWorkerClient) KillJob(ctx context.Context, jobName string) error { return nil }
func (c *scriptedWorkerClient) Outcomes() <-chan TaskOutcome                      { return c.outcomes }

type recordingEventClient struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEventClient) Emit(jobName, tag, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}
func (r *recordingEventClient) Flush(jobName string) {}

func (r *recordingEventClient) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

type recordingOobClient struct {
	mu    sync.Mutex
	calls int
}

func (o *recordingOobClient) Store(jobName, node string, oobKeys []string) {
	if len(oobKeys) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
}

func noopLogger() logging.Logger {
	return logging.NewSlogLogger(1 << 20) // above any real slog level: silences output
}

func twoPartitions() []Partition {
	return []Partition{
		{ID: 0, Variants: []Variant{{URI: "http://h1/a"}}},
		{ID: 1, Variants: []Variant{{URI: "http://h2/b"}}},
	}
}

func TestPhaseRunner_HappyPath(t *testing.T) {
	worker := newScriptedWorkerClient(func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome {
		return Ok(partitionID, variants[0].PrefHost, fmt.Sprintf("r%d", partitionID), nil)
	})
	events := &recordingEventClient{}
	oob := &recordingOobClient{}
	runner := NewPhaseRunner(worker, events, oob, 3, noopLogger())

	out, err := runner.Run(context.Background(), "J1", PhaseReduce, twoPartitions(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "r0" || out[1] != "r1" {
		t.Errorf("Run output = %v, want [r0 r1]", out)
	}
}

func TestPhaseRunner_DataErrorRetriesWithBlacklist(t *testing.T) {
	var attempt int32
	worker := newScriptedWorkerClient(func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome {
		n := atomic.AddInt32(&attempt, 1)
		if n == 1 {
			return DataError(partitionID, "h1", variants[0].URI)
		}
		// Retried submission must carry the blacklist and the preserved
		// single variant (last-resort: sole variant is never pruned).
		if len(blacklist) != 1 || blacklist[0] != "h1" {
			t.Errorf("retry blacklist = %v, want [h1]", blacklist)
		}
		if len(variants) != 1 || variants[0].URI != "http://h1/x" {
			t.Errorf("retry variants = %v, want the original sole variant", variants)
		}
		return Ok(partitionID, "h2", "y", nil)
	})
	events := &recordingEventClient{}
	oob := &recordingOobClient{}
	runner := NewPhaseRunner(worker, events, oob, 3, noopLogger())

	partitions := []Partition{{ID: 0, Variants: []Variant{{URI: "http://h1/x"}}}}
	out, err := runner.Run(context.Background(), "J2", PhaseMap, partitions, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0] != "y" {
		t.Errorf("Run output = %v, want [y]", out)
	}
}

func TestPhaseRunner_FailureRateCapAborts(t *testing.T) {
	var n int32
	worker := newScriptedWorkerClient(func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome {
		i := atomic.AddInt32(&n, 1)
		node := fmt.Sprintf("h%d", i)
		return DataError(partitionID, node, variants[0].URI)
	})
	events := &recordingEventClient{}
	oob := &recordingOobClient{}
	// maxFailureRate=1 tolerates 2 distinct-node failures; the 3rd aborts.
	runner := NewPhaseRunner(worker, events, oob, 1, noopLogger())

	partitions := []Partition{{ID: 0, Variants: []Variant{{URI: "http://h0/x"}}}}
	_, err := runner.Run(context.Background(), "J3", PhaseMap, partitions, 1)

	if _, ok := err.(*LoggedError); !ok {
		t.Fatalf("err = %v (%T), want *LoggedError", err, err)
	}
	want := "map:0 failed 2 times. Aborting job."
	if got := events.last(); got != "ERROR: "+want {
		t.Errorf("last event = %q, want %q", got, "ERROR: "+want)
	}
}

func TestPhaseRunner_WorkerCrashAborts(t *testing.T) {
	worker := newScriptedWorkerClient(func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome {
		return WorkerCrashed(partitionID, "h1", "oom")
	})
	events := &recordingEventClient{}
	oob := &recordingOobClient{}
	runner := NewPhaseRunner(worker, events, oob, 3, noopLogger())

	_, err := runner.Run(context.Background(), "J4", PhaseMap, twoPartitions(), 2)
	if _, ok := err.(*LoggedError); !ok {
		t.Fatalf("err = %v (%T), want *LoggedError", err, err)
	}
}

func TestPhaseRunner_BoundedFanOut(t *testing.T) {
	const maxConcurrency = 2
	worker := newScriptedWorkerClient(func(partitionID int, phase PhaseTag, blacklist []string, variants []Variant) TaskOutcome {
		return Ok(partitionID, variants[0].PrefHost, fmt.Sprintf("r%d", partitionID), nil)
	})
	worker.delay = 20 * time.Millisecond
	events := &recordingEventClient{}
	oob := &recordingOobClient{}
	runner := NewPhaseRunner(worker, events, oob, 3, noopLogger())

	partitions := make([]Partition, 6)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Variants: []Variant{{URI: fmt.Sprintf("http://h/%d", i)}}}
	}

	out, err := runner.Run(context.Background(), "J5", PhaseMap, partitions, maxConcurrency)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 6 {
		t.Fatalf("Run output len = %d, want 6", len(out))
	}
	if worker.maxSeen > maxConcurrency {
		t.Errorf("observed %d concurrent submissions in flight, want <= %d", worker.maxSeen, maxConcurrency)
	}
}
