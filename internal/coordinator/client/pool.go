package client

import (
	"context"
	"sync"
)

// job is a unit of work handed to a workerPool.
type job func()

// workerPool is a bounded pool of goroutines draining a work queue. It
// backs the in-memory WorkerClient: accepting a submission blocks the
// caller only until a worker slot is free, mirroring the "synchronous
// acknowledgement, asynchronous execution" contract real worker dispatch
// has with the coordinator.
type workerPool struct {
	jobs chan job
	wg   sync.WaitGroup
}

func newWorkerPool(numWorkers int) *workerPool {
	p := &workerPool{jobs: make(chan job)}
	p.start(numWorkers)
	return p
}

func (p *workerPool) start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				j()
			}
		}()
	}
}

// submit enqueues j, blocking until a worker is free or ctx is done.
func (p *workerPool) submit(ctx context.Context, j job) error {
	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *workerPool) close() {
	close(p.jobs)
	p.wg.Wait()
}
