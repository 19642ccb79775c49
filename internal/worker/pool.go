package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
)

// ErrQueueFull is returned by Submit when the queue is at capacity; callers
// should surface backpressure to the requester rather than block.
var ErrQueueFull = errors.New("worker queue full")

// Pool runs submitted jobs on a fixed set of workers. Bounding both workers
// and queue keeps request volume from exhausting the process.
type Pool struct {
	queue   chan func()
	workers int
	wg      sync.WaitGroup
	active  atomic.Int32
	started bool
	mu      sync.Mutex
}

func NewPool(workers, queueSize int) *Pool {
	return &Pool{
		queue:   make(chan func(), queueSize),
		workers: workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	log.Printf("[worker] pool started with %d workers", p.workers)
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.active.Add(1)
			job()
			p.active.Add(-1)
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(job func()) error {
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting work and waits for in-flight jobs.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
	log.Printf("[worker] pool stopped")
}

// Active reports jobs currently executing.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Queued reports jobs waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.queue)
}
