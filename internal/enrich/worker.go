package enrich

import (
	"context"
	"log"

	"gate-checkin-backend/internal/registry"
)

// Lookuper defines the interface for checking a licence against the register.
type Lookuper interface {
	Lookup(ctx context.Context, licence string) registry.Result
}

type job struct {
	licence string
	result  chan registry.Result
}

// WorkerPool runs registry lookups off the request path.
type WorkerPool struct {
	size   int
	jobs   chan job
	lookup Lookuper
}

// NewWorkerPool creates a new worker pool with a bounded queue.
func NewWorkerPool(size, queue int, lookup Lookuper) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queue <= 0 {
		queue = size
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan job, queue),
		lookup: lookup,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Registry worker %d started", id)
	for {
		select {
		case j := <-wp.jobs:
			j.result <- wp.run(ctx, j.licence)
		case <-ctx.Done():
			log.Printf("Registry worker %d shutting down", id)
			return
		}
	}
}

func (wp *WorkerPool) run(ctx context.Context, licence string) (res registry.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Registry worker recovered from panic for %s: %v", licence, r)
			res = registry.Result{Error: "registry lookup failed"}
		}
	}()
	return wp.lookup.Lookup(ctx, licence)
}

// Submit queues a lookup without blocking. The returned channel receives
// exactly one result; it is nil when the queue is full.
func (wp *WorkerPool) Submit(licence string) <-chan registry.Result {
	j := job{licence: licence, result: make(chan registry.Result, 1)}
	select {
	case wp.jobs <- j:
		return j.result
	default:
		log.Printf("Registry queue full; skipping lookup for %s", licence)
		return nil
	}
}

// Pending returns the number of queued lookups.
func (wp *WorkerPool) Pending() int {
	return len(wp.jobs)
}
