// Package workpool implements a fixed-size worker pool drained from a
// shared FIFO task queue. Submit returns a typed completion handle that
// blocks until the task has run on one of the pool's goroutines.
//
// Tasks start in submission order but complete in arbitrary order.
// Closing the pool rejects new submissions while pending tasks still run
// to completion; no work is lost between Submit and Close.
package workpool

import (
	"sync"

	exterrors "github.com/tamirms/extsort/errors"
	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size set of worker goroutines sharing one FIFO queue.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool

	group errgroup.Group
}

// New starts a pool with the given number of workers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	for range workers {
		p.group.Go(p.run)
	}
	return p
}

// run is the worker loop. Workers block on the condition variable until
// a task is queued or shutdown is signalled, and exit only once the
// queue is drained. Task execution happens outside the lock.
func (p *Pool) run() error {
	for {
		p.mu.Lock()
		for !p.stopped && len(p.queue) == 0 {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		task()
	}
}

// Close signals shutdown, wakes all waiting workers, and joins them.
// Pending tasks still run; only new submissions are rejected.
// Safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cond.Broadcast()
	_ = p.group.Wait()
}

type result[T any] struct {
	value T
	err   error
}

// Handle is the completion handle for one submitted task. It is not
// safe for concurrent use by multiple goroutines.
type Handle[T any] struct {
	ch   chan result[T]
	done bool
	res  result[T]
}

// Wait blocks until the task has finished and returns its result.
// Subsequent calls return the memoized result without blocking.
func (h *Handle[T]) Wait() (T, error) {
	if !h.done {
		h.res = <-h.ch
		h.done = true
	}
	return h.res.value, h.res.err
}

// Submit enqueues fn and returns a handle carrying its typed result.
// Submitting after Close fails with ErrPoolStopped.
//
// Submit is a package-level function rather than a method because Go
// methods cannot introduce type parameters; internally the task is
// stored as a uniform nullary closure.
func Submit[T any](p *Pool, fn func() (T, error)) (*Handle[T], error) {
	h := &Handle[T]{ch: make(chan result[T], 1)}
	task := func() {
		v, err := fn()
		h.ch <- result[T]{value: v, err: err}
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, exterrors.ErrPoolStopped
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()

	p.cond.Signal()
	return h, nil
}
