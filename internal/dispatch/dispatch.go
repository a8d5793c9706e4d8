// Package dispatch fans inbound jobs out to a small fixed pool of workers so
// a burst of documents cannot pile up unbounded goroutines.
package dispatch

import (
	"context"
	"sync"
)

// Options configure one pool.
type Options[J any] struct {
	Workers int
	Handle  func(context.Context, J)
}

// Pool runs at most Workers concurrent Handle calls. The jobs channel is
// unbuffered: Enqueue blocks until a worker is free, which is the only
// backpressure in the system.
type Pool[J any] struct {
	jobs chan J
	wg   sync.WaitGroup
}

// Start launches the workers. Each exits when ctx is done; a handler that is
// already running finishes first.
func Start[J any](ctx context.Context, opts Options[J]) *Pool[J] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	p := &Pool[J]{jobs: make(chan J)}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-p.jobs:
					opts.Handle(ctx, job)
				}
			}
		}()
	}
	return p
}

// Enqueue hands one job to the pool, blocking until a worker picks it up or
// ctx ends.
func (p *Pool[J]) Enqueue(ctx context.Context, job J) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Wait blocks until every worker has returned. Callers cancel the Start ctx
// first.
func (p *Pool[J]) Wait() {
	p.wg.Wait()
}
