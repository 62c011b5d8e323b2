// Package worker provides a fixed-size pool of goroutines for running
// blocking work (model calls, image decode) off the request-handling path.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("worker pool is stopped")

// Pool runs submitted jobs on a fixed number of worker goroutines.
// The job channel is unbuffered, so submission blocks while all workers
// are busy and the pool acts as a hard bound on concurrently executing
// jobs.
type Pool struct {
	jobs     chan func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewPool creates a pool with the given number of workers and starts them.
// If count is zero or negative it defaults to 1. If logger is nil, the
// default logger is used.
func NewPool(count int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if count <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", count,
			"default_count", 1)
		count = 1
	}

	p := &Pool{
		jobs:   make(chan func()),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "worker_pool")),
	}

	for i := 0; i < count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

// Submit hands a job to the pool, blocking until a worker accepts it or
// ctx is cancelled. Returns ErrPoolStopped after Stop.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	select {
	case <-p.done:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolStopped
	}
}

// Stop prevents further submissions and waits for in-flight jobs to
// finish. Safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker executes jobs until the pool is stopped. A panicking job is
// logged and does not take the worker down; callers that need the panic
// value recover it themselves before submitting.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.done:
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case job := <-p.jobs:
			p.runJob(id, job)
		}
	}
}

func (p *Pool) runJob(id int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				"worker_id", id,
				"panic", r)
		}
	}()

	job()
}
