package admission

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooBusy is returned by Acquire when the admission queue is full.
// Callers should surface this as a retry-later condition rather than
// waiting.
var ErrTooBusy = errors.New("admission queue is full, try again later")

// Controller is a FIFO admission gate for expensive processing sessions.
// At most MaxSessions slots are outstanding at any time; a bounded number
// of additional callers may wait for a slot.
type Controller struct {
	sem         *semaphore.Weighted
	maxSessions int
	maxWaiters  int64
	waiting     atomic.Int64
	logger      *slog.Logger
}

// NewController creates a Controller admitting at most maxSessions
// concurrent sessions and queueing at most maxWaiters callers.
// If logger is nil, the default logger is used.
func NewController(maxSessions, maxWaiters int, logger *slog.Logger) *Controller {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	if maxWaiters <= 0 {
		maxWaiters = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		sem:         semaphore.NewWeighted(int64(maxSessions)),
		maxSessions: maxSessions,
		maxWaiters:  int64(maxWaiters),
		logger:      logger.With(slog.String("component", "admission")),
	}
}

// Acquire reserves a session slot, blocking in FIFO order behind earlier
// callers until one frees. It returns the time spent waiting. When the
// waiter queue is full it fails fast with ErrTooBusy; when ctx is
// cancelled while queued it returns ctx.Err(). No slot is held in either
// failure case.
func (c *Controller) Acquire(ctx context.Context) (time.Duration, error) {
	// Fast path: a free slot and no queue. TryAcquire respects waiter
	// order, so this cannot jump the queue.
	if c.sem.TryAcquire(1) {
		return 0, nil
	}

	if c.waiting.Add(1) > c.maxWaiters {
		c.waiting.Add(-1)
		c.logger.Warn("admission queue full, rejecting caller",
			"max_sessions", c.maxSessions,
			"max_waiters", c.maxWaiters)
		return 0, ErrTooBusy
	}
	defer c.waiting.Add(-1)

	start := time.Now()
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return time.Since(start), err
	}

	waited := time.Since(start)
	c.logger.Debug("session slot acquired after waiting",
		"wait_ms", waited.Milliseconds())
	return waited, nil
}

// Release returns a slot, waking the longest-waiting queued caller if any.
// It must be called exactly once per successful Acquire.
func (c *Controller) Release() {
	c.sem.Release(1)
}

// Waiting reports the number of callers currently queued for a slot.
func (c *Controller) Waiting() int {
	return int(c.waiting.Load())
}

// Do runs fn while holding a session slot. The slot is released on every
// exit path, including a panic inside fn. fn receives the time the caller
// spent queued.
func (c *Controller) Do(ctx context.Context, fn func(waited time.Duration)) error {
	waited, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()

	fn(waited)
	return nil
}
