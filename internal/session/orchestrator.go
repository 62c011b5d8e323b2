package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voltlab/voltlab-api/internal/worker"
)

// Failure modes of a single unit. Both are returned as data inside the
// pair result, never propagated as a session error.
var (
	// ErrUnitPanic wraps a panic recovered from a unit.
	ErrUnitPanic = errors.New("unit panicked")

	// ErrUnitTimeout marks a unit that exceeded the configured per-unit
	// timeout. The underlying work may still be running on its worker;
	// the session settles without it.
	ErrUnitTimeout = errors.New("unit timed out")
)

// DurationUnknown is the sentinel recorded when a unit failed before a
// duration could be measured.
const DurationUnknown int64 = -1

// Unit is one fallible half of a session pair.
type Unit[T any] func(ctx context.Context) (T, error)

// UnitResult carries a settled unit's value or error plus its runtime.
// DurationMS is DurationUnknown when the unit failed before timing could
// be recorded (panic, timeout, or a pool that refused the job).
type UnitResult[T any] struct {
	Value      T
	Err        error
	DurationMS int64
}

// PairResult is the merged outcome of one orchestrated session. It is
// always fully populated: a failed unit contributes an error value, never
// a hole gated on the sibling's success.
type PairResult[A, B any] struct {
	A UnitResult[A]
	B UnitResult[B]

	// WaitMS is the time the session spent queued for an admission slot.
	WaitMS int64

	// TotalMS is the wall-clock time from dispatch until both units
	// settled.
	TotalMS int64
}

// Orchestrator runs session pairs on a shared worker pool.
type Orchestrator struct {
	pool        *worker.Pool
	unitTimeout time.Duration
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator dispatching onto pool.
// unitTimeout bounds each unit's execution; zero disables the bound.
// If logger is nil, the default logger is used.
func NewOrchestrator(pool *worker.Pool, unitTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		pool:        pool,
		unitTimeout: unitTimeout,
		logger:      logger.With(slog.String("component", "session")),
	}
}

// Run dispatches both units onto the worker pool and returns once both
// have settled, regardless of individual success or failure. waited is
// the admission wait already incurred by the caller and is carried into
// the result for logging and the response payload.
//
// Run never fails: every failure mode is encoded in the returned
// UnitResults.
func Run[A, B any](ctx context.Context, o *Orchestrator, waited time.Duration, unitA Unit[A], unitB Unit[B]) PairResult[A, B] {
	start := time.Now()

	var res PairResult[A, B]
	res.WaitMS = waited.Milliseconds()

	var wg sync.WaitGroup
	wg.Add(2)
	dispatch(ctx, o, &wg, unitA, &res.A)
	dispatch(ctx, o, &wg, unitB, &res.B)
	wg.Wait()

	res.TotalMS = time.Since(start).Milliseconds()

	o.logger.Info("session settled",
		"wait_ms", res.WaitMS,
		"unit_a_ms", res.A.DurationMS,
		"unit_a_ok", res.A.Err == nil,
		"unit_b_ms", res.B.DurationMS,
		"unit_b_ok", res.B.Err == nil,
		"total_ms", res.TotalMS)

	return res
}

// dispatch submits one unit to the pool. If the pool refuses the job the
// unit settles immediately as a failure; wg is balanced on every path.
func dispatch[T any](ctx context.Context, o *Orchestrator, wg *sync.WaitGroup, u Unit[T], out *UnitResult[T]) {
	err := o.pool.Submit(ctx, func() {
		defer wg.Done()
		r := o.runUnit(ctx, anyUnit(u))
		typed := UnitResult[T]{Err: r.Err, DurationMS: r.DurationMS}
		if v, ok := r.Value.(T); ok {
			typed.Value = v
		}
		*out = typed
	})
	if err != nil {
		*out = UnitResult[T]{
			Err:        fmt.Errorf("dispatch failed: %w", err),
			DurationMS: DurationUnknown,
		}
		wg.Done()
	}
}

// anyUnit adapts a typed unit so runUnit can stay non-generic (methods
// cannot carry type parameters).
func anyUnit[T any](u Unit[T]) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return u(ctx)
	}
}

func (o *Orchestrator) runUnit(ctx context.Context, u func(context.Context) (any, error)) UnitResult[any] {
	if o.unitTimeout <= 0 {
		return execUnit(ctx, u)
	}

	ctx, cancel := context.WithTimeout(ctx, o.unitTimeout)
	defer cancel()

	// The unit runs in its own goroutine so a unit that ignores ctx still
	// cannot hold the session (and its admission slot) hostage. On timeout
	// the goroutine is abandoned; it is logged when it eventually settles.
	results := make(chan UnitResult[any], 1)
	go func() {
		results <- execUnit(ctx, u)
	}()

	select {
	case r := <-results:
		return r
	case <-ctx.Done():
		o.logger.Warn("unit exceeded timeout, settling session without it",
			"timeout_ms", o.unitTimeout.Milliseconds())
		go func() {
			r := <-results
			o.logger.Warn("abandoned unit settled after timeout",
				"duration_ms", r.DurationMS,
				"ok", r.Err == nil)
		}()
		return UnitResult[any]{
			Err:        fmt.Errorf("%w after %s", ErrUnitTimeout, o.unitTimeout),
			DurationMS: DurationUnknown,
		}
	}
}

// execUnit runs the unit synchronously, converting a panic into an error
// value. The duration sentinel is left in place when the unit did not
// return normally.
func execUnit(ctx context.Context, u func(context.Context) (any, error)) (res UnitResult[any]) {
	res.DurationMS = DurationUnknown

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrUnitPanic, r)
		}
	}()

	start := time.Now()
	v, err := u(ctx)
	res.DurationMS = time.Since(start).Milliseconds()
	res.Value = v
	res.Err = err
	return res
}
