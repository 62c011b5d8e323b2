package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJob(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Stop()

	done := make(chan struct{})
	err := p.Submit(context.Background(), func() { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job was not executed")
	}
}

func TestConcurrencyBoundedByWorkerCount(t *testing.T) {
	const workers = 3
	p := NewPool(workers, nil)
	defer p.Stop()

	var active atomic.Int64
	var peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			cur := active.Add(1)
			for {
				prev := peak.Load()
				if cur <= prev || peak.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(workers))
}

func TestSubmitHonorsContext(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Stop()

	// Occupy the only worker.
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestSubmitAfterStop(t *testing.T) {
	p := NewPool(1, nil)
	p.Stop()

	err := p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Stop()

	require.NoError(t, p.Submit(context.Background(), func() { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
}

func TestStopWaitsForInFlightJobs(t *testing.T) {
	p := NewPool(2, nil)

	var finished atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func() {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}))

	p.Stop()
	assert.True(t, finished.Load(), "Stop should wait for running jobs")
}
