package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWithinCeiling(t *testing.T) {
	c := NewController(5, 32, nil)

	for i := 0; i < 5; i++ {
		waited, err := c.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), waited)
	}

	for i := 0; i < 5; i++ {
		c.Release()
	}
}

func TestCeilingNeverExceeded(t *testing.T) {
	const ceiling = 5
	c := NewController(ceiling, 100, nil)

	var active atomic.Int64
	var peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := c.Acquire(context.Background())
			require.NoError(t, err)
			defer c.Release()

			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(ceiling),
		"outstanding slots must never exceed the ceiling")
}

func TestExtraCallerWaitsUntilRelease(t *testing.T) {
	c := NewController(1, 32, nil)

	_, err := c.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan time.Duration)
	go func() {
		waited, err := c.Acquire(context.Background())
		require.NoError(t, err)
		acquired <- waited
	}()

	// The second caller must not proceed while the slot is held.
	select {
	case <-acquired:
		t.Fatal("second caller acquired a slot while the ceiling was reached")
	case <-time.After(50 * time.Millisecond):
	}

	c.Release()

	select {
	case waited := <-acquired:
		assert.Greater(t, waited, time.Duration(0),
			"queued caller should observe a non-zero wait")
	case <-time.After(time.Second):
		t.Fatal("second caller was not woken by Release")
	}

	c.Release()
}

func TestAcquireRejectsWhenQueueFull(t *testing.T) {
	c := NewController(1, 1, nil)

	_, err := c.Acquire(context.Background())
	require.NoError(t, err)

	// Fill the single waiter seat.
	blocked := make(chan struct{})
	go func() {
		_, err := c.Acquire(context.Background())
		require.NoError(t, err)
		close(blocked)
	}()

	// Wait until the goroutine is queued.
	require.Eventually(t, func() bool { return c.Waiting() == 1 },
		time.Second, time.Millisecond)

	_, err = c.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTooBusy)

	c.Release()
	<-blocked
	c.Release()
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	c := NewController(1, 32, nil)

	_, err := c.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The cancelled caller must not have consumed the slot.
	c.Release()
	_, err = c.Acquire(context.Background())
	require.NoError(t, err)
	c.Release()
}

func TestFIFOOrdering(t *testing.T) {
	c := NewController(1, 32, nil)

	_, err := c.Acquire(context.Background())
	require.NoError(t, err)

	const waiters = 5
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := c.Acquire(context.Background())
			require.NoError(t, err)
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			c.Release()
		}(i)
		// Queue the waiters one at a time so arrival order is defined.
		require.Eventually(t, func() bool { return c.Waiting() == i+1 },
			time.Second, time.Millisecond)
	}

	c.Release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order,
		"waiters should be admitted in arrival order")
}

func TestDoReleasesOnPanic(t *testing.T) {
	c := NewController(1, 32, nil)

	assert.Panics(t, func() {
		_ = c.Do(context.Background(), func(time.Duration) {
			panic("unit blew up")
		})
	})

	// The slot must be free again after the panic.
	waited, err := c.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), waited)
	c.Release()
}

func TestDoPassesWaitDuration(t *testing.T) {
	c := NewController(5, 32, nil)

	var got time.Duration = -1
	err := c.Do(context.Background(), func(waited time.Duration) {
		got = waited
	})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), got)
}
