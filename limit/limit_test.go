// Copyright 2026 The Corridor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package limit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireWithinCapacity(t *testing.T) {
	l := New(2)
	p1, err := l.Acquire(context.Background())
	require.NoError(t, err)
	p2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, l.NumActive())

	p1.Release()
	require.Equal(t, 1, l.NumActive())
	p2.Release()
	require.Equal(t, 0, l.NumActive())
}

func TestActiveNeverExceedsMax(t *testing.T) {
	const max = 5
	const workers = 50
	l := New(max)

	var inFlight atomic.Int64
	var peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				p, err := l.Acquire(context.Background())
				require.NoError(t, err)
				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				p.Release()
			}
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, peak.Load(), int64(max))
	require.Equal(t, 0, l.NumActive())
	require.Equal(t, 0, l.NumPending())
}

func TestFIFOOrder(t *testing.T) {
	l := New(1)
	gate, err := l.Acquire(context.Background())
	require.NoError(t, err)

	const queued = 10
	admitted := make(chan int, queued)
	ready := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < queued; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-ready
			p, err := l.Acquire(context.Background())
			require.NoError(t, err)
			admitted <- i
			p.Release()
		}(i)
		// Serialize enqueue order: wait until this goroutine is queued
		// before starting the next one.
		ready <- struct{}{}
		require.Eventually(t, func() bool { return l.NumPending() == i+1 },
			time.Second, time.Millisecond)
	}

	gate.Release()
	wg.Wait()
	close(admitted)
	previous := -1
	for i := range admitted {
		require.Greater(t, i, previous, "admissions must follow arrival order")
		previous = i
	}
}

func TestAcquireDeadlineYieldsQueueTimeout(t *testing.T) {
	l := New(1)
	holder, err := l.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = l.Acquire(ctx)
	var timeoutErr *QueueTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.True(t, timeoutErr.Timeout())
	require.GreaterOrEqual(t, timeoutErr.Waited, 25*time.Millisecond)
	require.Less(t, time.Since(start), 2*time.Second)

	// The timed-out entry left the queue without touching the active count,
	// and the held permit is unaffected.
	require.Equal(t, 0, l.NumPending())
	require.Equal(t, 1, l.NumActive())
	holder.Release()
	require.Equal(t, 0, l.NumActive())
}

func TestAcquireCancellation(t *testing.T) {
	l := New(1)
	holder, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer holder.Release()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	var timeoutErr *QueueTimeoutError
	require.False(t, errors.As(err, &timeoutErr),
		"plain cancellation must not be reported as a queue timeout")
	require.Equal(t, 0, l.NumPending())
}

func TestTryAcquire(t *testing.T) {
	l := New(1)
	p, ok := l.TryAcquire()
	require.True(t, ok)
	_, ok = l.TryAcquire()
	require.False(t, ok)
	p.Release()
	p, ok = l.TryAcquire()
	require.True(t, ok)
	p.Release()
}

func TestExemptPermitIsUncounted(t *testing.T) {
	l := New(1)
	holder, err := l.Acquire(context.Background())
	require.NoError(t, err)

	// An exempt permit is granted immediately even at capacity and does not
	// change the active count on acquire or release.
	p := l.Exempt()
	require.Equal(t, 1, l.NumActive())
	p.Release()
	require.Equal(t, 1, l.NumActive())
	holder.Release()
}

func TestReleaseIdempotent(t *testing.T) {
	l := New(2)
	p, err := l.Acquire(context.Background())
	require.NoError(t, err)
	p.Release()
	p.Release()
	p.Release()
	require.Equal(t, 0, l.NumActive())
}

func TestDynamicMax(t *testing.T) {
	var max atomic.Int64
	max.Store(1)
	l := NewDynamic(func() int { return int(max.Load()) })

	p1, err := l.Acquire(context.Background())
	require.NoError(t, err)
	_, ok := l.TryAcquire()
	require.False(t, ok)

	// Raising the ceiling admits immediately.
	max.Store(2)
	p2, ok := l.TryAcquire()
	require.True(t, ok)

	// Lowering it below the active count admits nothing new, but permits
	// already held stay valid until released.
	max.Store(1)
	_, ok = l.TryAcquire()
	require.False(t, ok)
	require.Equal(t, 2, l.NumActive())
	p2.Release()
	_, ok = l.TryAcquire()
	require.False(t, ok)
	p1.Release()
	require.Equal(t, 0, l.NumActive())
}

func TestDynamicMaxRaisePromotesWaiters(t *testing.T) {
	var max atomic.Int64
	max.Store(1)
	l := NewDynamic(func() int { return int(max.Load()) })

	p1, err := l.Acquire(context.Background())
	require.NoError(t, err)

	admitted := make(chan struct{})
	go func() {
		p, err := l.Acquire(context.Background())
		require.NoError(t, err)
		close(admitted)
		p.Release()
	}()
	require.Eventually(t, func() bool { return l.NumPending() == 1 },
		time.Second, time.Millisecond)

	// The ceiling is re-read at the next admission decision. A release
	// triggers that decision even when the releasing permit itself is
	// re-admittable under the new ceiling.
	max.Store(2)
	p1.Release()
	select {
	case <-admitted:
	case <-time.After(time.Second):
		t.Fatal("waiter was not promoted after the ceiling was raised")
	}
}

func TestZeroMaxAdmitsNothing(t *testing.T) {
	l := New(0)
	_, ok := l.TryAcquire()
	require.False(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Acquire(ctx)
	var timeoutErr *QueueTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestNewDynamicNilPanics(t *testing.T) {
	require.Panics(t, func() { NewDynamic(nil) })
}
