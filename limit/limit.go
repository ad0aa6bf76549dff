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

// Package limit bounds the number of in-flight requests with FIFO queuing,
// per-request deadlines, and per-request exemptions.
package limit

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// QueueTimeoutError reports that an acquisition waited in the pending queue
// until its deadline elapsed without a permit becoming available. It is
// distinct from proxy handshake timeouts so that callers can tell
// admission-control delay from network-level delay.
type QueueTimeoutError struct {
	// Waited is how long the acquisition was queued.
	Waited time.Duration
}

func (e *QueueTimeoutError) Error() string {
	return fmt.Sprintf("no concurrency permit became available within %v", e.Waited)
}

// Timeout implements the net.Error convention.
func (e *QueueTimeoutError) Timeout() bool { return true }

// Limit tracks in-flight permits against a maximum and queues acquisitions
// that arrive while at capacity. Queued acquisitions are served strictly in
// arrival order. A Limit may be shared across many logical clients to
// enforce admission control over all of them together; all methods are safe
// for concurrent use.
type Limit struct {
	maxFn func() int

	mu      sync.Mutex
	active  int
	pending list.List // of *waiter
}

type waiter struct {
	// permit receives the granted permit; capacity 1 so a grant never
	// blocks the releasing goroutine.
	permit chan *Permit
	// settled flips exactly once, under Limit.mu: either the waiter is
	// granted a permit or it abandons the queue, never both.
	settled bool
	elem    *list.Element
}

// New returns a Limit admitting at most max concurrent permits.
func New(max int) *Limit {
	return NewDynamic(func() int { return max })
}

// NewDynamic returns a Limit whose maximum is re-read from maxFn at every
// admission decision, so the ceiling may change at runtime. maxFn must be
// safe for concurrent use; values below zero are treated as zero.
func NewDynamic(maxFn func() int) *Limit {
	if maxFn == nil {
		panic("limit: maxFn must not be nil")
	}
	return &Limit{maxFn: maxFn}
}

func (l *Limit) max() int {
	if m := l.maxFn(); m > 0 {
		return m
	}
	return 0
}

// Acquire obtains a permit, waiting in FIFO order while the limit is at
// capacity. The context bounds the wait: a context whose deadline elapses
// while queued yields a [*QueueTimeoutError], and a cancelled context yields
// ctx.Err(); either way the entry leaves the queue with no effect on the
// active count. The caller must release the returned permit exactly when the
// work it covers completes; [Permit.Release] is idempotent.
func (l *Limit) Acquire(ctx context.Context) (*Permit, error) {
	l.mu.Lock()
	if l.pending.Len() == 0 && l.active < l.max() {
		l.active++
		l.mu.Unlock()
		return &Permit{limit: l, counted: true}, nil
	}
	w := &waiter{permit: make(chan *Permit, 1)}
	w.elem = l.pending.PushBack(w)
	enqueued := time.Now()
	l.mu.Unlock()

	select {
	case p := <-w.permit:
		return p, nil
	case <-ctx.Done():
		l.mu.Lock()
		if w.settled {
			l.mu.Unlock()
			// A permit was granted concurrently with the cancellation. The
			// cancellation is the one outcome the caller sees; the permit
			// goes straight back to the pool.
			(<-w.permit).Release()
		} else {
			w.settled = true
			l.pending.Remove(w.elem)
			l.mu.Unlock()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &QueueTimeoutError{Waited: time.Since(enqueued)}
		}
		return nil, ctx.Err()
	}
}

// TryAcquire obtains a permit only if one is immediately available and no
// earlier acquisition is queued.
func (l *Limit) TryAcquire() (*Permit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending.Len() > 0 || l.active >= l.max() {
		return nil, false
	}
	l.active++
	return &Permit{limit: l, counted: true}, true
}

// Exempt returns a permit that does not occupy a concurrency slot. It
// supports request-scoped exemptions: traffic excluded from limiting flows
// through the same permit-release plumbing without being counted.
func (l *Limit) Exempt() *Permit {
	return &Permit{limit: l}
}

// NumActive returns the number of permits currently held. Exempt permits are
// not counted.
func (l *Limit) NumActive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// NumPending returns the number of queued acquisitions.
func (l *Limit) NumPending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Len()
}

func (l *Limit) release() {
	l.mu.Lock()
	l.active--
	if l.active < 0 {
		l.mu.Unlock()
		panic("limit: active count below zero; permit released more than acquired")
	}
	l.promoteLocked()
	l.mu.Unlock()
}

// promoteLocked hands permits to queued waiters, oldest first, until the
// queue drains or capacity is exhausted. Called with l.mu held.
func (l *Limit) promoteLocked() {
	for l.active < l.max() {
		front := l.pending.Front()
		if front == nil {
			return
		}
		w := front.Value.(*waiter)
		l.pending.Remove(front)
		w.settled = true
		l.active++
		w.permit <- &Permit{limit: l, counted: true}
	}
}

// Permit is one unit of concurrency budget, held for the duration of one
// in-flight request.
type Permit struct {
	limit    *Limit
	counted  bool
	released atomic.Bool
}

// Release returns the permit. It is safe to call from any goroutine and
// from multiple completion paths; only the first call has an effect, so
// wiring Release into every exit path of a request cannot over-release.
func (p *Permit) Release() {
	if p.released.CompareAndSwap(false, true) && p.counted {
		p.limit.release()
	}
}
