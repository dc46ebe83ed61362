// Package throttle rate-limits a high-frequency callback to a fixed minimum
// interval while guaranteeing the freshest value in any burst is eventually
// delivered.
package throttle

import (
	"sync"
	"time"
)

// Throttler wraps a callback so it fires at most once per interval. A call
// inside the window stores its argument for a trailing fire, overwriting any
// argument already pending; only the freshest snapshot survives a burst.
type Throttler[T any] struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func(T)
	lastFire time.Time
	pending  *T
	timer    *time.Timer
	stopped  bool
}

// New creates a Throttler around fn. An interval of 0 disables throttling
// and every call fires immediately.
func New[T any](interval time.Duration, fn func(T)) *Throttler[T] {
	return &Throttler[T]{
		interval: interval,
		fn:       fn,
	}
}

// Call delivers v to the callback, firing immediately when the interval has
// elapsed since the last fire and deferring to a trailing fire otherwise.
func (t *Throttler[T]) Call(v T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := time.Now()
	elapsed := now.Sub(t.lastFire)
	if elapsed >= t.interval {
		t.lastFire = now
		t.pending = nil
		t.mu.Unlock()
		t.fn(v)
		return
	}

	// Inside the window: keep only the freshest arguments.
	t.pending = &v
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval-elapsed, t.firePending)
	}
	t.mu.Unlock()
}

// Flush forces any pending trailing fire to execute immediately and cancels
// its timer. It is a no-op when nothing is pending.
func (t *Throttler[T]) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.pending == nil {
		t.mu.Unlock()
		return
	}
	v := *t.pending
	t.pending = nil
	t.lastFire = time.Now()
	t.mu.Unlock()
	t.fn(v)
}

// Stop discards any pending fire and prevents further callbacks.
func (t *Throttler[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
	t.stopped = true
}

func (t *Throttler[T]) firePending() {
	t.mu.Lock()
	t.timer = nil
	if t.stopped || t.pending == nil {
		t.mu.Unlock()
		return
	}
	v := *t.pending
	t.pending = nil
	t.lastFire = time.Now()
	t.mu.Unlock()
	t.fn(v)
}
