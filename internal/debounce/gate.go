// Package debounce coalesces rapid-fire value updates into a single trigger
// after a quiet period.
//
// The [Gate] is an explicit timer-reset state machine with two states: idle
// and pending. A new value while pending replaces the stored value and
// resets the deadline; when the quiet period elapses without further
// updates the gate emits the last value observed and returns to idle
// (trailing-edge debounce). Stopping the gate discards any pending timer
// without emitting.
package debounce

import (
	"sync"
	"time"
)

// Gate debounces updates to a value of type T. All methods are safe for
// concurrent use. The emit callback runs on the timer goroutine; it must not
// call back into the Gate synchronously in a way that blocks forever, but
// calling Set or Stop from it is allowed.
type Gate[T any] struct {
	quiet time.Duration
	emit  func(T)

	mu      sync.Mutex
	timer   *time.Timer
	last    T
	pending bool
	stopped bool
}

// NewGate creates a Gate that calls emit with the most recent value once no
// Set call has arrived for the quiet interval.
func NewGate[T any](quiet time.Duration, emit func(T)) *Gate[T] {
	return &Gate[T]{quiet: quiet, emit: emit}
}

// Set records a new value. If the gate is idle it transitions to pending and
// arms the timer; if already pending the stored value is replaced and the
// deadline resets. Values set after Stop are ignored.
func (g *Gate[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.last = v

	if g.pending {
		g.timer.Reset(g.quiet)
		return
	}
	g.pending = true
	g.timer = time.AfterFunc(g.quiet, g.fire)
}

// fire delivers the pending value and returns the gate to idle.
func (g *Gate[T]) fire() {
	g.mu.Lock()
	if g.stopped || !g.pending {
		g.mu.Unlock()
		return
	}
	v := g.last
	g.pending = false
	var zero T
	g.last = zero
	g.mu.Unlock()

	g.emit(v)
}

// Stop tears down the gate. Any pending timer is cancelled with no emission,
// and subsequent Set calls are no-ops. Stop is idempotent.
func (g *Gate[T]) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.stopped = true
	g.pending = false
	if g.timer != nil {
		g.timer.Stop()
	}
}
