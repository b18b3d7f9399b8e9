// Package fresh wraps periodically refreshed values with a staleness window.
//
// A value read from the bus is only meaningful while its sender keeps
// repeating it; after staleAfter without a Set the value reads as absent.
package fresh

import (
	"fmt"
	"time"

	"ecusim/x/timex"
)

type Value[T any] struct {
	clock      timex.Clock
	value      T
	lastSet    timex.Instant
	set        bool
	staleAfter time.Duration
}

// New returns an empty (stale) value with a fixed staleness window.
func New[T any](clock timex.Clock, staleAfter time.Duration) Value[T] {
	return Value[T]{clock: clock, staleAfter: staleAfter}
}

// Set stores v and stamps it with the current time.
func (f *Value[T]) Set(v T) {
	f.value = v
	f.lastSet = f.clock.Now()
	f.set = true
}

// Get returns the value if it was set within the staleness window.
func (f *Value[T]) Get() (T, bool) {
	if !f.IsFresh() {
		var zero T
		return zero, false
	}
	return f.value, true
}

// GetUnchecked returns the last set value regardless of age. ok is false
// only if the value was never set.
func (f *Value[T]) GetUnchecked() (T, bool) { return f.value, f.set }

func (f *Value[T]) IsFresh() bool {
	if !f.set {
		return false
	}
	return f.clock.Now().Sub(f.lastSet) < f.staleAfter
}

func (f *Value[T]) IsStale() bool { return !f.IsFresh() }

// Age returns the time since the last Set; ok is false if never set.
func (f *Value[T]) Age() (time.Duration, bool) {
	if !f.set {
		return 0, false
	}
	return f.clock.Now().Sub(f.lastSet), true
}

func (f *Value[T]) StaleAfter() time.Duration { return f.staleAfter }

func (f *Value[T]) String() string {
	switch {
	case !f.set:
		return "Stale(None)"
	case f.IsFresh():
		return fmt.Sprint(f.value)
	default:
		return fmt.Sprintf("Stale(%v)", f.value)
	}
}
