// Package spsc provides a bounded single-producer, single-consumer ring.
//
// The producer side never blocks and is safe to call from interrupt
// context. The consumer is woken through Readable on the empty to
// non-empty edge.
package spsc

import "sync/atomic"

type Ring[T any] struct {
	buf  []T
	n    uint32 // capacity
	mask uint32 // len(buf)-1; len(buf) is a power of two
	rd  atomic.Uint32 // consumer index (monotonic)
	wr  atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // 0->>0 available edge
}

// New allocates a ring holding up to capacity items (>= 1). Storage is
// rounded up to a power of two so slots stay ordered when the indices
// wrap.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 || capacity > 1<<30 {
		panic("spsc: capacity out of range")
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring[T]{
		buf:      make([]T, size),
		n:        uint32(capacity),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

func (r *Ring[T]) Cap() int { return int(r.n) }

func (r *Ring[T]) Len() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Producer side

// TryPush appends v. It returns false, leaving the ring untouched, when full.
func (r *Ring[T]) TryPush(v T) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	used := wr - rd
	if used >= r.n {
		return false
	}
	r.buf[wr&r.mask] = v
	r.wr.Store(wr + 1) // release

	if used == 0 {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
	return true
}

// Consumer side

// TryPop removes the oldest item.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if wr == rd {
		return zero, false
	}
	idx := rd & r.mask
	v := r.buf[idx]
	r.buf[idx] = zero
	r.rd.Store(rd + 1) // release
	return v, true
}

// Readable fires after a push into an empty ring. Spurious wakeups are
// possible; consumers must re-check with TryPop.
func (r *Ring[T]) Readable() <-chan struct{} { return r.readable }
