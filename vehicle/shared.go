package vehicle

import "sync"

// Shared is the one handle through which every task reaches the state.
// All access runs under a single lock.
type Shared struct {
	mu sync.Mutex
	s  *State
}

func NewShared(s *State) *Shared { return &Shared{s: s} }

// Lock runs fn with exclusive access.
func (h *Shared) Lock(fn func(*State)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.s)
}

// Snapshot copies the state so a producer can build all of one tick's
// frames from a consistent view without holding the lock.
func (h *Shared) Snapshot() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s.Snapshot()
}
