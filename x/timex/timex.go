package timex

import (
	"context"
	"sync"
	"time"
)

// Instant is a point on a monotonic millisecond time base.
type Instant int64

// Add returns i+d, truncated to whole milliseconds.
func (i Instant) Add(d time.Duration) Instant { return i + Instant(d/time.Millisecond) }

// Sub returns the duration i-j.
func (i Instant) Sub(j Instant) time.Duration { return time.Duration(i-j) * time.Millisecond }

func (i Instant) Before(j Instant) bool { return i < j }
func (i Instant) After(j Instant) bool  { return i > j }

// Ms returns the instant as milliseconds since the clock epoch.
func (i Instant) Ms() int64 { return int64(i) }

// Clock is the monotonic time source every task sleeps on.
type Clock interface {
	Now() Instant
	// SleepUntil suspends until Now() >= t or ctx is done.
	SleepUntil(ctx context.Context, t Instant) error
}

// PeriodFromHz returns the period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	return time.Second / time.Duration(freqHz)
}

// ---- system clock ----

type systemClock struct{ epoch time.Time }

// System returns a clock whose epoch is the moment of the call.
func System() Clock { return &systemClock{epoch: time.Now()} }

func (c *systemClock) Now() Instant {
	return Instant(time.Since(c.epoch) / time.Millisecond)
}

func (c *systemClock) SleepUntil(ctx context.Context, t Instant) error {
	d := t.Sub(c.Now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ---- virtual clock ----

// Virtual is a test clock where sleeping jumps time forward to the
// deadline. Only meaningful with a single sleeping goroutine.
type Virtual struct {
	mu  sync.Mutex
	now Instant
}

func NewVirtual(start Instant) *Virtual { return &Virtual{now: start} }

func (v *Virtual) Now() Instant {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance moves time forward by d, modelling a task that was held off
// the core.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	v.now = v.now.Add(d)
	v.mu.Unlock()
}

func (v *Virtual) SleepUntil(ctx context.Context, t Instant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	if t > v.now {
		v.now = t
	}
	v.mu.Unlock()
	return nil
}

// ---- manual clock ----

// Manual is a test clock where sleepers block until Advance or Set moves
// time past their deadline.
type Manual struct {
	mu      sync.Mutex
	now     Instant
	waiters []manualWaiter
}

type manualWaiter struct {
	at Instant
	ch chan struct{}
}

func NewManual(start Instant) *Manual { return &Manual{now: start} }

func (m *Manual) Now() Instant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) { m.Set(m.Now().Add(d)) }

// Set moves time to t (never backwards) and wakes due sleepers.
func (m *Manual) Set(t Instant) {
	m.mu.Lock()
	if t > m.now {
		m.now = t
	}
	keep := m.waiters[:0]
	for _, w := range m.waiters {
		if w.at <= m.now {
			close(w.ch)
			continue
		}
		keep = append(keep, w)
	}
	m.waiters = keep
	m.mu.Unlock()
}

// Sleepers returns the number of goroutines blocked in SleepUntil.
func (m *Manual) Sleepers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *Manual) SleepUntil(ctx context.Context, t Instant) error {
	m.mu.Lock()
	if t <= m.now {
		m.mu.Unlock()
		return ctx.Err()
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, manualWaiter{at: t, ch: ch})
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, w := range m.waiters {
			if w.ch == ch {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		return ctx.Err()
	}
}
