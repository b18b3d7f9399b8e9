package can

import (
	"sync/atomic"
	"time"

	"ecusim/x/timex"
)

// Activity records when the bus last delivered any frame, whether or not
// it decoded. It is safe for concurrent use.
type Activity struct {
	clock  timex.Clock
	window time.Duration
	last   atomic.Int64
	frames atomic.Uint64
}

// NewActivity reports the bus alive for window after each frame.
func NewActivity(clock timex.Clock, window time.Duration) *Activity {
	if window <= 0 {
		window = time.Second
	}
	return &Activity{clock: clock, window: window}
}

// Note stamps one received frame.
func (a *Activity) Note() {
	a.last.Store(int64(a.clock.Now()))
	a.frames.Add(1)
}

func (a *Activity) Frames() uint64 { return a.frames.Load() }

// LastRx returns when a frame was last seen; false if never.
func (a *Activity) LastRx() (timex.Instant, bool) {
	if a.frames.Load() == 0 {
		return 0, false
	}
	return timex.Instant(a.last.Load()), true
}

// Alive reports whether a frame arrived within the window.
func (a *Activity) Alive() bool {
	at, ok := a.LastRx()
	return ok && a.clock.Now().Sub(at) < a.window
}
