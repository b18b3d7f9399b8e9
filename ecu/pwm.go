package ecu

import (
	"context"
	"time"

	"ecusim/hw"
	"ecusim/x/timex"
)

// SoftPWM toggles a GPIO on a fixed period. High returns the high time
// of the next cycle; ok=false holds the pin low for the whole cycle.
// Cycle starts are drift-free.
type SoftPWM struct {
	Clock  timex.Clock
	Pin    hw.Pin
	Period time.Duration
	High   func() (d time.Duration, ok bool)
}

func (p SoftPWM) Run(ctx context.Context) error {
	defer hw.Drive(p.Pin, false)
	next := p.Clock.Now()
	for {
		high, ok := p.High()
		if ok && high > 0 {
			if high > p.Period {
				high = p.Period
			}
			hw.Drive(p.Pin, true)
			if err := p.Clock.SleepUntil(ctx, next.Add(high)); err != nil {
				return err
			}
		}
		hw.Drive(p.Pin, false)
		next = next.Add(p.Period)
		if now := p.Clock.Now(); next < now {
			next = now
		}
		if err := p.Clock.SleepUntil(ctx, next); err != nil {
			return err
		}
	}
}

// CrashPWM is the ACU "not crashed" line: 50 Hz at 80% duty.
func CrashPWM(clock timex.Clock, pin hw.Pin) SoftPWM {
	return SoftPWM{
		Clock:  clock,
		Pin:    pin,
		Period: 20 * time.Millisecond,
		High:   func() (time.Duration, bool) { return 16 * time.Millisecond, true },
	}
}
