// Package sched produces drift-free periodic wake-ups at several rates
// from one monotonic clock.
//
// Every period owns its own deadline and advances it by exactly one
// period when due, so no error accumulates. A caller that falls more
// than a period behind is re-anchored to now+period instead of firing a
// burst of stale ticks.
package sched

import (
	"time"

	"ecusim/errcode"
	"ecusim/x/mathx"
	"ecusim/x/timex"
)

// Rate is a frequency in Hz. Valid rates have a whole-millisecond period.
type Rate uint32

// Standard rates used by the emulated ECUs.
const (
	Hz1   Rate = 1
	Hz5   Rate = 5
	Hz10  Rate = 10
	Hz20  Rate = 20
	Hz50  Rate = 50
	Hz100 Rate = 100
)

// Period returns the rate's period, or InvalidRate if it is not an exact
// number of milliseconds.
func (r Rate) Period() (time.Duration, error) {
	if r == 0 || 1000%uint32(r) != 0 {
		return 0, errcode.InvalidRate
	}
	return timex.PeriodFromHz(uint32(r)), nil
}

func (r Rate) periodMs() uint32 { return 1000 / uint32(r) }

// BaseTick returns the greatest common divisor of the rates' periods:
// every period is a whole multiple of it.
func BaseTick(rates ...Rate) (time.Duration, error) {
	if len(rates) == 0 {
		return 0, errcode.InvalidRate
	}
	ms := make([]uint32, len(rates))
	for i, r := range rates {
		if _, err := r.Period(); err != nil {
			return 0, err
		}
		ms[i] = r.periodMs()
	}
	return time.Duration(mathx.GCDOf(ms...)) * time.Millisecond, nil
}
