package sched

import (
	"time"

	"ecusim/x/timex"
)

// Period tracks one rate's next deadline.
type Period struct {
	period time.Duration
	next   timex.Instant
	lagged uint32
}

// NewPeriod returns a period first due at epoch, then at epoch+k*period.
func NewPeriod(epoch timex.Instant, period time.Duration) *Period {
	return &Period{period: period, next: epoch}
}

// Due reports whether the deadline has been reached at now, and if so
// advances it. When more than one period behind, the next deadline is
// moved to now+period.
func (p *Period) Due(now timex.Instant) bool {
	if p.next > now {
		return false
	}
	p.next = p.next.Add(p.period)
	if p.next < now {
		p.next = now.Add(p.period)
		p.lagged++
	}
	return true
}

func (p *Period) Deadline() timex.Instant  { return p.next }
func (p *Period) Interval() time.Duration { return p.period }

// Lagged counts how many times the deadline was re-anchored.
func (p *Period) Lagged() uint32 { return p.lagged }
