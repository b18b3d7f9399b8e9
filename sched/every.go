package sched

import (
	"context"

	"ecusim/x/timex"
)

// Every is one waiter for one rate.
type Every struct {
	clock timex.Clock
	p     *Period
}

func NewEvery(clock timex.Clock, r Rate) (*Every, error) {
	d, err := r.Period()
	if err != nil {
		return nil, err
	}
	return &Every{clock: clock, p: NewPeriod(clock.Now(), d)}, nil
}

// Next sleeps until the period is due and returns the deadline met.
func (e *Every) Next(ctx context.Context) (timex.Instant, error) {
	for {
		at := e.p.Deadline()
		if err := e.clock.SleepUntil(ctx, at); err != nil {
			return 0, err
		}
		if e.p.Due(e.clock.Now()) {
			return at, nil
		}
	}
}

func (e *Every) Lagged() uint32 { return e.p.Lagged() }
