package sched

import (
	"context"
	"log/slog"

	"ecusim/errcode"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

var standardRates = [...]Rate{Hz1, Hz5, Hz10, Hz20, Hz50, Hz100}

// Set is a bitmask over the standard rates.
type Set uint8

// All holds every standard rate.
const All Set = 1<<len(standardRates) - 1

// SetOf returns the set holding rs. Non-standard rates are ignored.
func SetOf(rs ...Rate) Set {
	var s Set
	for _, r := range rs {
		if i := rateIndex(r); i >= 0 {
			s |= 1 << i
		}
	}
	return s
}

func rateIndex(r Rate) int {
	for i, sr := range standardRates {
		if sr == r {
			return i
		}
	}
	return -1
}

func (s Set) Has(r Rate) bool {
	i := rateIndex(r)
	return i >= 0 && s&(1<<i) != 0
}

// Rates lists the members from slowest to fastest.
func (s Set) Rates() []Rate {
	var out []Rate
	for i, r := range standardRates {
		if s&(1<<i) != 0 {
			out = append(out, r)
		}
	}
	return out
}

// Repeater is a single waiter over several standard rates: each Tick
// sleeps until the nearest deadline and reports which rates are due.
type Repeater struct {
	clock   timex.Clock
	log     *slog.Logger
	periods [len(standardRates)]*Period
	enabled Set
}

func NewRepeater(clock timex.Clock, log *slog.Logger, rates ...Rate) (*Repeater, error) {
	if log == nil {
		log = logx.Discard()
	}
	r := &Repeater{clock: clock, log: log}
	epoch := clock.Now()
	for _, rate := range rates {
		i := rateIndex(rate)
		if i < 0 {
			return nil, errcode.InvalidRate
		}
		p, _ := rate.Period()
		r.periods[i] = NewPeriod(epoch, p)
		r.enabled |= 1 << i
	}
	if r.enabled == 0 {
		return nil, errcode.InvalidRate
	}
	return r, nil
}

// Tick waits for the next deadline of any configured rate.
func (r *Repeater) Tick(ctx context.Context) (Set, error) {
	return r.TickFiltered(ctx, All)
}

// TickFiltered is Tick restricted to rates in enabled. Other rates keep
// their deadlines and are not reported.
func (r *Repeater) TickFiltered(ctx context.Context, enabled Set) (Set, error) {
	enabled &= r.enabled
	if enabled == 0 {
		return 0, errcode.InvalidRate
	}
	var at timex.Instant
	first := true
	for i, p := range r.periods {
		if p == nil || enabled&(1<<i) == 0 {
			continue
		}
		if first || p.Deadline() < at {
			at, first = p.Deadline(), false
		}
	}
	if err := r.clock.SleepUntil(ctx, at); err != nil {
		return 0, err
	}
	now := r.clock.Now()
	var due Set
	for i, p := range r.periods {
		if p == nil || enabled&(1<<i) == 0 {
			continue
		}
		lag := p.Lagged()
		if p.Due(now) {
			due |= 1 << i
		}
		if p.Lagged() != lag {
			r.log.Warn("scheduler lagged", "rate_hz", uint32(standardRates[i]), "behind", now.Sub(at))
		}
	}
	return due, nil
}
