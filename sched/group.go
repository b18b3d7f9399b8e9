package sched

import (
	"context"
	"log/slog"
	"time"

	"ecusim/errcode"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// Group ticks at the base tick of a set of rates. Periods created from
// the group share its epoch and are tested against the tick instant.
type Group struct {
	clock  timex.Clock
	log    *slog.Logger
	base   time.Duration
	epoch  timex.Instant
	next   timex.Instant
	missed uint64
}

func NewGroup(clock timex.Clock, log *slog.Logger, rates ...Rate) (*Group, error) {
	base, err := BaseTick(rates...)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logx.Discard()
	}
	now := clock.Now()
	return &Group{clock: clock, log: log, base: base, epoch: now, next: now}, nil
}

// NewPeriod returns a Period for r aligned to the group's epoch.
func (g *Group) NewPeriod(r Rate) (*Period, error) {
	p, err := r.Period()
	if err != nil {
		return nil, err
	}
	if p%g.base != 0 {
		return nil, errcode.InvalidRate
	}
	return NewPeriod(g.epoch, p), nil
}

// Next sleeps to the next base tick and returns its instant. Ticks
// never burst: if the caller was held off past later ticks, they are
// skipped and the latest one is returned.
func (g *Group) Next(ctx context.Context) (timex.Instant, error) {
	if err := g.clock.SleepUntil(ctx, g.next); err != nil {
		return 0, err
	}
	tick := g.next
	now := g.clock.Now()
	g.next = tick.Add(g.base)
	if g.next <= now {
		skipped := int64(now.Sub(tick) / g.base)
		tick = tick.Add(time.Duration(skipped) * g.base)
		g.next = tick.Add(g.base)
		g.missed += uint64(skipped)
		g.log.Warn("scheduler lagged", "skipped_ticks", skipped, "base", g.base)
	}
	return tick, nil
}

func (g *Group) Base() time.Duration { return g.base }
func (g *Group) Now() timex.Instant  { return g.clock.Now() }

// Missed returns the total number of skipped ticks.
func (g *Group) Missed() uint64 { return g.missed }
