// Package ecu emulates the modules the VCU expects to hear from. Each
// module is a set of periodic frame producers driven from the shared
// vehicle state.
package ecu

import (
	"context"
	"log/slog"

	"ecusim/can"
	"ecusim/sched"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// Sink accepts frames for transmission without blocking. *can.TxQueue
// is the production sink.
type Sink interface {
	Submit(f can.Frame)
}

// Producer emits at most one frame each time its rate comes due.
type Producer interface {
	Rate() sched.Rate
	NextFrame(s *vehicle.State) (can.Frame, bool)
}

// Static repeats one constant frame, optionally only while the ignition
// is at least MinIgnition.
type Static struct {
	Frame       can.Frame
	Every       sched.Rate
	MinIgnition vehicle.Ignition
}

func (p Static) Rate() sched.Rate { return p.Every }

func (p Static) NextFrame(s *vehicle.State) (can.Frame, bool) {
	if s.Ignition() < p.MinIgnition {
		return can.Frame{}, false
	}
	return p.Frame, true
}

// Func adapts a function to a Producer.
type Func struct {
	Every sched.Rate
	Fn    func(s *vehicle.State) (can.Frame, bool)
}

func (p Func) Rate() sched.Rate                             { return p.Every }
func (p Func) NextFrame(s *vehicle.State) (can.Frame, bool) { return p.Fn(s) }

// RunPeriodic drives producers from one scheduler group ticking at the
// gcd of their rates. The state is copied once per tick so every frame of
// that tick sees the same view. It returns only when ctx is done or the
// rates are unusable.
func RunPeriodic(ctx context.Context, clock timex.Clock, log *slog.Logger, sink Sink, car *vehicle.Shared, producers ...Producer) error {
	if log == nil {
		log = logx.Discard()
	}
	rates := make([]sched.Rate, len(producers))
	for i, p := range producers {
		rates[i] = p.Rate()
	}
	g, err := sched.NewGroup(clock, log, rates...)
	if err != nil {
		return err
	}
	periods := make([]*sched.Period, len(producers))
	for i, p := range producers {
		if periods[i], err = g.NewPeriod(p.Rate()); err != nil {
			return err
		}
	}
	log.Debug("producers started", "count", len(producers), "base", g.Base())

	for {
		now, err := g.Next(ctx)
		if err != nil {
			return err
		}
		var snap vehicle.State
		taken := false
		for i, p := range producers {
			if !periods[i].Due(now) {
				continue
			}
			if !taken {
				snap, taken = car.Snapshot(), true
			}
			if f, ok := p.NextFrame(&snap); ok {
				logx.Trace(log, "produce", "frame", f.String())
				sink.Submit(f)
			}
		}
	}
}
