package inputs

import (
	"context"
	"log/slog"
	"time"

	"ecusim/hw"
	"ecusim/sched"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// Config sets the sampling period and the samples needed per input.
type Config struct {
	Poll              time.Duration
	IG1Samples        int
	BrakeSamples      int
	EVReadySamples    int
	ChargeLockSamples int
}

func DefaultConfig() Config {
	return Config{
		Poll:              10 * time.Millisecond,
		IG1Samples:        5,
		BrakeSamples:      3,
		EVReadySamples:    5,
		ChargeLockSamples: 3,
	}
}

// Poller samples the inputs on a fixed period.
type Poller struct {
	clock timex.Clock
	log   *slog.Logger
	pins  hw.Pins
	car   *vehicle.Shared
	poll  time.Duration

	ig1, brake, evReady, chargeLock *Debouncer
}

func NewPoller(clock timex.Clock, log *slog.Logger, pins hw.Pins, car *vehicle.Shared, cfg Config) *Poller {
	if log == nil {
		log = logx.Discard()
	}
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultConfig().Poll
	}
	return &Poller{
		clock:      clock,
		log:        log,
		pins:       pins,
		car:        car,
		poll:       cfg.Poll,
		ig1:        NewDebouncer(cfg.IG1Samples),
		brake:      NewDebouncer(cfg.BrakeSamples),
		evReady:    NewDebouncer(cfg.EVReadySamples),
		chargeLock: NewDebouncer(cfg.ChargeLockSamples),
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	per := sched.NewPeriod(p.clock.Now().Add(p.poll), p.poll)
	for {
		if err := p.clock.SleepUntil(ctx, per.Deadline()); err != nil {
			return err
		}
		if per.Due(p.clock.Now()) {
			p.Poll()
		}
	}
}

// Poll takes one sample of every input. All edges of a sample are
// applied under one lock, and time-driven state is refreshed each call.
func (p *Poller) Poll() {
	ig1 := p.ig1.Update(p.pins.Level(p.pins.IG1))
	brake := p.brake.Update(p.pins.Level(p.pins.Brake))
	ready := p.evReady.Update(p.pins.Level(p.pins.EVReady))
	lock := p.chargeLock.Update(p.pins.Level(p.pins.ChargeLock))

	p.car.Lock(func(s *vehicle.State) {
		if ig1 != NoEdge {
			s.SetMainPower(ig1 == Rising)
		}
		if brake != NoEdge {
			s.SetIsBraking(brake == Rising)
		}
		if ready != NoEdge {
			s.SetEVReadyInput(ready == Rising)
		}
		if lock != NoEdge {
			port := vehicle.Unlocked
			if lock == Rising {
				port = vehicle.Locked
			}
			s.SetChargePort(port)
		}
		s.Refresh()
	})

	if ig1 != NoEdge {
		logx.Trace(p.log, "ig1 edge", "edge", ig1.String())
		on := ig1 == Rising
		hw.Drive(p.pins.RelayIG3, on)
		hw.Drive(p.pins.LEDIgn, on)
	}
}
