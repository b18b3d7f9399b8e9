package ecu

import (
	"context"
	"log/slog"

	"ecusim/can"
	"ecusim/pcan"
	"ecusim/sched"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// IEB emulates the brake module, which also reports traction and
// stability control. To the VCU the car is always rolling straight on a
// dry road.
type IEB struct {
	clock timex.Clock
	log   *slog.Logger
	car   *vehicle.Shared
	sink  Sink
}

func NewIEB(clock timex.Clock, log *slog.Logger, car *vehicle.Shared, sink Sink) *IEB {
	if log == nil {
		log = logx.Discard()
	}
	return &IEB{clock: clock, log: log, car: car, sink: sink}
}

var iebRates = []sched.Rate{sched.Hz10, sched.Hz20, sched.Hz50, sched.Hz100}

// Run transmits only while the ignition is On. Every power-up starts a
// fresh repeater and fresh live counters.
func (e *IEB) Run(ctx context.Context) error {
	for {
		if err := waitIgnition(ctx, e.clock, e.car, isOn); err != nil {
			return err
		}
		e.log.Info("ieb start")
		rep, err := sched.NewRepeater(e.clock, e.log, iebRates...)
		if err != nil {
			return err
		}
		var c iebCounters
		for {
			due, err := rep.Tick(ctx)
			if err != nil {
				return err
			}
			snap := e.car.Snapshot()
			if snap.Ignition() != vehicle.On {
				e.log.Info("ieb stop")
				break
			}
			for _, f := range c.frames(due, &snap) {
				e.sink.Submit(f)
			}
		}
	}
}

type iebCounters struct {
	tcsFast1, tcsFast2 uint8
	tcsMed             uint8
	heartbeat          bool
	wheelLSB, wheelMSB uint8
	wheelPulse         uint8
	stability          uint8
}

// frames builds every frame whose rate is in due, advancing counters.
func (c *iebCounters) frames(due sched.Set, s *vehicle.State) []can.Frame {
	var out []can.Frame
	if due.Has(sched.Hz10) {
		out = append(out, pcan.TCSStatus)
	}
	if due.Has(sched.Hz20) {
		out = append(out, pcan.ParkingBrake)
	}
	if due.Has(sched.Hz50) {
		c.tcsMed = pcan.WrapCounter(c.tcsMed, 0, pcan.CounterNibbleMax)
		c.wheelLSB = pcan.WrapCounter(c.wheelLSB, 0, 3)
		if c.wheelLSB == 0 {
			c.wheelMSB = pcan.WrapCounter(c.wheelMSB, 0, 3)
		}
		c.wheelPulse = pcan.WrapCounter(c.wheelPulse, 0, pcan.CounterNibbleMax)
		out = append(out,
			pcan.TCSMed(s.IsBraking(), c.tcsMed),
			pcan.WheelSpeed(c.wheelLSB, c.wheelMSB),
			pcan.WheelPulse(c.wheelPulse),
		)
	}
	if due.Has(sched.Hz100) {
		c.tcsFast1 = pcan.WrapCounter(c.tcsFast1, 0, pcan.CounterNibbleMax)
		c.tcsFast2 = pcan.NextTCSFastCounter2(c.tcsFast2)
		c.stability = pcan.WrapCounter(c.stability, 0, pcan.CounterNibbleMax)
		out = append(out,
			pcan.TCSFast(c.tcsFast1, c.tcsFast2),
			pcan.BrakePedal(s.IsBraking(), c.heartbeat),
			pcan.BrakeAux(s.IsBraking()),
			pcan.StabilityControl(c.stability),
		)
		c.heartbeat = !c.heartbeat
	}
	return out
}
