package ecu

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ecusim/hw"
	"ecusim/pcan"
	"ecusim/sched"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// scuPWMPeriod is the cycle of the backup park signal to the EPCU.
const scuPWMPeriod = 100 * time.Millisecond

// SCU emulates the shift control unit: its CAN status at 100 Hz and a
// PWM line encoding the park actuator, both only while IG3 is on.
type SCU struct {
	clock    timex.Clock
	log      *slog.Logger
	car      *vehicle.Shared
	sink     Sink
	actuator atomic.Uint32
	counter  uint8
	warned   bool
}

func NewSCU(clock timex.Clock, log *slog.Logger, car *vehicle.Shared, sink Sink) *SCU {
	if log == nil {
		log = logx.Discard()
	}
	s := &SCU{clock: clock, log: log, car: car, sink: sink}
	s.actuator.Store(uint32(pcan.ActuatorInitialising))
	return s
}

// Actuator returns the last reported park actuator state.
func (s *SCU) Actuator() pcan.ParkActuator { return pcan.ParkActuator(s.actuator.Load()) }

// Run sends the status frame while IG3 is on.
func (s *SCU) Run(ctx context.Context) error {
	for {
		if err := waitIgnition(ctx, s.clock, s.car, vehicle.Ignition.IG3On); err != nil {
			return err
		}
		every, err := sched.NewEvery(s.clock, sched.Hz100)
		if err != nil {
			return err
		}
		s.warned = false
		for {
			if _, err := every.Next(ctx); err != nil {
				return err
			}
			snap := s.car.Snapshot()
			if !snap.Ignition().IG3On() {
				s.actuator.Store(uint32(pcan.ActuatorInitialising))
				break
			}
			a := s.parkState(&snap)
			s.actuator.Store(uint32(a))
			s.counter = pcan.WrapCounter(s.counter, 0, pcan.CounterNibbleMax)
			s.sink.Submit(pcan.SCUStatus(a, s.counter))
		}
	}
}

// parkState reports Locked unless a fresh gear says otherwise.
func (s *SCU) parkState(st *vehicle.State) pcan.ParkActuator {
	g, ok := st.Gear()
	if !ok || g == pcan.Park {
		return pcan.ActuatorLocked
	}
	if !s.warned {
		s.log.Warn("park actuator unlocked", "gear", g.String())
		s.warned = true
	}
	return pcan.ActuatorUnlocked
}

// scuLowTime is the low part of each PWM cycle for a given state.
func scuLowTime(a pcan.ParkActuator) time.Duration {
	switch a {
	case pcan.ActuatorUnlocked:
		return 36 * time.Millisecond
	case pcan.ActuatorMoving:
		return 50 * time.Millisecond
	case pcan.ActuatorLocked:
		return 76 * time.Millisecond
	}
	return scuPWMPeriod
}

// ParkPWM drives the backup park line from the actuator state. The line
// stays low while IG3 is off.
func (s *SCU) ParkPWM(pin hw.Pin) SoftPWM {
	return SoftPWM{
		Clock:  s.clock,
		Pin:    pin,
		Period: scuPWMPeriod,
		High: func() (time.Duration, bool) {
			if !ignition(s.car).IG3On() {
				return 0, false
			}
			return scuPWMPeriod - scuLowTime(s.Actuator()), true
		},
	}
}
