package ecu

import (
	"ecusim/can"
	"ecusim/pcan"
	"ecusim/sched"
	"ecusim/vehicle"
)

// uptimeTicks is how many 5 Hz ticks advance the 0x50D counter.
const uptimeTicks = 200

// Misc returns the frames of unattributed origin that the VCU still
// expects on the bus. Several follow the power state.
func Misc() []Producer {
	m := &miscState{power: pcan.PowerUnset}
	return []Producer{
		Static{Frame: pcan.Frame5CA, Every: sched.Hz1, MinIgnition: vehicle.IG3},

		Static{Frame: pcan.Zeroes412, Every: sched.Hz5, MinIgnition: vehicle.IG3},
		Static{Frame: pcan.Zeroes45C, Every: sched.Hz5, MinIgnition: vehicle.IG3},
		Func{Every: sched.Hz5, Fn: m.uptime},
		Static{Frame: pcan.Park559, Every: sched.Hz5, MinIgnition: vehicle.IG3},
		Static{Frame: pcan.Zeroes45D, Every: sched.Hz5},
		Static{Frame: pcan.Zeroes45E, Every: sched.Hz5},
		Static{Frame: pcan.Frame4FE, Every: sched.Hz5},
		Func{Every: sched.Hz5, Fn: m.powerFrame},

		Static{Frame: pcan.Speed450, Every: sched.Hz50},
		Static{Frame: pcan.Frame462, Every: sched.Hz50},
		Static{Frame: pcan.Frame471, Every: sched.Hz50},

		Static{Frame: pcan.Zeroes520, Every: sched.Hz10},
		Static{Frame: pcan.Frame55C, Every: sched.Hz10},
		Static{Frame: pcan.Zeroes55F, Every: sched.Hz10},
		Static{Frame: pcan.Frame561, Every: sched.Hz10},
		Static{Frame: pcan.Zeroes578, Every: sched.Hz10},
		Static{Frame: pcan.Frame593, Every: sched.Hz10},
	}
}

// miscState is only touched from the RunPeriodic goroutine.
type miscState struct {
	power pcan.PowerState
	woken bool
	ticks int
	tens  uint16
}

func (m *miscState) uptime(s *vehicle.State) (can.Frame, bool) {
	if !s.Ignition().IG3On() {
		m.ticks, m.tens = 0, 0
		return can.Frame{}, false
	}
	m.ticks++
	if m.ticks >= uptimeTicks {
		m.tens++
		m.ticks = 0
	}
	return pcan.Uptime50D(m.tens), true
}

// powerFrame reports going-to-sleep whenever power is off, unless the
// phase is already off.
func (m *miscState) powerFrame(s *vehicle.State) (can.Frame, bool) {
	ign := s.Ignition()
	if ign != vehicle.Off {
		m.woken = true
	}
	switch {
	case ign.IG3On():
		m.power = pcan.PowerOn
	case m.power != pcan.PowerOff:
		m.power = pcan.PowerGoingToSleep
	}
	return pcan.Power5B3(m.power, ign.IG3On(), m.woken), true
}
