package ecu

import (
	"ecusim/can"
	"ecusim/pcan"
	"ecusim/sched"
	"ecusim/vehicle"
	"ecusim/x/timex"
)

// IGPM returns the gateway and body module frames. The clock frame
// reports time since the emulator started.
func IGPM(clock timex.Clock) []Producer {
	start := clock.Now()
	return []Producer{
		Static{Frame: pcan.IGPMCharge, Every: sched.Hz10},
		Func{Every: sched.Hz10, Fn: func(s *vehicle.State) (can.Frame, bool) {
			return pcan.IGPMBody(s.Ignition() == vehicle.On), true
		}},
		Func{Every: sched.Hz10, Fn: func(*vehicle.State) (can.Frame, bool) {
			return pcan.Clock(int64(clock.Now().Sub(start).Seconds())), true
		}},
		Func{Every: sched.Hz10, Fn: func(s *vehicle.State) (can.Frame, bool) {
			return pcan.ChargePortStatus(s.ChargePort() == vehicle.Locked), true
		}},
		Static{Frame: pcan.IGPM5DF, Every: sched.Hz5},
		Static{Frame: pcan.IGPM553, Every: sched.Hz5},
		Static{Frame: pcan.Odometer, Every: sched.Hz1},
		Static{Frame: pcan.HUDATC, Every: sched.Hz1},
		Func{Every: sched.Hz10, Fn: gateway},
	}
}

// gateway mirrors the power state into 0x588.
func gateway(s *vehicle.State) (can.Frame, bool) {
	switch s.Ignition() {
	case vehicle.IG3:
		return pcan.GatewayStatus(0x58, 0x1C, 0x00), true
	case vehicle.On:
		return pcan.GatewayStatus(0xFC, 0xFF, 0x03), true
	}
	return pcan.GatewayStatus(0, 0, 0), true
}

// Airbag is the ACU status frame, sent only with ignition On.
func Airbag() Producer {
	return Static{Frame: pcan.AirbagStatus, Every: sched.Hz1, MinIgnition: vehicle.On}
}
