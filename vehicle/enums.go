package vehicle

import "ecusim/pcan"

// Ignition is the vehicle power level. Levels are ordered.
type Ignition uint8

const (
	Off Ignition = iota
	IG3
	On
)

func (i Ignition) String() string {
	switch i {
	case Off:
		return "off"
	case IG3:
		return "ig3"
	case On:
		return "on"
	}
	return "invalid"
}

// IG3On reports whether at least IG3 power is present.
func (i Ignition) IG3On() bool { return i >= IG3 }

// Contactor is the high-voltage relay state.
type Contactor uint8

const (
	Open Contactor = iota
	PreCharging
	Closed
)

func (c Contactor) String() string {
	switch c {
	case Open:
		return "open"
	case PreCharging:
		return "precharging"
	case Closed:
		return "closed"
	}
	return "invalid"
}

type ChargePort uint8

const (
	Unlocked ChargePort = iota
	Locked
)

func (p ChargePort) String() string {
	if p == Locked {
		return "locked"
	}
	return "unlocked"
}

// Gear is the decoded shifter position.
type Gear = pcan.Gear
