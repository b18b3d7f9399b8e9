//go:build rp2040

package hw

import "machine"

type rp2Pins struct{}

type rp2Pin struct {
	p machine.Pin
	n int
}

// NewPinFactory returns the RP2040 GPIO factory.
func NewPinFactory() PinFactory { return rp2Pins{} }

func (rp2Pins) ByNumber(n int) (Pin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

func (r *rp2Pin) ConfigureInput(pull Pull) error {
	mode := machine.PinInput
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(b bool)  { r.p.Set(b) }
func (r *rp2Pin) Get() bool   { return r.p.Get() }
func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) SetIRQ(edge Edge, handler func()) error {
	var ch machine.PinChange
	switch edge {
	case EdgeRising:
		ch = machine.PinRising
	case EdgeFalling:
		ch = machine.PinFalling
	case EdgeBoth:
		ch = machine.PinRising | machine.PinFalling
	default:
		return r.ClearIRQ()
	}
	return r.p.SetInterrupt(ch, func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error { return r.p.SetInterrupt(0, nil) }
