// Package hw binds the emulator to a board: GPIO pins, the CAN
// controller and the log sink.
package hw

import (
	"ecusim/errcode"
)

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// Pin is one GPIO line.
type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// IRQPin is a Pin that can call a handler on edges. The handler runs in
// interrupt context and must not block.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory hands out pins by GPIO number.
type PinFactory interface {
	ByNumber(n int) (Pin, bool)
}

// Layout assigns GPIO numbers to emulator functions. A negative number
// leaves the function unconnected.
type Layout struct {
	IG1        int `json:"ig1"`
	Brake      int `json:"brake"`
	EVReady    int `json:"ev_ready"`
	ChargeLock int `json:"charge_lock"`
	RelayIG3   int `json:"relay_ig3"`
	LEDIgn     int `json:"led_ignition"`
	ACUCrash   int `json:"acu_crash"`
	SCUPark    int `json:"scu_park"`
	// Inputs are active low when true.
	InvertInputs bool `json:"invert_inputs"`
}

// Pins are the configured emulator GPIOs. Unconnected entries are nil.
type Pins struct {
	IG1        Pin
	Brake      Pin
	EVReady    Pin
	ChargeLock Pin
	RelayIG3   Pin
	LEDIgn     Pin
	ACUCrash   Pin
	SCUPark    Pin
	Invert     bool
}

// OpenPins claims and configures every pin in l.
func OpenPins(f PinFactory, l Layout) (Pins, error) {
	p := Pins{Invert: l.InvertInputs}
	pull := PullDown
	if l.InvertInputs {
		pull = PullUp
	}
	in := func(n int) (Pin, error) {
		if n < 0 {
			return nil, nil
		}
		pin, ok := f.ByNumber(n)
		if !ok {
			return nil, errcode.Wrap(errcode.InvalidConfig, "hw.pins", nil)
		}
		return pin, pin.ConfigureInput(pull)
	}
	out := func(n int) (Pin, error) {
		if n < 0 {
			return nil, nil
		}
		pin, ok := f.ByNumber(n)
		if !ok {
			return nil, errcode.Wrap(errcode.InvalidConfig, "hw.pins", nil)
		}
		return pin, pin.ConfigureOutput(false)
	}
	var err error
	for _, s := range []struct {
		dst *Pin
		n   int
		cfg func(int) (Pin, error)
	}{
		{&p.IG1, l.IG1, in},
		{&p.Brake, l.Brake, in},
		{&p.EVReady, l.EVReady, in},
		{&p.ChargeLock, l.ChargeLock, in},
		{&p.RelayIG3, l.RelayIG3, out},
		{&p.LEDIgn, l.LEDIgn, out},
		{&p.ACUCrash, l.ACUCrash, out},
		{&p.SCUPark, l.SCUPark, out},
	} {
		if *s.dst, err = s.cfg(s.n); err != nil {
			return Pins{}, err
		}
	}
	return p, nil
}

// Level reads an input honouring inversion. Unconnected inputs read low.
func (p Pins) Level(pin Pin) bool {
	if pin == nil {
		return false
	}
	return pin.Get() != p.Invert
}

// Drive sets an output if it is connected.
func Drive(pin Pin, level bool) {
	if pin != nil {
		pin.Set(level)
	}
}
