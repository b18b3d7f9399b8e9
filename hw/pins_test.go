//go:build !rp2040 && !rp2350

package hw

import (
	"errors"
	"testing"

	"ecusim/errcode"
)

type onlyPins map[int]*FakePin

func (o onlyPins) ByNumber(n int) (Pin, bool) {
	p, ok := o[n]
	return p, ok
}

func TestOpenPinsConfiguresDirections(t *testing.T) {
	f := NewFakePins()
	l := Layout{IG1: 2, Brake: 3, EVReady: -1, ChargeLock: -1, RelayIG3: 6, LEDIgn: 25, ACUCrash: -1, SCUPark: -1}
	p, err := OpenPins(f, l)
	if err != nil {
		t.Fatalf("OpenPins: %v", err)
	}
	if p.IG1 == nil || p.Brake == nil || p.RelayIG3 == nil || p.LEDIgn == nil {
		t.Fatalf("connected pins missing: %+v", p)
	}
	if p.EVReady != nil || p.SCUPark != nil {
		t.Fatal("negative numbers must stay unconnected")
	}
	if f.Get(2).IsOutput() {
		t.Fatal("ig1 should be an input")
	}
	if !f.Get(6).IsOutput() || f.Get(6).Get() {
		t.Fatal("relay should be an output driven low")
	}
}

func TestOpenPinsUnknownNumber(t *testing.T) {
	l := Layout{IG1: 9, Brake: -1, EVReady: -1, ChargeLock: -1, RelayIG3: -1, LEDIgn: -1, ACUCrash: -1, SCUPark: -1}
	_, err := OpenPins(onlyPins{}, l)
	if !errors.Is(err, errcode.InvalidConfig) {
		t.Fatalf("err = %v, want invalid_config", err)
	}
}

func TestLevelInversion(t *testing.T) {
	pin := NewFakePin(1)
	pin.Set(false)
	if (Pins{Invert: true}).Level(pin) != true {
		t.Fatal("inverted low should read active")
	}
	if (Pins{}).Level(pin) {
		t.Fatal("plain low should read inactive")
	}
	if (Pins{Invert: true}).Level(nil) {
		t.Fatal("unconnected input must read low")
	}
	Drive(nil, true)
}

func TestFakePinIRQ(t *testing.T) {
	pin := NewFakePin(4)
	var hits int
	if err := pin.SetIRQ(EdgeFalling, func() { hits++ }); err != nil {
		t.Fatal(err)
	}
	pin.Set(true)
	pin.Set(false)
	pin.Set(false)
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
	_ = pin.ClearIRQ()
	pin.Set(true)
	pin.Set(false)
	if hits != 1 || pin.Sets() != 5 {
		t.Fatalf("hits=%d sets=%d", hits, pin.Sets())
	}
}
