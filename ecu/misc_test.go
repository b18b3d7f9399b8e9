package ecu

import (
	"testing"
	"time"

	"ecusim/pcan"
	"ecusim/vehicle"
	"ecusim/x/timex"
)

func TestMiscRatesWithIgnitionOff(t *testing.T) {
	clk, car, sink, ctx := setup(time.Second)
	_ = RunPeriodic(ctx, clk, nil, sink, car, Misc()...)

	for _, c := range []struct {
		id   uint32
		want int
	}{
		{pcan.ID5CA, 0},
		{pcan.ID412, 0},
		{pcan.ID50D, 0},
		{pcan.ID45D, 5},
		{pcan.ID5B3, 5},
		{pcan.ID450, 50},
		{pcan.ID471, 50},
		{pcan.ID593, 10},
	} {
		if got := sink.count(c.id); got != c.want {
			t.Errorf("%03X: %d frames, want %d", c.id, got, c.want)
		}
	}
}

func TestMiscPowerPhase(t *testing.T) {
	clk := timex.NewVirtual(0)
	s := vehicle.New(clk, vehicle.Options{})
	m := &miscState{power: pcan.PowerUnset}

	f, _ := m.powerFrame(s)
	if f.Data[0] != uint8(pcan.PowerGoingToSleep) || f.Data[1] != 0xFF {
		t.Fatalf("boot = % X", f.Data[:2])
	}
	s.SetMainPower(true)
	f, _ = m.powerFrame(s)
	if f.Data[0] != 0x10|uint8(pcan.PowerOn) || f.Data[1] != 0x10 {
		t.Fatalf("on = % X", f.Data[:2])
	}
	s.SetMainPower(false)
	f, _ = m.powerFrame(s)
	if f.Data[0] != uint8(pcan.PowerGoingToSleep) {
		t.Fatalf("after off = % X", f.Data[:1])
	}
}

func TestMiscUptimeCounter(t *testing.T) {
	clk := timex.NewVirtual(0)
	s := vehicle.New(clk, vehicle.Options{})
	m := &miscState{}
	if _, ok := m.uptime(s); ok {
		t.Fatal("0x50D sent without IG3")
	}
	s.SetMainPower(true)
	var last uint16
	for range uptimeTicks * 2 {
		f, ok := m.uptime(s)
		if !ok {
			t.Fatal("0x50D silent with IG3")
		}
		last = uint16(f.Data[6]) | uint16(f.Data[7])<<8
	}
	if last != 2 {
		t.Fatalf("counter = %d, want 2", last)
	}
	s.SetMainPower(false)
	m.uptime(s)
	if m.tens != 0 || m.ticks != 0 {
		t.Fatal("counter not reset when power dropped")
	}
}
