package inputs

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecusim/hw"
	"ecusim/vehicle"
	"ecusim/x/timex"
)

func TestDebouncerNeedsConsecutiveSamples(t *testing.T) {
	d := NewDebouncer(3)
	seq := []struct {
		in   bool
		want Edge
	}{
		{true, NoEdge}, {true, NoEdge}, {false, NoEdge}, // bounce resets
		{true, NoEdge}, {true, NoEdge}, {true, Rising},
		{true, NoEdge},
		{false, NoEdge}, {false, NoEdge}, {false, Falling},
	}
	for i, s := range seq {
		if got := d.Update(s.in); got != s.want {
			t.Fatalf("sample %d: got %v want %v", i, got, s.want)
		}
	}
	if d.Level() {
		t.Fatal("should settle low")
	}
}

type rig struct {
	clk  *timex.Virtual
	fp   *hw.FakePins
	pins hw.Pins
	car  *vehicle.Shared
	p    *Poller
}

func newRig(t *testing.T) *rig {
	t.Helper()
	clk := timex.NewVirtual(0)
	fp := hw.NewFakePins()
	pins, err := hw.OpenPins(fp, hw.Layout{
		IG1: 1, Brake: 2, EVReady: 3, ChargeLock: 4,
		RelayIG3: 5, LEDIgn: 6, ACUCrash: -1, SCUPark: -1,
	})
	if err != nil {
		t.Fatal(err)
	}
	car := vehicle.NewShared(vehicle.New(clk, vehicle.Options{}))
	return &rig{clk: clk, fp: fp, pins: pins, car: car,
		p: NewPoller(clk, nil, pins, car, DefaultConfig())}
}

func (r *rig) poll(n int) {
	for i := 0; i < n; i++ {
		r.p.Poll()
	}
}

func TestPollerIgnitionEdge(t *testing.T) {
	r := newRig(t)
	r.fp.Get(1).Set(true)
	r.poll(4)
	if s := r.car.Snapshot(); s.Ignition() != vehicle.Off {
		t.Fatal("ignition on before 5 samples")
	}
	r.poll(1)
	if s := r.car.Snapshot(); s.Ignition() != vehicle.On {
		t.Fatal("ignition should be On after 5 samples")
	}
	if !r.fp.Get(5).Get() || !r.fp.Get(6).Get() {
		t.Fatal("relay and led should follow ig1")
	}
	r.fp.Get(1).Set(false)
	r.poll(5)
	if s := r.car.Snapshot(); s.Ignition() != vehicle.Off {
		t.Fatal("ignition should drop to Off")
	}
	if r.fp.Get(5).Get() {
		t.Fatal("relay should drop")
	}
}

func TestPollerBrakeAndChargeLock(t *testing.T) {
	r := newRig(t)
	r.fp.Get(2).Set(true)
	r.fp.Get(4).Set(true)
	r.poll(3)
	s := r.car.Snapshot()
	if !s.IsBraking() || s.ChargePort() != vehicle.Locked {
		t.Fatalf("braking=%v port=%v", s.IsBraking(), s.ChargePort())
	}
	if s.EVReadyInput() {
		t.Fatal("ev ready never driven")
	}
}

func TestPollerInvertedInputs(t *testing.T) {
	clk := timex.NewVirtual(0)
	fp := hw.NewFakePins()
	pins, _ := hw.OpenPins(fp, hw.Layout{IG1: 1, Brake: -1, EVReady: -1, ChargeLock: -1,
		RelayIG3: -1, LEDIgn: -1, ACUCrash: -1, SCUPark: -1, InvertInputs: true})
	car := vehicle.NewShared(vehicle.New(clk, vehicle.Options{}))
	p := NewPoller(clk, nil, pins, car, DefaultConfig())
	for i := 0; i < 5; i++ {
		p.Poll() // pin low reads active
	}
	if s := car.Snapshot(); s.Ignition() != vehicle.On {
		t.Fatal("active-low ig1 not seen")
	}
}

func TestPollerRunSamplesOnPeriod(t *testing.T) {
	r := newRig(t)
	r.fp.Get(1).Set(true)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.p.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if s := r.car.Snapshot(); s.Ignition() != vehicle.On {
		t.Fatal("run loop never applied the edge")
	}
}
