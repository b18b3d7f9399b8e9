package can

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"ecusim/errcode"
	"ecusim/x/logx"
)

func TestControlDeliversFramesInOrder(t *testing.T) {
	sim := NewSim(SimOptions{FIFODepth: 8})
	ctl, rx, _ := Init(sim, Options{RxCapacity: 4})
	for i := 0; i < 3; i++ {
		sim.Inject(MustStandard(uint32(0x100+i), []byte{byte(i)}))
	}
	for ctl.OnIRQ() {
	}
	for i := 0; i < 3; i++ {
		f, ok := rx.TryRecv()
		if !ok || f.ID != uint32(0x100+i) {
			t.Fatalf("frame %d = %v ok=%v", i, f, ok)
		}
	}
}

func TestControlTxCompleteFeedsQueue(t *testing.T) {
	sim := NewSim(SimOptions{})
	ctl, _, tx := Init(sim, Options{})
	tx.SubmitAll(MustStandard(0x200, nil), MustStandard(0x100, nil))
	sim.Complete()
	ctl.OnIRQ()
	if f, ok := sim.InFlight(); !ok || f.ID != 0x100 {
		t.Fatalf("in flight = %v %v", f, ok)
	}
}

func TestControlRxOverflowIsFatal(t *testing.T) {
	var got error
	sim := NewSim(SimOptions{FIFODepth: 8})
	ctl, _, _ := Init(sim, Options{RxCapacity: 2, OnFault: func(err error) { got = err }})
	for i := 0; i < 3; i++ {
		sim.Inject(MustStandard(0x100, nil))
	}
	for ctl.OnIRQ() {
	}
	if !errors.Is(got, errcode.RxOverflow) {
		t.Fatalf("fault = %v", got)
	}
}

func TestControlOverrunLoggedButDelivered(t *testing.T) {
	rec := logx.NewRecorder()
	sim := NewSim(SimOptions{FIFODepth: 1})
	ctl, rx, _ := Init(sim, Options{Logger: rec.Logger()})
	sim.Inject(MustStandard(0x100, nil))
	sim.Inject(MustStandard(0x101, nil)) // pushes 0x100 out
	ctl.OnIRQ()
	if !rec.Has(slog.LevelError, "can rx overrun") {
		t.Fatal("overrun not logged")
	}
	if f, ok := rx.TryRecv(); !ok || f.ID != 0x101 {
		t.Fatalf("got %v %v", f, ok)
	}
}

func TestControlErrorPassiveNonFatalByDefault(t *testing.T) {
	rec := logx.NewRecorder()
	faulted := false
	sim := NewSim(SimOptions{})
	ctl, _, _ := Init(sim, Options{Logger: rec.Logger(), OnFault: func(error) { faulted = true }})
	sim.InjectErrorPassive()
	ctl.OnIRQ()
	if faulted || !rec.Has(slog.LevelError, "can error passive") {
		t.Fatalf("faulted=%v", faulted)
	}

	sim2 := NewSim(SimOptions{})
	ctl2, _, _ := Init(sim2, Options{HaltOnErrorPassive: true, OnFault: func(error) { faulted = true }})
	sim2.InjectErrorPassive()
	ctl2.OnIRQ()
	if !faulted {
		t.Fatal("halt_on_error_passive ignored")
	}
}

func TestServeStopsOnBusOff(t *testing.T) {
	sim := NewSim(SimOptions{})
	ctl, _, _ := Init(sim, Options{OnFault: func(error) {}})
	done := make(chan error, 1)
	go func() { done <- ctl.Serve(context.Background()) }()
	sim.InjectBusOff()
	select {
	case err := <-done:
		if errcode.Of(err) != errcode.BusOff {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return on bus-off")
	}
}

func TestRxChannelRecvWaits(t *testing.T) {
	rx := NewRxChannel(2)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() {
		time.Sleep(5 * time.Millisecond)
		rx.TryPush(MustStandard(0x42, nil))
	}()
	f, err := rx.Recv(ctx)
	if err != nil || f.ID != 0x42 {
		t.Fatalf("Recv = %v, %v", f, err)
	}
}
