package vehicle

import (
	"log/slog"
	"testing"
	"time"

	"ecusim/bus"
	"ecusim/pcan"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

func newState(t *testing.T, opts Options) (*State, *timex.Virtual, *logx.Recorder) {
	t.Helper()
	clk := timex.NewVirtual(1000)
	rec := logx.NewRecorder()
	opts.Logger = rec.Logger()
	return New(clk, opts), clk, rec
}

func TestNewStateIsEmpty(t *testing.T) {
	s, _, _ := newState(t, Options{})
	if s.Ignition() != Off || s.MostOn() != Off {
		t.Fatal("ignition should start Off")
	}
	if _, ok := s.Contactor(); ok {
		t.Fatal("contactor should start stale")
	}
	if _, ok := s.MotorRPM(); ok {
		t.Fatal("rpm should start stale")
	}
	if _, ok := s.LastRx(); ok || s.BusAlive() {
		t.Fatal("no rx yet")
	}
}

func TestContactorPrecedenceScenario(t *testing.T) {
	s, _, rec := newState(t, Options{})

	s.UpdateState(pcan.PrechargeStatus{PrechargeClosed: true})
	if _, ok := s.Contactor(); ok {
		t.Fatal("precharge alone must not set the contactor")
	}
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: false})
	if c, ok := s.Contactor(); !ok || c != PreCharging {
		t.Fatalf("contactor = %v %v, want precharging", c, ok)
	}
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: true})
	if c, _ := s.Contactor(); c != Closed {
		t.Fatalf("contactor = %v, want closed", c)
	}
	s.UpdateState(pcan.PrechargeStatus{PrechargeClosed: false})
	if c, _ := s.Contactor(); c != Closed {
		t.Fatalf("precharge message alone changed contactor to %v", c)
	}
	if rec.Has(slog.LevelWarn, "unexpected contactor transition") {
		t.Fatal("normal sequence flagged as unexpected")
	}
}

func TestUnexpectedContactorTransitionApplied(t *testing.T) {
	s, _, rec := newState(t, Options{})
	s.UpdateState(pcan.PrechargeStatus{PrechargeClosed: false})
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: false})
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: true}) // open -> closed
	if c, _ := s.Contactor(); c != Closed {
		t.Fatal("transition must still apply")
	}
	if !rec.Has(slog.LevelWarn, "unexpected contactor transition") {
		t.Fatal("open->closed not flagged")
	}
}

func TestRepeatedContactorWithStalePrecharge(t *testing.T) {
	s, clk, rec := newState(t, Options{})
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: false})
	if rec.Has(slog.LevelWarn, "contactor status without fresh precharge status") {
		t.Fatal("single message should not warn")
	}
	clk.Advance(100 * time.Millisecond)
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: false})
	if !rec.Has(slog.LevelWarn, "contactor status without fresh precharge status") {
		t.Fatal("anomaly not logged")
	}
	if c, ok := s.Contactor(); !ok || c != Open {
		t.Fatalf("contactor = %v %v", c, ok)
	}
}

func TestReadyRequiresFreshClosedContactor(t *testing.T) {
	s, clk, _ := newState(t, Options{})
	s.SetMainPower(true)
	s.UpdateState(pcan.PrechargeStatus{PrechargeClosed: true})
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: true})
	if !s.Ready() {
		t.Fatal("should be ready")
	}
	clk.Advance(2999 * time.Millisecond)
	if !s.Ready() {
		t.Fatal("still inside the contactor window")
	}
	clk.Advance(time.Millisecond)
	if s.Ready() {
		t.Fatal("stale contactor must not be ready")
	}
	if s.Ignition() != On {
		t.Fatal("ignition should remain On")
	}
}

func TestReadyFalseWithoutIgnition(t *testing.T) {
	s, _, _ := newState(t, Options{})
	s.UpdateState(pcan.ContactorStatus{ContactorClosed: true})
	if s.Ready() {
		t.Fatal("ready without main power")
	}
}

func TestIgnitionEdgesAndRatchet(t *testing.T) {
	s, clk, _ := newState(t, Options{})
	s.UpdateState(pcan.BatteryStatus{SoCHalfPct: 100})
	if s.Ignition() != IG3 {
		t.Fatalf("bus liveness should imply IG3, got %v", s.Ignition())
	}
	s.SetMainPower(true)
	if s.Ignition() != On || s.MostOn() != On {
		t.Fatal("rising edge -> On")
	}
	s.SetMainPower(false)
	if s.Ignition() != Off {
		t.Fatal("falling edge -> Off")
	}
	if s.MostOn() != On {
		t.Fatal("most_on must not decrease")
	}
	s.UpdateState(pcan.PrechargeStatus{})
	if s.Ignition() != IG3 {
		t.Fatal("late BMS message should show IG3")
	}
	clk.Advance(2 * time.Second)
	s.Refresh()
	if s.Ignition() != Off {
		t.Fatal("IG3 should lapse with stale evidence")
	}
	if s.MostOn() != On {
		t.Fatal("most_on decreased")
	}
}

func TestIgnitionLivenessGate(t *testing.T) {
	s, _, _ := newState(t, Options{IgnitionRequiresLiveness: true})
	s.SetMainPower(true)
	if s.Ignition() != Off {
		t.Fatal("gated ignition should wait for liveness")
	}
	s.UpdateState(pcan.ContactorStatus{})
	if s.Ignition() != On {
		t.Fatalf("liveness should release the gate, got %v", s.Ignition())
	}
}

func TestTelemetryAndBusHealth(t *testing.T) {
	s, clk, _ := newState(t, Options{})
	s.UpdateState(pcan.BatteryStatus{SoCHalfPct: 150, VoltageDeci: 3600, CurrentDeci: 20})
	s.UpdateState(pcan.InverterStatus{Voltage: 358})
	s.UpdateState(pcan.MotorStatus{RPM: 1200})
	s.UpdateState(pcan.GearStatus{Gear: pcan.Drive})

	if soc, ok := s.SoC(); !ok || soc != 75 {
		t.Fatalf("soc = %v %v", soc, ok)
	}
	if g, ok := s.Gear(); !ok || g != pcan.Drive {
		t.Fatalf("gear = %v", g)
	}
	if !s.BusAlive() {
		t.Fatal("bus should be alive")
	}
	clk.Advance(time.Second)
	if _, ok := s.MotorRPM(); ok {
		t.Fatal("rpm should be stale after 1s")
	}
	if _, ok := s.Gear(); ok {
		t.Fatal("gear should be stale after 1s")
	}
	if _, ok := s.SoC(); !ok {
		t.Fatal("battery window is 2s")
	}
	if s.BusAlive() {
		t.Fatal("bus should be quiet after 1s")
	}
	if at, ok := s.LastRx(); !ok || at != 1000 {
		t.Fatalf("last rx = %d", at)
	}
}

func TestPublishesTransitions(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("vehicle")
	sub := b.NewConnection("test").Subscribe(TopicIgnition)
	s, _, _ := newState(t, Options{Conn: conn})
	s.SetMainPower(true)
	select {
	case m := <-sub.Channel():
		if m.Payload.(Ignition) != On {
			t.Fatalf("payload = %v", m.Payload)
		}
	default:
		t.Fatal("no ignition update published")
	}
}

func TestSharedSnapshotIsACopy(t *testing.T) {
	s, _, _ := newState(t, Options{})
	h := NewShared(s)
	snap := h.Snapshot()
	h.Lock(func(st *State) { st.SetIsBraking(true) })
	if snap.IsBraking() {
		t.Fatal("snapshot changed")
	}
	h.Lock(func(st *State) {
		if !st.IsBraking() {
			t.Fatal("update lost")
		}
	})
}
