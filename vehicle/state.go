// Package vehicle is the shared vehicle state model: local inputs and
// decoded bus messages folded into ignition and contactor state machines,
// every bus-derived field carrying its own staleness window.
package vehicle

import (
	"log/slog"
	"time"

	"ecusim/bus"
	"ecusim/fresh"
	"ecusim/pcan"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// Staleness holds the validity window of each bus-derived field.
type Staleness struct {
	Contactor   time.Duration
	Precharge   time.Duration
	Gear        time.Duration
	Battery     time.Duration
	Inverter    time.Duration
	MotorRPM    time.Duration
	IG3Evidence time.Duration
	BusRx       time.Duration
}

func DefaultStaleness() Staleness {
	return Staleness{
		Contactor:   3 * time.Second,
		Precharge:   3 * time.Second,
		Gear:        time.Second,
		Battery:     2 * time.Second,
		Inverter:    time.Second,
		MotorRPM:    time.Second,
		IG3Evidence: 2 * time.Second,
		BusRx:       time.Second,
	}
}

func (s Staleness) withDefaults() Staleness {
	d := DefaultStaleness()
	pick := func(v, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return v
	}
	return Staleness{
		Contactor:   pick(s.Contactor, d.Contactor),
		Precharge:   pick(s.Precharge, d.Precharge),
		Gear:        pick(s.Gear, d.Gear),
		Battery:     pick(s.Battery, d.Battery),
		Inverter:    pick(s.Inverter, d.Inverter),
		MotorRPM:    pick(s.MotorRPM, d.MotorRPM),
		IG3Evidence: pick(s.IG3Evidence, d.IG3Evidence),
		BusRx:       pick(s.BusRx, d.BusRx),
	}
}

// Options configure New.
type Options struct {
	Stale Staleness
	// IgnitionRequiresLiveness holds the main power edge at IG3 until
	// another module has been heard from.
	IgnitionRequiresLiveness bool
	Logger                   *slog.Logger
	// Conn, if set, receives retained ignition and contactor updates.
	Conn *bus.Connection
}

// Telemetry topics published on state changes.
var (
	TopicIgnition  = bus.T("vehicle", "ignition")
	TopicContactor = bus.T("vehicle", "contactor")
)

// State is the vehicle aggregate. It is not safe for concurrent use;
// share it through Shared.
type State struct {
	clock           timex.Clock
	log             *slog.Logger
	conn            *bus.Connection
	requireLiveness bool
	busRxWindow     time.Duration

	mainPower bool
	ignition  Ignition
	mostOn    Ignition

	contactor     fresh.Value[Contactor]
	lastPrecharge fresh.Value[bool]
	staleB        int

	isBraking    bool
	evReadyInput bool
	chargePort   ChargePort

	gear      fresh.Value[Gear]
	socBatt   fresh.Value[float32]
	vBatt     fresh.Value[float32]
	iBatt     fresh.Value[float32]
	vInverter fresh.Value[uint16]
	motorRPM  fresh.Value[uint16]
	ig3Seen   fresh.Value[bool]

	lastRx timex.Instant
	hasRx  bool
	busOff bool
}

// New returns a state with every bus field empty and ignition Off.
func New(clock timex.Clock, opts Options) *State {
	st := opts.Stale.withDefaults()
	log := opts.Logger
	if log == nil {
		log = logx.Discard()
	}
	return &State{
		clock:           clock,
		log:             log,
		conn:            opts.Conn,
		requireLiveness: opts.IgnitionRequiresLiveness,
		busRxWindow:     st.BusRx,
		contactor:       fresh.New[Contactor](clock, st.Contactor),
		lastPrecharge:   fresh.New[bool](clock, st.Precharge),
		gear:            fresh.New[Gear](clock, st.Gear),
		socBatt:         fresh.New[float32](clock, st.Battery),
		vBatt:           fresh.New[float32](clock, st.Battery),
		iBatt:           fresh.New[float32](clock, st.Battery),
		vInverter:       fresh.New[uint16](clock, st.Inverter),
		motorRPM:        fresh.New[uint16](clock, st.MotorRPM),
		ig3Seen:         fresh.New[bool](clock, st.IG3Evidence),
	}
}

// ---- local inputs ----

// SetMainPower applies a debounced main power edge: rising goes On
// (or waits for liveness when gated), falling goes Off.
func (s *State) SetMainPower(on bool) {
	s.mainPower = on
	switch {
	case !on:
		s.setIgnition(Off)
	case !s.requireLiveness || s.ig3Seen.IsFresh():
		s.setIgnition(On)
	default:
		s.log.Info("main power on, waiting for bus liveness")
	}
}

func (s *State) SetIsBraking(v bool) {
	if v != s.isBraking {
		s.log.Info("braking", "on", v)
		s.isBraking = v
	}
}

func (s *State) SetEVReadyInput(v bool) {
	if v != s.evReadyInput {
		s.log.Info("ev ready input", "on", v)
		s.evReadyInput = v
	}
}

func (s *State) SetChargePort(p ChargePort) {
	if p != s.chargePort {
		s.log.Info("charge port", "state", p.String())
		s.chargePort = p
	}
}

// Refresh re-evaluates time-driven transitions: IG3 inferred from bus
// liveness drops back to Off once the evidence is stale.
func (s *State) Refresh() {
	if s.ignition == IG3 && !s.mainPower && !s.ig3Seen.IsFresh() {
		s.setIgnition(Off)
	}
}

// ---- bus input ----

// noteRx stamps the time of the last decoded message.
func (s *State) noteRx() {
	s.lastRx = s.clock.Now()
	s.hasRx = true
}

func (s *State) SetBusOff(v bool) {
	if v != s.busOff {
		s.log.Error("bus off", "on", v)
		s.busOff = v
	}
}

// UpdateState folds one decoded message into the model.
func (s *State) UpdateState(msg pcan.Message) {
	s.noteRx()
	switch m := msg.(type) {
	case pcan.PrechargeStatus:
		s.lastPrecharge.Set(m.PrechargeClosed)
		s.noteLiveness()
	case pcan.ContactorStatus:
		s.applyContactor(m.ContactorClosed)
		s.noteLiveness()
	case pcan.BatteryStatus:
		s.socBatt.Set(m.SoC())
		s.vBatt.Set(m.Voltage())
		s.iBatt.Set(m.Current())
		s.noteLiveness()
	case pcan.GearStatus:
		if g, ok := s.gear.Get(); !ok || g != m.Gear {
			s.log.Info("gear", "gear", m.Gear.String())
		}
		s.gear.Set(m.Gear)
	case pcan.InverterStatus:
		s.vInverter.Set(m.Voltage)
	case pcan.MotorStatus:
		s.motorRPM.Set(m.RPM)
	default:
		logx.Trace(s.log, "vehicle ignores message", "name", msg.Name())
	}
}

// noteLiveness records a message only sent by a module that is at least
// partially powered.
func (s *State) noteLiveness() {
	s.ig3Seen.Set(true)
	switch {
	case s.mainPower && s.ignition != On:
		s.setIgnition(On)
	case s.ignition == Off:
		s.setIgnition(IG3)
	}
}

func (s *State) applyContactor(closed bool) {
	pre, ok := s.lastPrecharge.Get()
	if ok {
		s.staleB = 0
	} else {
		s.staleB++
		if s.staleB == 2 {
			age, _ := s.lastPrecharge.Age()
			s.log.Warn("contactor status without fresh precharge status", "precharge_age", age)
		}
	}

	next := Open
	switch {
	case closed:
		next = Closed
	case pre:
		next = PreCharging
	}

	prev, known := s.contactor.Get()
	s.contactor.Set(next)
	if known && prev == next {
		return
	}
	if known && (prev == Open && next == Closed || prev == Closed && next == PreCharging) {
		s.log.Warn("unexpected contactor transition", "from", prev.String(), "to", next.String())
	} else {
		from := "unknown"
		if known {
			from = prev.String()
		}
		s.log.Info("contactor", "from", from, "to", next.String())
	}
	s.publish(TopicContactor, next)
}

func (s *State) setIgnition(next Ignition) {
	if next == s.ignition {
		return
	}
	s.log.Info("ignition", "from", s.ignition.String(), "to", next.String())
	s.ignition = next
	if next > s.mostOn {
		s.mostOn = next
	}
	s.publish(TopicIgnition, next)
}

func (s *State) publish(t bus.Topic, v any) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(&bus.Message{Topic: t, Payload: v, Retained: true})
}

// ---- read side ----

func (s *State) Ignition() Ignition { return s.ignition }

// MostOn is the highest ignition level seen since reset.
func (s *State) MostOn() Ignition { return s.mostOn }

func (s *State) MainPower() bool             { return s.mainPower }
func (s *State) Contactor() (Contactor, bool) { return s.contactor.Get() }
func (s *State) Gear() (Gear, bool)           { return s.gear.Get() }
func (s *State) SoC() (float32, bool)         { return s.socBatt.Get() }
func (s *State) VBatt() (float32, bool)       { return s.vBatt.Get() }
func (s *State) IBatt() (float32, bool)       { return s.iBatt.Get() }
func (s *State) VInverter() (uint16, bool)    { return s.vInverter.Get() }
func (s *State) MotorRPM() (uint16, bool)     { return s.motorRPM.Get() }
func (s *State) IsBraking() bool              { return s.isBraking }
func (s *State) EVReadyInput() bool           { return s.evReadyInput }
func (s *State) ChargePort() ChargePort       { return s.chargePort }
func (s *State) BusOff() bool                 { return s.busOff }

// LastRx returns when a decoded message was last applied.
func (s *State) LastRx() (timex.Instant, bool) { return s.lastRx, s.hasRx }

// BusAlive reports whether a decoded message arrived within the bus
// receive window.
func (s *State) BusAlive() bool {
	return s.hasRx && s.clock.Now().Sub(s.lastRx) < s.busRxWindow
}

// Ready is true only with ignition On and a fresh Closed contactor.
func (s *State) Ready() bool {
	c, ok := s.contactor.Get()
	return s.ignition == On && ok && c == Closed
}

// Snapshot returns a read-only copy for one producer iteration.
func (s *State) Snapshot() State {
	cp := *s
	cp.conn = nil
	return cp
}
