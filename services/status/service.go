// Package status reports a periodic summary of the vehicle state: one
// log line and one retained bus message per interval.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ecusim/bus"
	"ecusim/can"
	"ecusim/sched"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

var (
	TopicStatus = bus.T("vehicle", "status")
	// Interval changes arrive as the config section of the same name.
	topicConfigInterval = bus.T("config", "status_interval_ms")
)

// Snapshot is the published summary. Stale bus values are omitted.
type Snapshot struct {
	At         int64    `json:"at_ms"`
	Ignition   string   `json:"ignition"`
	MostOn     string   `json:"most_on"`
	Contactor  string   `json:"contactor,omitempty"`
	Gear       string   `json:"gear,omitempty"`
	SoC        *float32 `json:"soc,omitempty"`
	VBatt      *float32 `json:"v_batt,omitempty"`
	VInverter  *uint16  `json:"v_inv,omitempty"`
	MotorRPM   *uint16  `json:"rpm,omitempty"`
	Ready      bool     `json:"ready"`
	BusAlive   bool     `json:"bus_alive"`
	RxAlive    bool     `json:"rx_alive"`
	RxFrames   uint64   `json:"rx_frames"`
	BusOff     bool     `json:"bus_off"`
	TxQueued   int      `json:"tx_queued"`
	TxOverflow uint32   `json:"tx_overflows"`
}

func ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// Options configure New.
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
	Conn     *bus.Connection
	// Tx, if set, adds queue statistics to the report.
	Tx *can.TxQueue
	// Activity, if set, adds raw receive liveness.
	Activity *can.Activity
}

type Service struct {
	clock    timex.Clock
	car      *vehicle.Shared
	log      *slog.Logger
	conn     *bus.Connection
	tx       *can.TxQueue
	act      *can.Activity
	interval time.Duration
}

func New(clock timex.Clock, car *vehicle.Shared, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.Discard()
	}
	return &Service{
		clock:    clock,
		car:      car,
		log:      opts.Logger,
		conn:     opts.Conn,
		tx:       opts.Tx,
		act:      opts.Activity,
		interval: opts.Interval,
	}
}

// Run reports every interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	var cfg *bus.Subscription
	if s.conn != nil {
		cfg = s.conn.Subscribe(topicConfigInterval)
		defer s.conn.Unsubscribe(cfg)
	}
	per := sched.NewPeriod(s.clock.Now().Add(s.interval), s.interval)
	for {
		if err := s.clock.SleepUntil(ctx, per.Deadline()); err != nil {
			return err
		}
		if !per.Due(s.clock.Now()) {
			continue
		}
		s.Report()
		if cfg != nil {
			if d, ok := s.intervalUpdate(cfg); ok {
				per = sched.NewPeriod(s.clock.Now().Add(d), d)
			}
		}
	}
}

func (s *Service) intervalUpdate(sub *bus.Subscription) (time.Duration, bool) {
	select {
	case m := <-sub.Channel():
		raw, ok := m.Payload.(json.RawMessage)
		if !ok {
			return 0, false
		}
		var v int
		if err := json.Unmarshal(raw, &v); err != nil || v <= 0 {
			s.log.Warn("bad status interval", "payload", string(raw))
			return 0, false
		}
		d := time.Duration(v) * time.Millisecond
		if d == s.interval {
			return 0, false
		}
		s.interval = d
		s.log.Info("status interval", "interval", d)
		return d, true
	default:
		return 0, false
	}
}

// Report logs and publishes one summary.
func (s *Service) Report() Snapshot {
	st := s.car.Snapshot()
	snap := Snapshot{
		At:       s.clock.Now().Ms(),
		Ignition: st.Ignition().String(),
		MostOn:   st.MostOn().String(),
		Ready:    st.Ready(),
		BusAlive: st.BusAlive(),
		BusOff:   st.BusOff(),
	}
	if c, ok := st.Contactor(); ok {
		snap.Contactor = c.String()
	}
	if g, ok := st.Gear(); ok {
		snap.Gear = g.String()
	}
	soc, ok := st.SoC()
	snap.SoC = ptr(soc, ok)
	vb, ok := st.VBatt()
	snap.VBatt = ptr(vb, ok)
	vi, ok := st.VInverter()
	snap.VInverter = ptr(vi, ok)
	rpm, ok := st.MotorRPM()
	snap.MotorRPM = ptr(rpm, ok)
	if s.act != nil {
		snap.RxAlive = s.act.Alive()
		snap.RxFrames = s.act.Frames()
	}
	if s.tx != nil {
		snap.TxQueued = s.tx.Len()
		snap.TxOverflow = s.tx.Stats().Overflows
	}

	s.log.Info("status",
		"ign", snap.Ignition,
		"contactor", orStale(snap.Contactor),
		"soc", orStale(snap.SoC),
		"v_inv", orStale(snap.VInverter),
		"rpm", orStale(snap.MotorRPM),
	)
	if s.conn != nil {
		s.conn.Publish(&bus.Message{Topic: TopicStatus, Payload: snap, Retained: true})
	}
	return snap
}

func orStale[T any](v T) any {
	switch x := any(v).(type) {
	case string:
		if x == "" {
			return "stale"
		}
	case *float32:
		if x == nil {
			return "stale"
		}
		return *x
	case *uint16:
		if x == nil {
			return "stale"
		}
		return *x
	}
	return v
}
