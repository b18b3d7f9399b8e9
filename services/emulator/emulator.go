// Package emulator wires the CAN controller, the vehicle model, the
// local inputs and every emulated module into one task group.
package emulator

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ecusim/bus"
	"ecusim/can"
	"ecusim/ecu"
	"ecusim/errcode"
	"ecusim/hw"
	"ecusim/inputs"
	"ecusim/pcan"
	"ecusim/services/config"
	"ecusim/services/status"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// Options configure New. Controller and Clock are required.
type Options struct {
	Config     config.Config
	Clock      timex.Clock
	Logger     *slog.Logger
	Controller can.Controller
	Pins       hw.Pins
	// Bus carries retained telemetry. A private bus is created if nil.
	Bus *bus.Bus
}

// Emulator owns every task of one run.
type Emulator struct {
	cfg   config.Config
	clock timex.Clock
	log   *slog.Logger
	pins  hw.Pins
	bus   *bus.Bus

	ctl *can.Control
	rx  *can.RxChannel
	tx  *can.TxQueue
	car *vehicle.Shared
	act *can.Activity

	ieb    *ecu.IEB
	scu    *ecu.SCU
	poller *inputs.Poller
	status *status.Service
}

func New(opts Options) (*Emulator, error) {
	if opts.Controller == nil || opts.Clock == nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "emulator.new", Msg: "controller and clock are required"}
	}
	log := opts.Logger
	if log == nil {
		log = logx.Discard()
	}
	b := opts.Bus
	if b == nil {
		b = bus.NewBus(8)
	}
	cfg := opts.Config

	e := &Emulator{cfg: cfg, clock: opts.Clock, log: log, pins: opts.Pins, bus: b}

	st := vehicle.New(opts.Clock, vehicle.Options{
		Stale:                    cfg.Staleness(),
		IgnitionRequiresLiveness: cfg.IgnitionRequiresLiveness,
		Logger:                   log.With("task", "vehicle"),
		Conn:                     b.NewConnection("vehicle"),
	})
	e.car = vehicle.NewShared(st)
	e.act = can.NewActivity(opts.Clock, cfg.Staleness().BusRx)

	e.ctl, e.rx, e.tx = can.Init(opts.Controller, cfg.CANOptions(log.With("task", "can"), e.onFault))

	if bt, err := cfg.BitTiming(); err == nil {
		log.Info("can bit timing",
			"bitrate", cfg.CAN.Bitrate,
			"prescaler", bt.Prescaler,
			"seg1", bt.Seg1, "seg2", bt.Seg2, "sjw", bt.SJW,
			"sample_point_pm", bt.SamplePoint())
	} else {
		log.Warn("no exact can bit timing", "clock_hz", cfg.CAN.ClockHz, "bitrate", cfg.CAN.Bitrate, "err", err)
	}

	e.ieb = ecu.NewIEB(opts.Clock, log.With("task", "ieb"), e.car, e.tx)
	e.scu = ecu.NewSCU(opts.Clock, log.With("task", "scu"), e.car, e.tx)
	e.poller = inputs.NewPoller(opts.Clock, log.With("task", "inputs"), opts.Pins, e.car, cfg.InputConfig())
	e.status = status.New(opts.Clock, e.car, status.Options{
		Interval: cfg.StatusInterval(),
		Logger:   log.With("task", "status"),
		Conn:     b.NewConnection("status"),
		Tx:       e.tx,
		Activity: e.act,
	})
	return e, nil
}

// Car is the shared vehicle state.
func (e *Emulator) Car() *vehicle.Shared { return e.car }

// Tx is the transmit queue; frames submitted here compete with the
// emulated modules.
func (e *Emulator) Tx() *can.TxQueue { return e.tx }

func (e *Emulator) Bus() *bus.Bus { return e.bus }

// Activity tracks raw bus traffic, including frames that never decode.
func (e *Emulator) Activity() *can.Activity { return e.act }

// onFault runs in the interrupt context on the first fatal fault. Serve
// returns the same fault, which stops the group.
func (e *Emulator) onFault(err error) {
	if errcode.Of(err) == errcode.BusOff {
		e.car.Lock(func(s *vehicle.State) { s.SetBusOff(true) })
	}
}

// Run starts every task and blocks until ctx is done or a fatal fault
// occurs. A fault is returned in preference to the cancellation it
// causes.
func (e *Emulator) Run(ctx context.Context) error {
	if err := config.Publish(e.bus.NewConnection("config"), e.cfg); err != nil {
		e.log.Warn("config publish", "err", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.ctl.Serve(ctx) })
	g.Go(func() error { return e.receive(ctx) })
	g.Go(func() error { return e.poller.Run(ctx) })
	g.Go(func() error {
		ps := append(ecu.IGPM(e.clock), ecu.Airbag())
		ps = append(ps, ecu.Misc()...)
		return ecu.RunPeriodic(ctx, e.clock, e.log.With("task", "periodic"), e.tx, e.car, ps...)
	})
	g.Go(func() error { return e.ieb.Run(ctx) })
	g.Go(func() error { return e.scu.Run(ctx) })
	if e.pins.SCUPark != nil {
		g.Go(func() error { return e.scu.ParkPWM(e.pins.SCUPark).Run(ctx) })
	}
	if e.pins.ACUCrash != nil {
		g.Go(func() error { return ecu.CrashPWM(e.clock, e.pins.ACUCrash).Run(ctx) })
	}
	g.Go(func() error { return e.status.Run(ctx) })

	e.log.Info("emulator running", "board", e.cfg.Board)
	err := g.Wait()
	if fault := e.ctl.Fault(); fault != nil {
		return fault
	}
	return err
}

// receive is the bus consumer: every frame marks the bus active, and
// only decoded module messages reach the vehicle model.
func (e *Emulator) receive(ctx context.Context) error {
	for {
		f, err := e.rx.Recv(ctx)
		if err != nil {
			return err
		}
		e.handle(f)
	}
}

func (e *Emulator) handle(f can.Frame) {
	e.act.Note()
	if pcan.IsDiagnostic(f) {
		logx.Trace(e.log, "diagnostic frame skipped", "frame", f.String())
		return
	}
	msg, err := pcan.Decode(f)
	switch {
	case err == nil:
		e.log.Debug("rx", "msg", msg.Name(), "frame", f.String())
		e.car.Lock(func(s *vehicle.State) { s.UpdateState(msg) })
		return
	case errors.Is(err, errcode.UnknownMessage):
		e.log.Debug("rx unknown", "frame", f.String())
	default:
		e.log.Error("decode failed", "frame", f.String(), "err", err)
	}
}
