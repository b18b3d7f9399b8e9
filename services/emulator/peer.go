package emulator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ecusim/can"
	"ecusim/pcan"
	"ecusim/sched"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

// Injector accepts frames as if received from the bus.
// *can.SimController implements it.
type Injector interface {
	Inject(f can.Frame)
}

// Peer stands in for the rest of the vehicle in -sim runs. It watches
// the body frame for ignition and answers with a battery module closing
// its contactors, an inverter and a shifter in Park.
type Peer struct {
	clock timex.Clock
	log   *slog.Logger
	in    Injector

	// Precharge and Close are measured from ignition on.
	Precharge time.Duration
	Close     time.Duration

	ignOn atomic.Bool
}

func NewPeer(clock timex.Clock, log *slog.Logger, in Injector) *Peer {
	if log == nil {
		log = logx.Discard()
	}
	return &Peer{
		clock:     clock,
		log:       log,
		in:        in,
		Precharge: 200 * time.Millisecond,
		Close:     700 * time.Millisecond,
	}
}

// Observe is the transmit hook: it sees every frame the emulator puts on
// the bus. It must not block.
func (p *Peer) Observe(f can.Frame) {
	if f.ID == pcan.IDIGPMBody && !f.Extended {
		p.ignOn.Store(f.Data[0]&0x03 == 0x03)
	}
}

// Run sends the peer's status frames at 10 Hz while ignition is on.
func (p *Peer) Run(ctx context.Context) error {
	every, err := sched.NewEvery(p.clock, sched.Hz10)
	if err != nil {
		return err
	}
	var since timex.Instant
	awake := false
	for {
		now, err := every.Next(ctx)
		if err != nil {
			return err
		}
		if !p.ignOn.Load() {
			if awake {
				p.log.Info("peer asleep")
			}
			awake = false
			continue
		}
		if !awake {
			p.log.Info("peer awake")
			awake, since = true, now
		}
		for _, f := range p.frames(now.Sub(since)) {
			p.in.Inject(f)
		}
	}
}

func (p *Peer) frames(on time.Duration) []can.Frame {
	pre := on >= p.Precharge
	closed := on >= p.Close
	var vInv uint16
	if closed {
		vInv = 356
	}
	msgs := []can.Transmittable{
		pcan.PrechargeStatus{PrechargeClosed: pre && !closed},
		pcan.ContactorStatus{ContactorClosed: closed},
		pcan.BatteryStatus{SoCHalfPct: 160, VoltageDeci: 3560},
		pcan.InverterStatus{Voltage: vInv},
		pcan.MotorStatus{},
		pcan.GearStatus{Gear: pcan.Park},
	}
	out := make([]can.Frame, 0, len(msgs))
	for _, m := range msgs {
		f, err := can.FromTransmittable(m)
		if err != nil {
			p.log.Error("peer frame", "err", err)
			continue
		}
		out = append(out, f)
	}
	return out
}
