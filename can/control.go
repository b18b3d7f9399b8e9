package can

import (
	"context"
	"log/slog"
	"sync"

	"ecusim/errcode"
	"ecusim/x/logx"
)

// IRQ is a set of pending controller interrupt causes.
type IRQ uint8

const (
	IRQRxNew IRQ = 1 << iota
	IRQTxComplete
	IRQErrPassive
	IRQBusOff
)

func (i IRQ) Has(f IRQ) bool { return i&f != 0 }

// Controller is one CAN peripheral as seen from interrupt context.
type Controller interface {
	Mailbox
	// TakeIRQ returns and clears the pending causes. IRQRxNew stays
	// asserted while the receive FIFO is not empty.
	TakeIRQ() IRQ
	// ReceiveFrame pops one frame from the hardware FIFO. overrun reports
	// that hardware lost frames before this one.
	ReceiveFrame() (f Frame, overrun bool, err error)
	// IRQ is signalled whenever new causes become pending.
	IRQ() <-chan struct{}
}

// Options configure Init.
type Options struct {
	TxCapacity         int
	RxCapacity         int
	HaltOnErrorPassive bool
	Logger             *slog.Logger
	// OnFault receives the first fatal fault. Nil panics, which halts a
	// board the same way a firmware fault would.
	OnFault func(error)
}

// Control dispatches controller interrupts to the queues.
type Control struct {
	hw   Controller
	tx   *TxQueue
	rx   *RxChannel
	log  *slog.Logger
	halt bool

	faultOnce sync.Once
	onFault   func(error)
	mu        sync.Mutex
	fault     error
}

// Init wires hw to a fresh transmit queue and receive channel.
func Init(hw Controller, opts Options) (*Control, *RxChannel, *TxQueue) {
	log := opts.Logger
	if log == nil {
		log = logx.Discard()
	}
	c := &Control{
		hw:      hw,
		tx:      NewTxQueue(hw, opts.TxCapacity, log),
		rx:      NewRxChannel(opts.RxCapacity),
		log:     log,
		halt:    opts.HaltOnErrorPassive,
		onFault: opts.OnFault,
	}
	return c, c.rx, c.tx
}

// OnIRQ services one interrupt. It reports whether anything was pending.
func (c *Control) OnIRQ() bool {
	irq := c.hw.TakeIRQ()
	if irq == 0 {
		return false
	}
	if irq.Has(IRQRxNew) {
		c.onRx()
	}
	if irq.Has(IRQTxComplete) {
		c.tx.OnTxComplete()
	}
	if irq.Has(IRQErrPassive) {
		c.log.Error("can error passive")
		if c.halt {
			c.raise(errcode.Wrap(errcode.ErrorPassive, "can.irq", nil))
		}
	}
	if irq.Has(IRQBusOff) {
		c.log.Error("can bus off")
		c.raise(errcode.Wrap(errcode.BusOff, "can.irq", nil))
	}
	return true
}

func (c *Control) onRx() {
	f, overrun, err := c.hw.ReceiveFrame()
	if err != nil {
		c.log.Error("can rx", "err", err)
		return
	}
	if overrun {
		// Frames were lost in hardware; this one is still good.
		c.log.Error("can rx overrun")
	}
	logx.Trace(c.log, "can rx", "frame", f.String())
	if !c.rx.TryPush(f) {
		c.raise(errcode.Wrap(errcode.RxOverflow, "can.rx", nil))
	}
}

func (c *Control) raise(err error) {
	c.faultOnce.Do(func() {
		c.mu.Lock()
		c.fault = err
		c.mu.Unlock()
		c.log.Error("can fault", "code", errcode.Of(err), "err", err)
		if c.onFault == nil {
			panic(err)
		}
		c.onFault(err)
	})
}

// Fault returns the first fatal fault, if any.
func (c *Control) Fault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

// Serve runs the interrupt context: each signal from the controller
// services causes until none remain.
func (c *Control) Serve(ctx context.Context) error {
	irq := c.hw.IRQ()
	for {
		for c.OnIRQ() {
			if c.Fault() != nil {
				return c.Fault()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-irq:
		}
	}
}
