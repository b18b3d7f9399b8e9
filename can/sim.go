package can

import (
	"errors"
	"sync"
)

// SimOptions configure a SimController.
type SimOptions struct {
	// FIFODepth is the hardware receive FIFO depth (default 3).
	FIFODepth int
	// Displace lets Transmit replace a lower priority in-flight frame.
	Displace bool
	// AutoComplete finishes every transmission immediately.
	AutoComplete bool
	// OnTransmit observes every frame that completes on the bus.
	OnTransmit func(Frame)
}

// SimController is an in-memory controller with one transmit mailbox.
// It backs tests and the host -sim mode.
type SimController struct {
	mu       sync.Mutex
	opts     SimOptions
	inFlight *Frame
	fifo     []Frame
	overrun  bool
	pending  IRQ
	irq      chan struct{}
	sent     []Frame
	aborts   int
}

func NewSim(opts SimOptions) *SimController {
	if opts.FIFODepth <= 0 {
		opts.FIFODepth = 3
	}
	return &SimController{opts: opts, irq: make(chan struct{}, 1)}
}

func (s *SimController) IRQ() <-chan struct{} { return s.irq }

func (s *SimController) raiseLocked(i IRQ) {
	s.pending |= i
	select {
	case s.irq <- struct{}{}:
	default:
	}
}

func (s *SimController) Transmit(f Frame) (Frame, bool, error) {
	s.mu.Lock()
	if s.inFlight != nil {
		if s.opts.Displace && f.Outranks(*s.inFlight) {
			old := *s.inFlight
			s.inFlight = &f
			s.mu.Unlock()
			return old, true, nil
		}
		s.mu.Unlock()
		return Frame{}, false, ErrWouldBlock
	}
	s.inFlight = &f
	var done func(Frame)
	if s.opts.AutoComplete {
		done = s.completeLocked()
	}
	s.mu.Unlock()
	if done != nil {
		done(f)
	}
	return Frame{}, false, nil
}

// Complete finishes the in-flight transmission, as the bus would after
// winning arbitration. It returns false if nothing was in flight.
func (s *SimController) Complete() (Frame, bool) {
	s.mu.Lock()
	if s.inFlight == nil {
		s.mu.Unlock()
		return Frame{}, false
	}
	f := *s.inFlight
	done := s.completeLocked()
	s.mu.Unlock()
	if done != nil {
		done(f)
	}
	return f, true
}

func (s *SimController) completeLocked() func(Frame) {
	s.sent = append(s.sent, *s.inFlight)
	s.inFlight = nil
	s.raiseLocked(IRQTxComplete)
	return s.opts.OnTransmit
}

func (s *SimController) AbortAll() {
	s.mu.Lock()
	s.inFlight = nil
	s.aborts++
	s.mu.Unlock()
}

// Inject delivers f as if received from the bus. A full FIFO drops its
// oldest frame and flags an overrun.
func (s *SimController) Inject(f Frame) {
	s.mu.Lock()
	if len(s.fifo) >= s.opts.FIFODepth {
		s.fifo = s.fifo[1:]
		s.overrun = true
	}
	s.fifo = append(s.fifo, f)
	s.raiseLocked(IRQRxNew)
	s.mu.Unlock()
}

func (s *SimController) InjectErrorPassive() {
	s.mu.Lock()
	s.raiseLocked(IRQErrPassive)
	s.mu.Unlock()
}

func (s *SimController) InjectBusOff() {
	s.mu.Lock()
	s.raiseLocked(IRQBusOff)
	s.mu.Unlock()
}

func (s *SimController) TakeIRQ() IRQ {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.pending
	s.pending = 0
	if len(s.fifo) > 0 {
		i |= IRQRxNew
	}
	return i
}

var errFIFOEmpty = errors.New("rx fifo empty")

func (s *SimController) ReceiveFrame() (Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fifo) == 0 {
		return Frame{}, false, errFIFOEmpty
	}
	f := s.fifo[0]
	s.fifo = s.fifo[1:]
	ov := s.overrun
	s.overrun = false
	return f, ov, nil
}

// InFlight returns the frame occupying the mailbox.
func (s *SimController) InFlight() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		return Frame{}, false
	}
	return *s.inFlight, true
}

// Sent returns a copy of every completed frame in bus order.
func (s *SimController) Sent() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.sent...)
}

func (s *SimController) Aborts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborts
}
