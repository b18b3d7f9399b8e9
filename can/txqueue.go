package can

import (
	"container/heap"
	"errors"
	"log/slog"
	"sync"

	"ecusim/errcode"
	"ecusim/x/logx"
)

// ErrWouldBlock is returned by a Mailbox when no hardware buffer is free.
var ErrWouldBlock = errcode.WouldBlock

// Mailbox is the hardware transmit resource.
type Mailbox interface {
	// Transmit hands f to hardware. If every buffer is busy the driver may
	// replace a lower priority pending frame with f and return it as
	// displaced (replaced == true); otherwise it returns ErrWouldBlock.
	Transmit(f Frame) (displaced Frame, replaced bool, err error)
	// AbortAll cancels every pending hardware transmission.
	AbortAll()
}

// TxStats counts transmit queue activity.
type TxStats struct {
	Transmitted uint32 // frames handed to hardware
	Queued      uint32 // frames pushed to the software heap
	Requeued    uint32 // frames displaced from hardware and pushed back
	Overflows   uint32 // times the heap was found full and reset
	Dropped     uint32 // frames lost to overflow resets or hardware errors
}

// TxQueue orders outgoing frames by bus priority in front of a single
// hardware mailbox. Submit never blocks the caller.
type TxQueue struct {
	mu    sync.Mutex
	hw    Mailbox
	h     frameHeap
	cap   int
	log   *slog.Logger
	stats TxStats
}

// NewTxQueue returns a queue holding up to capacity waiting frames.
func NewTxQueue(hw Mailbox, capacity int, log *slog.Logger) *TxQueue {
	if capacity <= 0 {
		capacity = 32
	}
	if log == nil {
		log = logx.Discard()
	}
	return &TxQueue{
		hw:  hw,
		h:   make(frameHeap, 0, capacity),
		cap: capacity,
		log: log,
	}
}

// Submit transmits f directly if hardware is free, otherwise queues it.
func (q *TxQueue) Submit(f Frame) {
	q.mu.Lock()
	q.transmitLocked(f)
	q.mu.Unlock()
}

// SubmitAll submits frames in one critical section.
func (q *TxQueue) SubmitAll(fs ...Frame) {
	q.mu.Lock()
	for _, f := range fs {
		q.transmitLocked(f)
	}
	q.mu.Unlock()
}

// Transmit converts t to a frame and submits it.
func (q *TxQueue) Transmit(t Transmittable) error {
	f, err := FromTransmittable(t)
	if err != nil {
		q.log.Error("can tx invalid frame", "id", t.Identifier(), "err", err)
		return err
	}
	q.Submit(f)
	return nil
}

// OnTxComplete is called from the transmit-complete interrupt: the best
// queued frame, if any, goes to hardware.
func (q *TxQueue) OnTxComplete() {
	q.mu.Lock()
	if q.h.Len() > 0 {
		f := heap.Pop(&q.h).(Frame)
		q.transmitLocked(f)
	}
	q.mu.Unlock()
}

// Len returns the number of frames waiting in software.
func (q *TxQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

func (q *TxQueue) Cap() int { return q.cap }

func (q *TxQueue) Stats() TxStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *TxQueue) transmitLocked(f Frame) {
	if err := f.Validate(); err != nil {
		q.stats.Dropped++
		q.log.Error("can tx invalid frame", "id", f.ID, "err", err)
		return
	}
	displaced, replaced, err := q.hw.Transmit(f)
	switch {
	case err == nil:
		q.stats.Transmitted++
		logx.Trace(q.log, "can tx", "frame", f.String())
		if replaced {
			// Preserve the pending frame that hardware gave back.
			q.stats.Requeued++
			q.pushLocked(displaced)
		}
	case errors.Is(err, ErrWouldBlock):
		q.pushLocked(f)
	default:
		q.stats.Dropped++
		q.log.Error("can tx hardware error", "id", f.ID, "err", err)
	}
}

func (q *TxQueue) pushLocked(f Frame) {
	if q.h.Len() >= q.cap {
		// Everything we send is a periodic snapshot that is only useful
		// while fresh, and a full queue means the bus is not draining:
		// drop all pending work rather than deliver it late.
		dropped := q.h.Len() + 1
		q.h = q.h[:0]
		q.hw.AbortAll()
		q.stats.Overflows++
		q.stats.Dropped += uint32(dropped)
		q.log.Warn("can tx queue overflow", "dropped", dropped, "overflows", q.stats.Overflows)
		return
	}
	heap.Push(&q.h, f)
	q.stats.Queued++
}

// frameHeap is a min-heap on Priority(), so the winning frame is on top.
type frameHeap []Frame

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].Priority() < h[j].Priority() }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *frameHeap) Push(x any)        { *h = append(*h, x.(Frame)) }
func (h *frameHeap) Pop() any {
	old := *h
	n := len(old)
	f := old[n-1]
	*h = old[:n-1]
	return f
}
