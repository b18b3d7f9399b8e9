package can

import (
	"context"

	"ecusim/x/spsc"
)

// RxChannel carries received frames from interrupt context to one
// consumer task in arrival order.
type RxChannel struct {
	ring *spsc.Ring[Frame]
}

func NewRxChannel(capacity int) *RxChannel {
	if capacity <= 0 {
		capacity = 16
	}
	return &RxChannel{ring: spsc.New[Frame](capacity)}
}

// TryPush is the interrupt side. It never blocks; false means full.
func (c *RxChannel) TryPush(f Frame) bool { return c.ring.TryPush(f) }

// TryRecv returns the oldest frame without waiting.
func (c *RxChannel) TryRecv() (Frame, bool) { return c.ring.TryPop() }

// Recv suspends until a frame is available or ctx is done.
func (c *RxChannel) Recv(ctx context.Context) (Frame, error) {
	for {
		if f, ok := c.ring.TryPop(); ok {
			return f, nil
		}
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-c.ring.Readable():
		}
	}
}

func (c *RxChannel) Len() int { return c.ring.Len() }
func (c *RxChannel) Cap() int { return c.ring.Cap() }
