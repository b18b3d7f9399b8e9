//go:build rp2040

package hw

import (
	"context"
	"errors"
	"machine"
	"sync"
	"time"

	"tinygo.org/x/drivers/mcp2515"

	"ecusim/can"
	"ecusim/errcode"
)

// MCP2515Config selects the SPI wiring of the controller.
type MCP2515Config struct {
	SPI   *machine.SPI
	SCK   machine.Pin
	SDO   machine.Pin
	SDI   machine.Pin
	CS    machine.Pin
	INT   machine.Pin
	Speed byte // mcp2515.CAN500kBps etc.
	Clock byte // mcp2515.Clock8MHz etc.
}

// MCP2515 drives an SPI CAN controller as a can.Controller.
//
// The driver exposes no interrupt flags, so the chip's transmit buffers
// are the mailbox: a frame the driver accepts counts as sent and
// completion is raised straight away so the queue keeps them topped up.
// When all buffers are busy the next poll tick retries through a
// TxComplete.
type MCP2515 struct {
	mu      sync.Mutex // serialises SPI
	dev     *mcp2515.Device
	pending can.IRQ
	retry   txRetry
	irq     chan struct{}
}

func OpenMCP2515(cfg MCP2515Config) (*MCP2515, error) {
	if cfg.SPI == nil {
		cfg.SPI = machine.SPI0
	}
	if err := cfg.SPI.Configure(machine.SPIConfig{
		Frequency: 1_000_000,
		SCK:       cfg.SCK,
		SDO:       cfg.SDO,
		SDI:       cfg.SDI,
		Mode:      0,
	}); err != nil {
		return nil, err
	}
	dev := mcp2515.New(cfg.SPI, cfg.CS)
	dev.Configure()
	if err := dev.Begin(cfg.Speed, cfg.Clock); err != nil {
		return nil, errcode.Wrap(errcode.Error, "mcp2515.begin", err)
	}
	m := &MCP2515{dev: dev, irq: make(chan struct{}, 1)}

	cfg.INT.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	// Interrupt context: only signal, the SPI work happens in Serve.
	_ = cfg.INT.SetInterrupt(machine.PinFalling, func(machine.Pin) { m.signal() })
	return m, nil
}

func (m *MCP2515) signal() {
	select {
	case m.irq <- struct{}{}:
	default:
	}
}

func (m *MCP2515) IRQ() <-chan struct{} { return m.irq }

// Poll signals periodically so a missed INT edge or a pending transmit
// retry is still serviced.
func (m *MCP2515) Poll(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.mu.Lock()
			m.retry.tick()
			m.mu.Unlock()
			m.signal()
		}
	}
}

func (m *MCP2515) Transmit(f can.Frame) (can.Frame, bool, error) {
	if f.Extended {
		return can.Frame{}, false, errcode.Unsupported
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.dev.Tx(f.ID, f.Len, f.PayloadBytes()); err != nil {
		m.retry.fail()
		return can.Frame{}, false, can.ErrWouldBlock
	}
	m.pending |= can.IRQTxComplete
	m.signal()
	return can.Frame{}, false, nil
}

// AbortAll drops a pending retry; frames already in chip buffers go out.
func (m *MCP2515) AbortAll() {
	m.mu.Lock()
	m.retry.clear()
	m.mu.Unlock()
}

func (m *MCP2515) TakeIRQ() can.IRQ {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.pending
	m.pending = 0
	if m.retry.take() {
		i |= can.IRQTxComplete
	}
	if m.dev.Received() {
		i |= can.IRQRxNew
	}
	return i
}

var errNoFrame = errors.New("mcp2515: no frame")

func (m *MCP2515) ReceiveFrame() (can.Frame, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dev.Received() {
		return can.Frame{}, false, errNoFrame
	}
	msg, err := m.dev.Rx()
	if err != nil {
		return can.Frame{}, false, err
	}
	f := can.Frame{ID: msg.ID & can.MaxStdID, Len: msg.Dlc}
	if f.Len > can.MaxLen {
		f.Len = can.MaxLen
	}
	copy(f.Data[:], msg.Data)
	return f, false, nil
}
