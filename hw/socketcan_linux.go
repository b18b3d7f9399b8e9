//go:build linux && !baremetal

package hw

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"ecusim/can"
	"ecusim/errcode"
	"ecusim/x/logx"
)

// Error frame classes and controller status bits (linux/can/error.h).
const (
	canErrCrtl         = 0x00000004
	canErrBusOff       = 0x00000040
	canErrCrtlRxPassiv = 0x10
	canErrCrtlTxPassiv = 0x20
)

// SocketCAN is a Linux raw CAN socket presented as a can.Controller.
//
// The socket receives its own frames back (CAN_RAW_RECV_OWN_MSGS); the
// echo of the frame in flight is the transmit-complete interrupt. A
// reader goroutine plays the interrupt context.
type SocketCAN struct {
	fd    int
	iface string
	log   *slog.Logger

	mu      sync.Mutex
	echo    echoTracker
	fifo    []can.Frame
	depth   int
	overrun bool
	pending can.IRQ
	irq     chan struct{}
	done    chan struct{}
}

// OpenSocketCAN binds a raw socket to iface and starts its reader.
func OpenSocketCAN(ctx context.Context, iface string, log *slog.Logger) (*SocketCAN, error) {
	if log == nil {
		log = logx.Discard()
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	fail := func(what string, err error) (*SocketCAN, error) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 0); err != nil && err != unix.ENOPROTOOPT {
		return fail("disable CAN FD", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, 1); err != nil {
		return fail("recv own msgs", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, canErrCrtl|canErrBusOff); err != nil {
		return fail("error filter", err)
	}
	tv := unix.NsecToTimeval((100 * time.Millisecond).Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fail("rcvtimeo", err)
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return fail(fmt.Sprintf("if %q", iface), err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		return fail(fmt.Sprintf("bind(can@%s)", iface), err)
	}

	s := &SocketCAN{
		fd:    fd,
		iface: iface,
		log:   log,
		depth: 64,
		irq:   make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.readLoop(ctx)
	log.Info("socketcan open", "iface", iface)
	return s, nil
}

// Close stops the reader and releases the socket.
func (s *SocketCAN) Close() error {
	err := unix.Close(s.fd)
	<-s.done
	return err
}

func (s *SocketCAN) IRQ() <-chan struct{} { return s.irq }

func (s *SocketCAN) raiseLocked(i can.IRQ) {
	s.pending |= i
	select {
	case s.irq <- struct{}{}:
	default:
	}
}

func (s *SocketCAN) Transmit(f can.Frame) (can.Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.echo.busy() {
		return can.Frame{}, false, can.ErrWouldBlock
	}
	var buf [unix.CAN_MTU]byte
	id := f.ID
	if f.Extended {
		id |= unix.CAN_EFF_FLAG
	}
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:], f.PayloadBytes())
	if _, err := unix.Write(s.fd, buf[:]); err != nil {
		if errors.Is(err, unix.ENOBUFS) || errors.Is(err, unix.EAGAIN) {
			return can.Frame{}, false, can.ErrWouldBlock
		}
		return can.Frame{}, false, err
	}
	s.echo.sent(f)
	return can.Frame{}, false, nil
}

// AbortAll forgets the frame in flight. The kernel queue cannot be
// cancelled, so its echo is swallowed if it still arrives.
func (s *SocketCAN) AbortAll() {
	s.mu.Lock()
	s.echo.abort()
	s.mu.Unlock()
}

func (s *SocketCAN) TakeIRQ() can.IRQ {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.pending
	s.pending = 0
	if len(s.fifo) > 0 {
		i |= can.IRQRxNew
	}
	return i
}

func (s *SocketCAN) ReceiveFrame() (can.Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fifo) == 0 {
		return can.Frame{}, false, errcode.Wrap(errcode.Error, "socketcan.rx", errors.New("fifo empty"))
	}
	f := s.fifo[0]
	s.fifo = s.fifo[1:]
	ov := s.overrun
	s.overrun = false
	return f, ov, nil
}

func (s *SocketCAN) readLoop(ctx context.Context) {
	defer close(s.done)
	var buf [unix.CAN_MTU]byte
	for ctx.Err() == nil {
		n, _, flags, _, err := unix.Recvmsg(s.fd, buf[:], nil, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EBADF) {
				return
			}
			s.log.Error("socketcan read", "iface", s.iface, "err", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n != unix.CAN_MTU {
			continue
		}
		raw := binary.LittleEndian.Uint32(buf[0:4])
		dlc := buf[4]
		if dlc > can.MaxLen {
			dlc = can.MaxLen
		}

		f := can.Frame{Extended: raw&unix.CAN_EFF_FLAG != 0, Len: dlc}
		if f.Extended {
			f.ID = raw & unix.CAN_EFF_MASK
		} else {
			f.ID = raw & unix.CAN_SFF_MASK
		}
		copy(f.Data[:], buf[8:8+dlc])

		s.mu.Lock()
		switch {
		case raw&unix.CAN_ERR_FLAG != 0:
			s.onErrorFrameLocked(raw, buf[8:16])
		case flags&unix.MSG_CONFIRM != 0:
			if s.echo.confirm(f) {
				s.raiseLocked(can.IRQTxComplete)
			}
		default:
			if len(s.fifo) >= s.depth {
				s.fifo = s.fifo[1:]
				s.overrun = true
			}
			s.fifo = append(s.fifo, f)
			s.raiseLocked(can.IRQRxNew)
		}
		s.mu.Unlock()
	}
}

func (s *SocketCAN) onErrorFrameLocked(class uint32, data []byte) {
	if class&canErrBusOff != 0 {
		s.raiseLocked(can.IRQBusOff)
		return
	}
	if class&canErrCrtl != 0 && data[1]&(canErrCrtlRxPassiv|canErrCrtlTxPassiv) != 0 {
		s.raiseLocked(can.IRQErrPassive)
	}
}
