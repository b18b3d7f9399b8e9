//go:build !linux || baremetal

package hw

import (
	"context"
	"log/slog"

	"ecusim/can"
	"ecusim/errcode"
)

// SocketCAN is only available on Linux hosts.
type SocketCAN struct{ can.Controller }

func OpenSocketCAN(context.Context, string, *slog.Logger) (*SocketCAN, error) {
	return nil, errcode.Wrap(errcode.Unsupported, "hw.socketcan", nil)
}

func (*SocketCAN) Close() error { return nil }
