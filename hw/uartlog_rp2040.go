//go:build rp2040

package hw

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTLog configures UART0 as the log sink and returns it as a writer.
func UARTLog(baud uint32, tx, rx machine.Pin) *uartx.UART {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx})
	return u
}
