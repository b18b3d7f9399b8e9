//go:build rp2040

// Command ecusim-pico is the emulator firmware for a Pico with an
// MCP2515 CAN module on SPI0.
package main

import (
	"context"
	"machine"
	"time"

	"tinygo.org/x/drivers/mcp2515"

	"ecusim/hw"
	"ecusim/services/config"
	"ecusim/services/emulator"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[ecusim] boot")

	cfg, err := config.ForBoard("pico", nil)
	if err != nil {
		panic(err)
	}
	uart := hw.UARTLog(115200, machine.UART0_TX_PIN, machine.UART0_RX_PIN)
	log := logx.New(uart, cfg.Level())

	pins, err := hw.OpenPins(hw.NewPinFactory(), cfg.Pins)
	if err != nil {
		panic(err)
	}

	mcp, err := hw.OpenMCP2515(hw.MCP2515Config{
		SPI:   machine.SPI0,
		SCK:   machine.GPIO18,
		SDO:   machine.GPIO19,
		SDI:   machine.GPIO16,
		CS:    machine.GPIO17,
		INT:   machine.GPIO20,
		Speed: mcp2515.CAN500kBps,
		Clock: mcp2515.Clock8MHz,
	})
	if err != nil {
		panic(err)
	}
	println("[ecusim] can up")

	ctx := context.Background()
	go mcp.Poll(ctx, time.Millisecond)

	emu, err := emulator.New(emulator.Options{
		Config:     cfg,
		Clock:      timex.System(),
		Logger:     log,
		Controller: mcp,
		Pins:       pins,
	})
	if err != nil {
		panic(err)
	}
	// A fatal bus fault halts the board.
	panic(emu.Run(ctx))
}
