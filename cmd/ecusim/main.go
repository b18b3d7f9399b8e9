//go:build !rp2040 && !rp2350

// Command ecusim runs the emulator on a Linux host against a SocketCAN
// interface, or fully in memory with -sim.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ecusim/can"
	"ecusim/hw"
	"ecusim/services/config"
	"ecusim/services/emulator"
	"ecusim/x/logx"
	"ecusim/x/timex"
)

func main() {
	board := flag.String("board", "host", "embedded board defaults (host, sim)")
	cfgPath := flag.String("config", "", "JSON config overlay file")
	iface := flag.String("if", "", "CAN interface (overrides config)")
	sim := flag.Bool("sim", false, "run against an in-memory bus with a simulated battery peer")
	ig1 := flag.Bool("ig1", false, "sim: hold the ignition switch on")
	level := flag.String("log", "", "log level (overrides config)")
	flag.Parse()

	if *sim && *board == "host" {
		*board = "sim"
	}
	os.Exit(run(*board, *cfgPath, *iface, *sim, *ig1, *level))
}

func run(board, cfgPath, iface string, sim, ig1 bool, level string) int {
	var raw []byte
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			slog.Error("read config", "err", err)
			return 2
		}
		raw = b
	}
	cfg, err := config.ForBoard(board, raw)
	if err != nil {
		slog.Error("config", "err", err)
		return 2
	}
	if iface != "" {
		cfg.CAN.Interface = iface
	}
	if level != "" {
		cfg.LogLevel = level
	}
	log := logx.New(os.Stderr, cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := timex.System()
	fakes := hw.NewFakePins()
	if sim && cfg.Pins.IG1 < 0 {
		cfg.Pins.IG1 = 0
	}
	pins, err := hw.OpenPins(fakes, cfg.Pins)
	if err != nil {
		log.Error("pins", "err", err)
		return 2
	}

	var ctl can.Controller
	var peer *emulator.Peer
	if sim {
		s := can.NewSim(can.SimOptions{
			FIFODepth:    16,
			AutoComplete: true,
			OnTransmit:   func(f can.Frame) { peer.Observe(f) },
		})
		peer = emulator.NewPeer(clock, log.With("task", "peer"), s)
		ctl = s
		if ig1 {
			fakes.Get(cfg.Pins.IG1).Set(!cfg.Pins.InvertInputs)
		}
	} else {
		sc, err := hw.OpenSocketCAN(ctx, cfg.CAN.Interface, log.With("task", "socketcan"))
		if err != nil {
			log.Error("socketcan", "if", cfg.CAN.Interface, "err", err)
			return 1
		}
		defer sc.Close()
		ctl = sc
	}

	emu, err := emulator.New(emulator.Options{
		Config:     cfg,
		Clock:      clock,
		Logger:     log,
		Controller: ctl,
		Pins:       pins,
	})
	if err != nil {
		log.Error("emulator", "err", err)
		return 2
	}
	if peer != nil {
		go func() { _ = peer.Run(ctx) }()
	}

	err = emu.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("stopped")
		return 0
	default:
		log.Error("emulator halted", "err", err)
		return 1
	}
}
