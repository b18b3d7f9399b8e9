// Package config loads the emulator configuration: embedded per-board
// defaults overlaid with an optional JSON document.
package config

import (
	"encoding/json"
	"log/slog"
	"time"

	"ecusim/bus"
	"ecusim/can"
	"ecusim/errcode"
	"ecusim/hw"
	"ecusim/inputs"
	"ecusim/vehicle"
	"ecusim/x/logx"
	"ecusim/x/mathx"
)

const configPrefix = "config"

// CAN configures the bus and the controller queues.
type CAN struct {
	Bitrate            uint32 `json:"bitrate"`
	ClockHz            uint32 `json:"clock_hz"`
	TxCapacity         int    `json:"tx_capacity"`
	RxCapacity         int    `json:"rx_capacity"`
	Interface          string `json:"interface"`
	HaltOnErrorPassive bool   `json:"halt_on_error_passive"`
}

// StaleMs holds the validity windows in milliseconds.
type StaleMs struct {
	Contactor   int `json:"contactor"`
	Precharge   int `json:"precharge"`
	Gear        int `json:"gear"`
	Battery     int `json:"battery"`
	Inverter    int `json:"inverter"`
	MotorRPM    int `json:"motor_rpm"`
	IG3Evidence int `json:"ig3_evidence"`
	BusRx       int `json:"bus_rx"`
}

type Inputs struct {
	PollMs            int `json:"poll_ms"`
	IG1Samples        int `json:"ig1_samples"`
	BrakeSamples      int `json:"brake_samples"`
	EVReadySamples    int `json:"ev_ready_samples"`
	ChargeLockSamples int `json:"charge_lock_samples"`
}

type Config struct {
	Board                    string    `json:"board"`
	LogLevel                 string    `json:"log_level"`
	CAN                      CAN       `json:"can"`
	Stale                    StaleMs   `json:"stale_ms"`
	Inputs                   Inputs    `json:"inputs"`
	StatusIntervalMs         int       `json:"status_interval_ms"`
	IgnitionRequiresLiveness bool      `json:"ignition_requires_liveness"`
	Pins                     hw.Layout `json:"pins"`
}

// Default is the configuration with nothing connected.
func Default() Config {
	return Config{
		Board:    "host",
		LogLevel: "info",
		CAN: CAN{
			Bitrate:    500_000,
			ClockHz:    8_000_000,
			TxCapacity: 32,
			RxCapacity: 16,
			Interface:  "can0",
		},
		Stale: StaleMs{
			Contactor:   3000,
			Precharge:   3000,
			Gear:        1000,
			Battery:     2000,
			Inverter:    1000,
			MotorRPM:    1000,
			IG3Evidence: 2000,
			BusRx:       1000,
		},
		Inputs: Inputs{
			PollMs:            10,
			IG1Samples:        5,
			BrakeSamples:      3,
			EVReadySamples:    5,
			ChargeLockSamples: 3,
		},
		StatusIntervalMs: 2000,
		Pins: hw.Layout{
			IG1: -1, Brake: -1, EVReady: -1, ChargeLock: -1,
			RelayIG3: -1, LEDIgn: -1, ACUCrash: -1, SCUPark: -1,
		},
	}
}

// Decode overlays raw onto base. Fields absent from raw keep their base
// value. The result is normalised.
func Decode(base Config, raw []byte) (Config, error) {
	cfg := base
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.decode", Err: err}
		}
	}
	return cfg.normalise()
}

// ForBoard returns the embedded defaults for board overlaid with raw.
func ForBoard(board string, raw []byte) (Config, error) {
	base := Default()
	if emb, ok := EmbeddedConfigLookup(board); ok {
		var err error
		if base, err = Decode(base, emb); err != nil {
			return Config{}, err
		}
	} else if board != "" && board != base.Board {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.board", Msg: "unknown board " + board}
	}
	return Decode(base, raw)
}

func (c Config) normalise() (Config, error) {
	if c.CAN.Bitrate == 0 {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.can", Msg: "bitrate is zero"}
	}
	c.CAN.TxCapacity = mathx.Clamp(c.CAN.TxCapacity, 4, 256)
	c.CAN.RxCapacity = mathx.Clamp(c.CAN.RxCapacity, 4, 256)

	for _, ms := range []*int{
		&c.Stale.Contactor, &c.Stale.Precharge, &c.Stale.Gear, &c.Stale.Battery,
		&c.Stale.Inverter, &c.Stale.MotorRPM, &c.Stale.IG3Evidence, &c.Stale.BusRx,
	} {
		*ms = mathx.Clamp(*ms, 50, 60_000)
	}

	c.Inputs.PollMs = mathx.Clamp(c.Inputs.PollMs, 1, 100)
	for _, n := range []*int{
		&c.Inputs.IG1Samples, &c.Inputs.BrakeSamples,
		&c.Inputs.EVReadySamples, &c.Inputs.ChargeLockSamples,
	} {
		*n = mathx.Clamp(*n, 1, 50)
	}
	c.StatusIntervalMs = mathx.Clamp(c.StatusIntervalMs, 100, 600_000)
	return c, nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c Config) Staleness() vehicle.Staleness {
	return vehicle.Staleness{
		Contactor:   ms(c.Stale.Contactor),
		Precharge:   ms(c.Stale.Precharge),
		Gear:        ms(c.Stale.Gear),
		Battery:     ms(c.Stale.Battery),
		Inverter:    ms(c.Stale.Inverter),
		MotorRPM:    ms(c.Stale.MotorRPM),
		IG3Evidence: ms(c.Stale.IG3Evidence),
		BusRx:       ms(c.Stale.BusRx),
	}
}

func (c Config) InputConfig() inputs.Config {
	return inputs.Config{
		Poll:              ms(c.Inputs.PollMs),
		IG1Samples:        c.Inputs.IG1Samples,
		BrakeSamples:      c.Inputs.BrakeSamples,
		EVReadySamples:    c.Inputs.EVReadySamples,
		ChargeLockSamples: c.Inputs.ChargeLockSamples,
	}
}

func (c Config) StatusInterval() time.Duration { return ms(c.StatusIntervalMs) }

func (c Config) Level() slog.Level { return logx.ParseLevel(c.LogLevel) }

// BitTiming derives the controller bit timing for the configured clock.
func (c Config) BitTiming() (can.BitTiming, error) {
	return can.ComputeBitTiming(c.CAN.ClockHz, c.CAN.Bitrate)
}

// CANOptions maps the CAN section onto can.Init options.
func (c Config) CANOptions(log *slog.Logger, onFault func(error)) can.Options {
	return can.Options{
		TxCapacity:         c.CAN.TxCapacity,
		RxCapacity:         c.CAN.RxCapacity,
		HaltOnErrorPassive: c.CAN.HaltOnErrorPassive,
		Logger:             log,
		OnFault:            onFault,
	}
}

// Publish puts every top-level section of cfg on the bus as a retained
// message under config/<section>.
func Publish(conn *bus.Connection, cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}
