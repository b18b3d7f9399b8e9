//go:build linux

// Command canrate monitors a live bus, reports per-identifier timing
// against the emulator schedule and optionally exports to InfluxDB and
// ClickHouse.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	brutella "github.com/brutella/can"
	"golang.org/x/sys/unix"

	"ecusim/bench/ratecheck"
	"ecusim/bench/sink"
	"ecusim/can"
	"ecusim/x/logx"
)

func main() {
	ifname := flag.String("if", "can0", "CAN interface")
	every := flag.Duration("report", 5*time.Second, "report interval")
	influxURL := flag.String("influx-url", "", "InfluxDB v3 URL (empty disables)")
	influxToken := flag.String("influx-token", "", "InfluxDB token")
	influxDB := flag.String("influx-db", "ecusim", "InfluxDB database")
	chAddr := flag.String("clickhouse", "", "ClickHouse host:port for raw frames (empty disables)")
	chDB := flag.String("clickhouse-db", "default", "ClickHouse database")
	chUser := flag.String("clickhouse-user", "default", "ClickHouse user")
	chPass := flag.String("clickhouse-password", "", "ClickHouse password")
	level := flag.String("log", "info", "log level")
	flag.Parse()

	log := logx.New(os.Stderr, logx.ParseLevel(*level))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	iface, err := net.InterfaceByName(*ifname)
	if err != nil {
		log.Error("interface", "if", *ifname, "err", err)
		os.Exit(1)
	}
	conn, err := brutella.NewReadWriteCloserForInterface(iface)
	if err != nil {
		log.Error("open can", "if", *ifname, "err", err)
		os.Exit(1)
	}
	bus := brutella.NewBus(conn)

	var influx *sink.Influx
	if *influxURL != "" {
		if influx, err = sink.NewInflux(sink.InfluxConfig{URL: *influxURL, Token: *influxToken, Database: *influxDB}); err != nil {
			log.Error("influx", "err", err)
			os.Exit(1)
		}
		defer influx.Close()
	}
	var ch *sink.ClickHouse
	if *chAddr != "" {
		ch, err = sink.NewClickHouse(ctx, sink.ClickHouseConfig{
			Addr: *chAddr, Database: *chDB, Username: *chUser, Password: *chPass,
		}, 1000)
		if err != nil {
			log.Error("clickhouse", "err", err)
			os.Exit(1)
		}
		defer ch.Close(context.Background())
	}

	checker := ratecheck.New(ratecheck.Schedule())
	bus.SubscribeFunc(func(bf brutella.Frame) {
		f, ok := fromBrutella(bf)
		if !ok {
			return
		}
		now := time.Now()
		checker.Observe(f.ID, now)
		if ch != nil {
			if err := ch.Add(ctx, sink.Record{At: now, Interface: *ifname, Frame: f}); err != nil {
				log.Warn("clickhouse", "err", err)
			}
		}
	})

	go func() {
		<-ctx.Done()
		_ = bus.Disconnect()
	}()
	go report(ctx, log, checker, influx, ch, *ifname, *every)

	log.Info("monitoring", "if", *ifname)
	if err := bus.ConnectAndPublish(); err != nil && ctx.Err() == nil {
		log.Error("bus", "err", err)
		os.Exit(1)
	}
}

// fromBrutella converts a raw SocketCAN frame, skipping error and
// remote frames.
func fromBrutella(bf brutella.Frame) (can.Frame, bool) {
	if bf.ID&(unix.CAN_ERR_FLAG|unix.CAN_RTR_FLAG) != 0 {
		return can.Frame{}, false
	}
	f := can.Frame{Len: bf.Length, Data: bf.Data}
	if bf.ID&unix.CAN_EFF_FLAG != 0 {
		f.ID, f.Extended = bf.ID&unix.CAN_EFF_MASK, true
	} else {
		f.ID = bf.ID & unix.CAN_SFF_MASK
	}
	if f.Validate() != nil {
		return can.Frame{}, false
	}
	return f, true
}
