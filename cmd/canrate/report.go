//go:build linux

package main

import (
	"context"
	"log/slog"
	"time"

	"ecusim/bench/ratecheck"
	"ecusim/bench/sink"
)

func report(ctx context.Context, log *slog.Logger, c *ratecheck.Checker, influx *sink.Influx, ch *sink.ClickHouse, iface string, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		stats := c.Snapshot()
		c.Reset()
		for _, s := range stats {
			if s.Expected == 0 {
				log.Debug("unscheduled id", "id", s.ID, "count", s.Count)
				continue
			}
			log.Info("rate",
				"id", s.ID,
				"count", s.Count,
				"mean", s.Mean,
				"jitter", s.Jitter,
				"drift", s.Drift,
			)
		}
		if influx != nil {
			if err := influx.WriteStats(ctx, iface, time.Now(), stats); err != nil {
				log.Warn("influx", "err", err)
			}
		}
		if ch != nil {
			if err := ch.Flush(ctx); err != nil {
				log.Warn("clickhouse", "err", err)
			}
		}
	}
}
