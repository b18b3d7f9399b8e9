// Package sink exports bench measurements: rate statistics to InfluxDB
// and raw frames to ClickHouse.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"

	"ecusim/bench/ratecheck"
)

type InfluxConfig struct {
	URL      string
	Token    string
	Database string
}

// Influx writes one point per identifier per report.
type Influx struct {
	client *influxdb3.Client
}

func NewInflux(cfg InfluxConfig) (*Influx, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     cfg.URL,
		Token:    cfg.Token,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("influxdb client: %w", err)
	}
	return &Influx{client: client}, nil
}

// WriteStats stores stats under the can_rate measurement.
func (w *Influx) WriteStats(ctx context.Context, iface string, at time.Time, stats []ratecheck.Stats) error {
	if len(stats) == 0 {
		return nil
	}
	if err := w.client.WritePoints(ctx, statPoints(iface, at, stats)); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}
	return nil
}

func statPoints(iface string, at time.Time, stats []ratecheck.Stats) []*influxdb3.Point {
	points := make([]*influxdb3.Point, 0, len(stats))
	for _, s := range stats {
		points = append(points, influxdb3.NewPoint(
			"can_rate",
			map[string]string{
				"interface": iface,
				"can_id":    fmt.Sprintf("0x%03X", s.ID),
			},
			map[string]any{
				"count":       int64(s.Count),
				"expected_us": s.Expected.Microseconds(),
				"mean_us":     s.Mean.Microseconds(),
				"min_us":      s.Min.Microseconds(),
				"max_us":      s.Max.Microseconds(),
				"jitter_us":   s.Jitter.Microseconds(),
				"drift_us":    s.Drift.Microseconds(),
			},
			at,
		))
	}
	return points
}

func (w *Influx) Close() error { return w.client.Close() }
