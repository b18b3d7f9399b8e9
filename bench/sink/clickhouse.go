package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ecusim/can"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

// Record is one captured frame.
type Record struct {
	At        time.Time
	Interface string
	Frame     can.Frame
}

// ClickHouse batches captured frames into inserts.
type ClickHouse struct {
	conn  driver.Conn
	table string
	size  int

	mu    sync.Mutex
	batch []Record
}

func NewClickHouse(ctx context.Context, cfg ClickHouseConfig, batchSize int) (*ClickHouse, error) {
	if cfg.Table == "" {
		cfg.Table = "can_frames"
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if err := conn.Exec(ctx, createTableSQL(cfg.Table)); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}
	return &ClickHouse{conn: conn, table: cfg.Table, size: batchSize, batch: make([]Record, 0, batchSize)}, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			timestamp DateTime64(6),
			interface String,
			can_id UInt32,
			extended Bool,
			data Array(UInt8)
		) ENGINE = MergeTree()
		ORDER BY (timestamp, can_id)
		PARTITION BY toYYYYMMDD(timestamp)
		TTL toDateTime(timestamp) + INTERVAL 1 MONTH`, table)
}

// Add queues r and flushes once the batch is full.
func (w *ClickHouse) Add(ctx context.Context, r Record) error {
	w.mu.Lock()
	w.batch = append(w.batch, r)
	full := len(w.batch) >= w.size
	w.mu.Unlock()
	if full {
		return w.Flush(ctx)
	}
	return nil
}

// Flush sends everything queued.
func (w *ClickHouse) Flush(ctx context.Context) error {
	w.mu.Lock()
	recs := w.batch
	w.batch = make([]Record, 0, w.size)
	w.mu.Unlock()
	if len(recs) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.table)
	if err != nil {
		return fmt.Errorf("clickhouse prepare: %w", err)
	}
	for _, r := range recs {
		if err := batch.Append(r.At, r.Interface, r.Frame.ID, r.Frame.Extended, r.Frame.PayloadBytes()); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse send: %w", err)
	}
	return nil
}

func (w *ClickHouse) Close(ctx context.Context) error {
	err := w.Flush(ctx)
	if cerr := w.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
