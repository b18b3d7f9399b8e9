package logx

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder is an slog.Handler that keeps every record, for tests and
// for the host console tail.
type Recorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func NewRecorder() *Recorder { return &Recorder{} }

// Logger returns a logger backed by the recorder.
func (r *Recorder) Logger() *slog.Logger { return slog.New(r) }

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	// slog reuses the record during processing; keep a copy of the attrs.
	nr := slog.Record{Time: rec.Time, Level: rec.Level, PC: rec.PC, Message: rec.Message}
	rec.Attrs(func(a slog.Attr) bool { nr.AddAttrs(a); return true })
	r.mu.Lock()
	r.records = append(r.records, nr)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *Recorder) WithGroup(string) slog.Handler      { return r }

// Has reports whether a record with this level and message was logged.
func (r *Recorder) Has(level slog.Level, msg string) bool {
	return r.Count(level, msg) > 0
}

// Count returns how many records match level and message.
func (r *Recorder) Count(level slog.Level, msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Level == level && rec.Message == msg {
			n++
		}
	}
	return n
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
