package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":  LevelTrace,
		"DEBUG":  slog.LevelDebug,
		"info":   slog.LevelInfo,
		" warn ": slog.LevelWarn,
		"error":  slog.LevelError,
		"bogus":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFiltersAndNamesTrace(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelTrace)
	Trace(l, "raw rx", "id", 0x123)
	l.Info("ignition", "to", "On")
	out := buf.String()
	if !strings.Contains(out, "level=TRACE") || !strings.Contains(out, "msg=\"raw rx\"") {
		t.Fatalf("missing trace line: %s", out)
	}

	buf.Reset()
	l = New(&buf, slog.LevelInfo)
	Trace(l, "raw rx")
	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	l := rec.Logger()
	l.Warn("tx queue overflow", "dropped", 32)
	l.Warn("tx queue overflow", "dropped", 32)
	if rec.Count(slog.LevelWarn, "tx queue overflow") != 2 {
		t.Fatal("expected two warn records")
	}
	if rec.Has(slog.LevelError, "tx queue overflow") {
		t.Fatal("level must match")
	}
	rec.Reset()
	if rec.Has(slog.LevelWarn, "tx queue overflow") {
		t.Fatal("reset did not clear")
	}
	Discard().Error("nothing")
}
