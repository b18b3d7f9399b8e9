package timex

import (
	"context"
	"testing"
	"time"
)

func TestInstantArithmetic(t *testing.T) {
	i := Instant(1000)
	if got := i.Add(250 * time.Millisecond); got != 1250 {
		t.Fatalf("Add = %d", got)
	}
	if got := Instant(1250).Sub(i); got != 250*time.Millisecond {
		t.Fatalf("Sub = %v", got)
	}
	if !i.Before(1001) || i.After(1001) {
		t.Fatal("ordering")
	}
}

func TestPeriodFromHz(t *testing.T) {
	cases := map[uint32]time.Duration{
		0:   time.Second,
		1:   time.Second,
		10:  100 * time.Millisecond,
		100: 10 * time.Millisecond,
	}
	for hz, want := range cases {
		if got := PeriodFromHz(hz); got != want {
			t.Fatalf("PeriodFromHz(%d) = %v, want %v", hz, got, want)
		}
	}
}

func TestVirtualSleepJumps(t *testing.T) {
	v := NewVirtual(0)
	if err := v.SleepUntil(context.Background(), 40); err != nil {
		t.Fatal(err)
	}
	if v.Now() != 40 {
		t.Fatalf("now = %d", v.Now())
	}
	// Sleeping into the past is a no-op.
	_ = v.SleepUntil(context.Background(), 10)
	if v.Now() != 40 {
		t.Fatalf("now moved backwards: %d", v.Now())
	}
}

func TestManualWakesOnAdvance(t *testing.T) {
	m := NewManual(0)
	done := make(chan error, 1)
	go func() { done <- m.SleepUntil(context.Background(), 100) }()

	for m.Sleepers() == 0 {
		time.Sleep(time.Millisecond)
	}
	m.Advance(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("woke early")
	case <-time.After(10 * time.Millisecond):
	}
	m.Advance(50 * time.Millisecond)
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("sleeper not woken")
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.SleepUntil(ctx, 100) }()
	for m.Sleepers() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("err = %v", err)
	}
	if m.Sleepers() != 0 {
		t.Fatal("cancelled sleeper not removed")
	}
}
