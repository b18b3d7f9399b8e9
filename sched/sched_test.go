package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecusim/errcode"
	"ecusim/x/timex"
)

func TestRatePeriod(t *testing.T) {
	if d, err := Hz50.Period(); err != nil || d != 20*time.Millisecond {
		t.Fatalf("50Hz = %v %v", d, err)
	}
	for _, r := range []Rate{0, 3, 7, 2000} {
		if _, err := r.Period(); !errors.Is(err, errcode.InvalidRate) {
			t.Fatalf("rate %d accepted", r)
		}
	}
	base, err := BaseTick(Hz1, Hz5, Hz10, Hz20, Hz50, Hz100)
	if err != nil || base != 10*time.Millisecond {
		t.Fatalf("base = %v %v", base, err)
	}
	if base, _ := BaseTick(Hz1, Hz5); base != 200*time.Millisecond {
		t.Fatalf("base(1,5) = %v", base)
	}
}

func TestPeriodNoDrift(t *testing.T) {
	const T0 = 1234
	p := NewPeriod(T0, 20*time.Millisecond)
	var dues []timex.Instant
	for now := timex.Instant(T0); now < T0+1000; now++ {
		if p.Due(now) {
			dues = append(dues, now)
		}
	}
	if len(dues) != 50 {
		t.Fatalf("dues = %d", len(dues))
	}
	for k, at := range dues {
		if want := timex.Instant(T0 + 20*k); at != want {
			t.Fatalf("due %d at %d, want %d", k, at, want)
		}
	}
}

func TestPeriodBoundedCatchUp(t *testing.T) {
	p := NewPeriod(0, 10*time.Millisecond)
	if !p.Due(0) {
		t.Fatal("first due at epoch")
	}
	// Not polled for 35ms (> 2P): exactly one due, then re-anchored.
	if !p.Due(35) {
		t.Fatal("should be due after stall")
	}
	if p.Due(35) || p.Due(44) {
		t.Fatal("burst after stall")
	}
	if p.Deadline() != 45 {
		t.Fatalf("next = %d, want now+P = 45", p.Deadline())
	}
	if p.Lagged() != 1 {
		t.Fatalf("lagged = %d", p.Lagged())
	}
	// Late by less than one period keeps the original grid.
	q := NewPeriod(0, 10*time.Millisecond)
	q.Due(0)
	q.Due(17)
	if q.Deadline() != 20 {
		t.Fatalf("next = %d, want 20", q.Deadline())
	}
}

func TestPeriodOnePeriodBehindKeepsGrid(t *testing.T) {
	p := NewPeriod(0, 10*time.Millisecond)
	p.Due(0)
	// Polled exactly one period late: the grid is kept and the missed
	// deadline is still due at the same instant.
	if !p.Due(20) {
		t.Fatal("should be due")
	}
	if p.Deadline() != 20 || p.Lagged() != 0 {
		t.Fatalf("next = %d lagged = %d, want 20 and 0", p.Deadline(), p.Lagged())
	}
	if !p.Due(20) || p.Deadline() != 30 {
		t.Fatalf("catch-up tick missing, next = %d", p.Deadline())
	}
	if p.Due(20) {
		t.Fatal("more than one catch-up tick")
	}
}

func TestGroupTicksOnGrid(t *testing.T) {
	clk := timex.NewVirtual(500)
	g, err := NewGroup(clk, nil, Hz10, Hz100)
	if err != nil {
		t.Fatal(err)
	}
	slow, _ := g.NewPeriod(Hz10)
	ctx := context.Background()
	var slowDue []timex.Instant
	for i := 0; i < 100; i++ {
		tick, err := g.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if want := timex.Instant(500 + 10*i); tick != want {
			t.Fatalf("tick %d = %d, want %d", i, tick, want)
		}
		if slow.Due(tick) {
			slowDue = append(slowDue, tick)
		}
	}
	if len(slowDue) != 10 || slowDue[3] != 800 {
		t.Fatalf("10Hz dues %v", slowDue)
	}
}

func TestGroupSkipsMissedTicks(t *testing.T) {
	clk := timex.NewVirtual(0)
	g, _ := NewGroup(clk, nil, Hz100)
	ctx := context.Background()
	g.Next(ctx) // 0
	clk.Advance(45 * time.Millisecond)
	tick, _ := g.Next(ctx)
	if tick != 40 {
		t.Fatalf("tick = %d, want latest grid point 40", tick)
	}
	if g.Missed() != 3 {
		t.Fatalf("missed = %d", g.Missed())
	}
	tick, _ = g.Next(ctx)
	if tick != 50 {
		t.Fatalf("tick after skip = %d", tick)
	}
}

func TestGroupRejectsOffGridPeriod(t *testing.T) {
	g, _ := NewGroup(timex.NewVirtual(0), nil, Hz10)
	if _, err := g.NewPeriod(Hz100); err == nil {
		t.Fatal("10ms period on a 100ms base accepted")
	}
}

func TestRepeaterReportsDueRates(t *testing.T) {
	clk := timex.NewVirtual(0)
	r, err := NewRepeater(clk, nil, Hz1, Hz10)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	counts := map[Rate]int{}
	for clk.Now() < 1000 {
		due, err := r.Tick(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, rate := range due.Rates() {
			counts[rate]++
		}
	}
	// Ticks at 0,100,...,1000: the 1Hz rate is due at 0 and 1000.
	if counts[Hz10] != 11 || counts[Hz1] != 2 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestRepeaterFilteredAndLag(t *testing.T) {
	clk := timex.NewVirtual(0)
	r, _ := NewRepeater(clk, nil, Hz10, Hz100)
	ctx := context.Background()
	due, _ := r.TickFiltered(ctx, SetOf(Hz10))
	if !due.Has(Hz10) || due.Has(Hz100) {
		t.Fatalf("due = %v", due.Rates())
	}
	clk.Advance(350 * time.Millisecond)
	due, _ = r.TickFiltered(ctx, SetOf(Hz10))
	if !due.Has(Hz10) {
		t.Fatal("late tick should still fire once")
	}
	next, _ := r.TickFiltered(ctx, SetOf(Hz10))
	if !next.Has(Hz10) || clk.Now() != 450 {
		t.Fatalf("re-anchored tick at %d, want 450", clk.Now())
	}
	if _, err := NewRepeater(clk, nil, 7); err == nil {
		t.Fatal("non-standard rate accepted")
	}
}

func TestEvery(t *testing.T) {
	clk := timex.NewVirtual(100)
	e, err := NewEvery(clk, Hz50)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for k := 0; k < 5; k++ {
		at, err := e.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if want := timex.Instant(100 + 20*k); at != want {
			t.Fatalf("k=%d at %d want %d", k, at, want)
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Next(ctx); err == nil {
		t.Fatal("cancelled Next returned nil")
	}
}
