package fresh

import (
	"testing"
	"time"

	"ecusim/x/timex"
)

func TestNeverSetIsStale(t *testing.T) {
	clk := timex.NewVirtual(0)
	f := New[uint16](clk, time.Second)
	if _, ok := f.Get(); ok {
		t.Fatal("never-set value must be stale")
	}
	if _, ok := f.GetUnchecked(); ok {
		t.Fatal("never-set value has no unchecked value")
	}
	if f.String() != "Stale(None)" {
		t.Fatalf("String = %q", f.String())
	}
}

func TestFreshnessWindow(t *testing.T) {
	windows := []time.Duration{time.Millisecond, 7 * time.Millisecond, time.Second, 3 * time.Second}
	for _, w := range windows {
		clk := timex.NewVirtual(500)
		f := New[int](clk, w)
		f.Set(42)
		setAt := clk.Now()

		// Fresh for all t in [T, T+W).
		for clk.Now().Sub(setAt) < w {
			if v, ok := f.Get(); !ok || v != 42 {
				t.Fatalf("window %v: stale at age %v", w, clk.Now().Sub(setAt))
			}
			step := w / 5
			if step < time.Millisecond {
				step = time.Millisecond
			}
			clk.Advance(step)
		}
		// Stale for t >= T+W.
		clk = timex.NewVirtual(500)
		f = New[int](clk, w)
		f.Set(42)
		clk.Advance(w)
		if _, ok := f.Get(); ok {
			t.Fatalf("window %v: fresh at age == window", w)
		}
		clk.Advance(time.Hour)
		if _, ok := f.Get(); ok {
			t.Fatalf("window %v: fresh long after window", w)
		}
		if v, ok := f.GetUnchecked(); !ok || v != 42 {
			t.Fatalf("unchecked lost value: %v %v", v, ok)
		}
	}
}

func TestSetRefreshes(t *testing.T) {
	clk := timex.NewVirtual(0)
	f := New[bool](clk, 100*time.Millisecond)
	f.Set(true)
	clk.Advance(90 * time.Millisecond)
	f.Set(false)
	clk.Advance(90 * time.Millisecond)
	if v, ok := f.Get(); !ok || v {
		t.Fatalf("got %v %v", v, ok)
	}
	if age, _ := f.Age(); age != 90*time.Millisecond {
		t.Fatalf("age = %v", age)
	}
	clk.Advance(10 * time.Millisecond)
	if f.IsFresh() || f.String() != "Stale(false)" {
		t.Fatalf("expected stale, String = %q", f.String())
	}
}
