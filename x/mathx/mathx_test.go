package mathx

import "testing"

func TestClamp(t *testing.T) {
	if Clamp(5, 1, 3) != 3 || Clamp(-1, 1, 3) != 1 || Clamp(2, 3, 1) != 2 {
		t.Fatal("clamp")
	}
}

func TestGCD(t *testing.T) {
	cases := []struct {
		in   []uint32
		want uint32
	}{
		{[]uint32{1000, 200, 100, 50, 20, 10}, 10},
		{[]uint32{100, 10}, 10},
		{[]uint32{1000, 100}, 100},
		{[]uint32{200, 50}, 50},
		{[]uint32{30, 20}, 10},
		{[]uint32{7}, 7},
		{nil, 0},
	}
	for _, c := range cases {
		if got := GCDOf(c.in...); got != c.want {
			t.Fatalf("GCDOf(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRoundDivAbsDiff(t *testing.T) {
	if RoundDiv[uint32](7, 2) != 4 || RoundDiv[uint32](5, 0) != 0 {
		t.Fatal("RoundDiv")
	}
	if AbsDiff[uint16](3, 10) != 7 || AbsDiff[uint16](10, 3) != 7 {
		t.Fatal("AbsDiff")
	}
}
