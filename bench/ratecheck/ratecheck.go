// Package ratecheck measures per-identifier frame timing on a live bus
// against the emulator's schedule.
package ratecheck

import (
	"slices"
	"sync"
	"time"

	"ecusim/pcan"
)

// Stats summarise the inter-arrival times of one identifier.
type Stats struct {
	ID       uint32
	Count    int
	Expected time.Duration // zero if the id has no known period
	Mean     time.Duration
	Min      time.Duration
	Max      time.Duration
	// Jitter is the largest deviation of one interval from Expected.
	Jitter time.Duration
	// Drift is the span of the observation minus the span the schedule
	// predicts for the same number of frames.
	Drift time.Duration
}

type acc struct {
	first, last time.Time
	n           int
	sum         time.Duration
	min, max    time.Duration
	jitter      time.Duration
}

// Checker accumulates arrivals. It is safe for concurrent use.
type Checker struct {
	mu       sync.Mutex
	expected map[uint32]time.Duration
	per      map[uint32]*acc
}

func New(expected map[uint32]time.Duration) *Checker {
	return &Checker{expected: expected, per: make(map[uint32]*acc)}
}

// Observe records a frame with identifier id seen at at.
func (c *Checker) Observe(id uint32, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.per[id]
	if !ok {
		c.per[id] = &acc{first: at, last: at, n: 1}
		return
	}
	d := at.Sub(a.last)
	a.last = at
	a.n++
	a.sum += d
	if a.n == 2 || d < a.min {
		a.min = d
	}
	if d > a.max {
		a.max = d
	}
	if exp := c.expected[id]; exp > 0 {
		if j := abs(d - exp); j > a.jitter {
			a.jitter = j
		}
	}
}

// Snapshot returns stats for every id seen, ordered by id.
func (c *Checker) Snapshot() []Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Stats, 0, len(c.per))
	for id, a := range c.per {
		s := Stats{ID: id, Count: a.n, Expected: c.expected[id], Min: a.min, Max: a.max, Jitter: a.jitter}
		if a.n > 1 {
			s.Mean = a.sum / time.Duration(a.n-1)
			if s.Expected > 0 {
				s.Drift = a.last.Sub(a.first) - s.Expected*time.Duration(a.n-1)
			}
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Stats) int { return int(a.ID) - int(b.ID) })
	return out
}

// Reset forgets every observation.
func (c *Checker) Reset() {
	c.mu.Lock()
	c.per = make(map[uint32]*acc)
	c.mu.Unlock()
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Schedule is the period of every frame the emulator sends with the
// ignition On.
func Schedule() map[uint32]time.Duration {
	const (
		hz1   = time.Second
		hz5   = 200 * time.Millisecond
		hz10  = 100 * time.Millisecond
		hz20  = 50 * time.Millisecond
		hz50  = 20 * time.Millisecond
		hz100 = 10 * time.Millisecond
	)
	return map[uint32]time.Duration{
		pcan.IDIGPMCharge:    hz10,
		pcan.IDIGPMBody:      hz10,
		pcan.IDClock:         hz10,
		pcan.IDChargePort:    hz10,
		pcan.IDGatewayStatus: hz10,
		pcan.IDIGPM5DF:       hz5,
		pcan.IDIGPM553:       hz5,
		pcan.IDOdometer:      hz1,
		pcan.IDHUDATC:        hz1,
		pcan.IDAirbag:        hz1,
		pcan.IDTCSStatus:     hz10,
		pcan.IDParkingBrake:  hz20,
		pcan.IDTCSMed:        hz50,
		pcan.IDWheelSpeed:    hz50,
		pcan.IDWheelPulse:    hz50,
		pcan.IDTCSFast:       hz100,
		pcan.IDBrakePedal:    hz100,
		pcan.IDBrakeAux:      hz100,
		pcan.IDStability:     hz100,
		pcan.IDSCU:           hz100,
	}
}
