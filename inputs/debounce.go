// Package inputs samples the slow local inputs (ignition switch, brake
// switch, EV-ready and charge lock) and folds debounced edges into the
// vehicle state.
package inputs

// Edge is a debounced level change.
type Edge uint8

const (
	NoEdge Edge = iota
	Rising
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "none"
}

// Debouncer reports an edge once n consecutive samples disagree with the
// settled level. The settled level starts low.
type Debouncer struct {
	n     int
	run   int
	level bool
}

func NewDebouncer(n int) *Debouncer {
	if n < 1 {
		n = 1
	}
	return &Debouncer{n: n}
}

// Update feeds one sample.
func (d *Debouncer) Update(sample bool) Edge {
	if sample == d.level {
		d.run = 0
		return NoEdge
	}
	d.run++
	if d.run < d.n {
		return NoEdge
	}
	d.run = 0
	d.level = sample
	if sample {
		return Rising
	}
	return Falling
}

// Level is the settled level.
func (d *Debouncer) Level() bool { return d.level }
