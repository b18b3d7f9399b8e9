//go:build !rp2040 && !rp2350

package hw

import "sync"

// FakePin implements IRQPin for host runs and tests.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	output  bool
	irqEdge Edge
	irqFunc func()
	sets    int
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(Pull) error {
	p.mu.Lock()
	p.output = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.output = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

// Set drives the level; an input edge matching the IRQ config calls the
// handler synchronously.
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	p.sets++
	var irq func()
	if irqWanted(p.irqEdge, edgeFrom(old, level)) {
		irq = p.irqFunc
	}
	p.mu.Unlock()
	if irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.output
}

// Sets counts calls to Set, e.g. PWM toggles.
func (p *FakePin) Sets() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sets
}

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge, p.irqFunc = edge, handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error { return p.SetIRQ(EdgeNone, nil) }

func edgeFrom(old, new bool) Edge {
	switch {
	case !old && new:
		return EdgeRising
	case old && !new:
		return EdgeFalling
	}
	return EdgeNone
}

func irqWanted(cfg, seen Edge) bool {
	if seen == EdgeNone {
		return false
	}
	return cfg == EdgeBoth || cfg == seen
}

// FakePins returns stable *FakePin instances per number.
type FakePins struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakePins() *FakePins { return &FakePins{pins: make(map[int]*FakePin)} }

func (f *FakePins) ByNumber(n int) (Pin, bool) { return f.Get(n), true }

// Get returns the fake for n, creating it on first use.
func (f *FakePins) Get(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}
