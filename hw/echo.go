package hw

import (
	"bytes"

	"ecusim/can"
)

// maxAborted bounds how many aborted frames may still echo back.
const maxAborted = 4

// echoTracker matches transmit echoes against the single frame in
// flight. Echoes of aborted frames are swallowed so they cannot complete
// a later transmit.
type echoTracker struct {
	flight   can.Frame
	inFlight bool
	aborted  []can.Frame
}

func (e *echoTracker) busy() bool { return e.inFlight }

func (e *echoTracker) sent(f can.Frame) {
	e.flight, e.inFlight = f, true
}

// abort forgets the frame in flight but remembers it until its echo
// arrives.
func (e *echoTracker) abort() {
	if !e.inFlight {
		return
	}
	if len(e.aborted) == maxAborted {
		e.aborted = e.aborted[1:]
	}
	e.aborted = append(e.aborted, e.flight)
	e.inFlight = false
}

// confirm reports whether echo completes the frame in flight.
func (e *echoTracker) confirm(echo can.Frame) bool {
	for i, a := range e.aborted {
		if sameFrame(a, echo) {
			e.aborted = append(e.aborted[:i], e.aborted[i+1:]...)
			return false
		}
	}
	if e.inFlight && sameFrame(e.flight, echo) {
		e.inFlight = false
		return true
	}
	return false
}

func sameFrame(a, b can.Frame) bool {
	return a.ID == b.ID && a.Extended == b.Extended && a.Len == b.Len &&
		bytes.Equal(a.PayloadBytes(), b.PayloadBytes())
}
