package hw

import (
	"testing"

	"ecusim/can"
)

func TestEchoCompletesFrameInFlight(t *testing.T) {
	var e echoTracker
	a := can.MustStandard(0x100, []byte{1})
	e.sent(a)
	if !e.busy() {
		t.Fatal("not busy after send")
	}
	if e.confirm(can.MustStandard(0x200, []byte{1})) {
		t.Fatal("foreign echo completed the transmit")
	}
	if !e.confirm(a) || e.busy() {
		t.Fatal("own echo did not complete the transmit")
	}
	if e.confirm(a) {
		t.Fatal("duplicate echo completed twice")
	}
}

func TestLateEchoAfterAbortIsSwallowed(t *testing.T) {
	var e echoTracker
	old := can.MustStandard(0x100, []byte{1})
	next := can.MustStandard(0x101, []byte{2})
	e.sent(old)
	e.abort()
	if e.busy() {
		t.Fatal("abort left a frame in flight")
	}
	e.sent(next)
	if e.confirm(old) {
		t.Fatal("aborted frame's echo completed the next transmit")
	}
	if !e.busy() {
		t.Fatal("next frame lost its in-flight state")
	}
	if !e.confirm(next) {
		t.Fatal("next frame never completed")
	}
}

func TestIdenticalFrameAfterAbort(t *testing.T) {
	var e echoTracker
	f := can.MustStandard(0x100, []byte{1})
	e.sent(f)
	e.abort()
	e.sent(f)
	if e.confirm(f) {
		t.Fatal("first echo belongs to the aborted copy")
	}
	if !e.confirm(f) {
		t.Fatal("second echo should complete the resend")
	}
}

func TestAbortedEchoesAreBounded(t *testing.T) {
	var e echoTracker
	for i := 0; i < maxAborted+2; i++ {
		e.sent(can.MustStandard(uint32(0x100+i), nil))
		e.abort()
	}
	if len(e.aborted) != maxAborted {
		t.Fatalf("aborted = %d, want %d", len(e.aborted), maxAborted)
	}
}
