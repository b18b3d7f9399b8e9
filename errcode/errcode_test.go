package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"would_block":     WouldBlock,
		"tx_overflow":     TxOverflow,
		"rx_overflow":     RxOverflow,
		"error_passive":   ErrorPassive,
		"bus_off":         BusOff,
		"diagnostic_id":   DiagnosticID,
		"unknown_message": UnknownMessage,
		"bad_length":      BadLength,
		"invalid_rate":    InvalidRate,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestFatal(t *testing.T) {
	for _, c := range []Code{BusOff, RxOverflow} {
		if !Fatal(c) {
			t.Fatalf("%s should be fatal", c)
		}
	}
	for _, c := range []Code{WouldBlock, TxOverflow, ErrorPassive, DecodeFailed, RxOverrun} {
		if Fatal(c) {
			t.Fatalf("%s should not be fatal", c)
		}
	}
}

func TestOfAndIs(t *testing.T) {
	cause := errors.New("socket gone")
	e := Wrap(BusOff, "can.irq", cause)

	if got := Of(e); got != BusOff {
		t.Fatalf("Of(*E) = %s", got)
	}
	wrapped := fmt.Errorf("emulator: %w", e)
	if got := Of(wrapped); got != BusOff {
		t.Fatalf("Of(wrapped) = %s", got)
	}
	if !errors.Is(wrapped, BusOff) {
		t.Fatal("errors.Is should match the bare code")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("errors.Is should reach the cause")
	}
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be OK")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("plain errors map to Error")
	}
	if got := e.Error(); got != "can.irq: bus_off: socket gone" {
		t.Fatalf("Error() = %q", got)
	}
}
