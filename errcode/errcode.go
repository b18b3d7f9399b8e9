package errcode

// Code is a stable fault identifier used in logs and fault reports.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// CAN transport
	WouldBlock   Code = "would_block"
	TxOverflow   Code = "tx_overflow"
	RxOverflow   Code = "rx_overflow"
	RxOverrun    Code = "rx_overrun"
	ErrorPassive Code = "error_passive"
	BusOff       Code = "bus_off"
	InvalidFrame Code = "invalid_frame"

	// Inbound decoding
	DecodeFailed   Code = "decode_failed"
	DiagnosticID   Code = "diagnostic_id"
	UnknownMessage Code = "unknown_message"
	BadLength      Code = "bad_length"

	// Setup
	InvalidRate   Code = "invalid_rate"
	InvalidConfig Code = "invalid_config"
	NoBitTiming   Code = "no_bit_timing"
	Unsupported   Code = "unsupported"

	Error Code = "error" // generic fallback
)

// Fatal reports whether a fault with this code must halt the emulator.
// Continuing over a faulted bus or with a consumer that cannot keep up
// would present invalid state to the unit under test.
func Fatal(c Code) bool {
	switch c {
	case BusOff, RxOverflow:
		return true
	}
	return false
}

// E wraps a Code with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E for op with code c and cause err.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return Of(u.Unwrap())
	}
	return Error
}
