// Package can holds the CAN transport core: classic frames, the priority
// ordered transmit queue, the interrupt-to-task receive channel and the
// interrupt dispatcher that ties them to one hardware controller.
package can

import (
	"strconv"

	"ecusim/errcode"
)

// Frame is a classic CAN 2.0 data frame (no FD, no RTR).
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool   // true for 29-bit identifier
	Len      uint8  // 0..8
	Data     [8]byte
}

// Validation limits.
const (
	MaxStdID = 0x7FF
	MaxExtID = 0x1FFFFFFF
	MaxLen   = 8
)

// Transmittable is anything that can be put on the bus.
type Transmittable interface {
	Identifier() uint32
	PayloadBytes() []byte
}

// NewStandard builds an 11-bit frame. It fails on out of range id or data.
func NewStandard(id uint32, data []byte) (Frame, error) {
	return newFrame(id, false, data)
}

// NewExtended builds a 29-bit frame.
func NewExtended(id uint32, data []byte) (Frame, error) {
	return newFrame(id, true, data)
}

// MustStandard is NewStandard for constant frames; it panics if invalid.
func MustStandard(id uint32, data []byte) Frame {
	f, err := NewStandard(id, data)
	if err != nil {
		panic(err)
	}
	return f
}

func newFrame(id uint32, ext bool, data []byte) (Frame, error) {
	if len(data) > MaxLen {
		return Frame{}, errcode.InvalidFrame
	}
	f := Frame{ID: id, Extended: ext, Len: uint8(len(data))}
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// FromTransmittable converts any transmittable value into a Frame.
// Identifiers above 0x7FF are sent extended.
func FromTransmittable(t Transmittable) (Frame, error) {
	id := t.Identifier()
	return newFrame(id, id > MaxStdID, t.PayloadBytes())
}

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.Len > MaxLen {
		return errcode.InvalidFrame
	}
	if f.Extended && f.ID > MaxExtID || !f.Extended && f.ID > MaxStdID {
		return errcode.InvalidFrame
	}
	return nil
}

func (f Frame) Identifier() uint32 { return f.ID }

// PayloadBytes returns the valid part of Data.
func (f Frame) PayloadBytes() []byte {
	n := f.Len
	if n > MaxLen {
		n = MaxLen
	}
	return f.Data[:n]
}

// Priority is the arbitration key of the frame: lower wins. It orders by
// the 11-bit base identifier, then standard before extended, then by the
// 18-bit identifier extension.
func (f Frame) Priority() uint32 {
	if !f.Extended {
		return (f.ID & MaxStdID) << 19
	}
	base := (f.ID >> 18) & MaxStdID
	return base<<19 | 1<<18 | f.ID&0x3FFFF
}

// Outranks reports whether f wins arbitration against g. Frames with
// equal priority are interchangeable.
func (f Frame) Outranks(g Frame) bool { return f.Priority() < g.Priority() }

// String renders "123 [2] DE AD" (extended ids as 8 hex digits).
func (f Frame) String() string {
	const hexd = "0123456789ABCDEF"
	width := 3
	if f.Extended {
		width = 8
	}
	id := strconv.FormatUint(uint64(f.ID), 16)
	b := make([]byte, 0, 16+3*MaxLen)
	for i := len(id); i < width; i++ {
		b = append(b, '0')
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c >= 'a' {
			c -= 'a' - 'A'
		}
		b = append(b, c)
	}
	b = append(b, " ["...)
	b = strconv.AppendUint(b, uint64(f.Len), 10)
	b = append(b, ']')
	for _, d := range f.PayloadBytes() {
		b = append(b, ' ', hexd[d>>4], hexd[d&0xF])
	}
	return string(b)
}
