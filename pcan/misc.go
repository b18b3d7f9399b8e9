package pcan

import (
	"encoding/binary"

	"ecusim/can"
)

// Frames seen on the bus whose sender is not known for certain. Most are
// constant and are replayed as logged.
const (
	ID412 = 0x412
	ID450 = 0x450
	ID45C = 0x45C
	ID45D = 0x45D
	ID45E = 0x45E
	ID462 = 0x462
	ID471 = 0x471
	ID4FE = 0x4FE
	ID50D = 0x50D
	ID520 = 0x520
	ID559 = 0x559
	ID55C = 0x55C
	ID55F = 0x55F
	ID561 = 0x561
	ID578 = 0x578
	ID593 = 0x593
	ID5B3 = 0x5B3
	ID5CA = 0x5CA
)

var (
	Zeroes412 = can.MustStandard(ID412, make([]byte, 8))
	Zeroes45C = can.MustStandard(ID45C, make([]byte, 8))
	Zeroes45D = can.MustStandard(ID45D, make([]byte, 8))
	Zeroes45E = can.MustStandard(ID45E, make([]byte, 8))
	Zeroes520 = can.MustStandard(ID520, make([]byte, 8))
	Zeroes55F = can.MustStandard(ID55F, make([]byte, 8))
	Zeroes578 = can.MustStandard(ID578, make([]byte, 6))

	Speed450 = can.MustStandard(ID450, []byte{0x00, 0x00, 0x04, 0x18, 0, 0, 0, 0})
	Frame462 = can.MustStandard(ID462, []byte{0xFE, 0x3F, 0xFF, 0x1F, 0xF0, 0x1F, 0x00, 0x00})
	Frame471 = can.MustStandard(ID471, []byte{0x14, 0x00, 0x10, 0x00, 0x00, 0x0C})
	Frame4FE = can.MustStandard(ID4FE, []byte{0xFF, 0xFF, 0x7F, 0xFF, 0xFF, 0x00, 0xFF, 0xFF})
	Park559  = can.MustStandard(ID559, make([]byte, 8))
	Frame55C = can.MustStandard(ID55C, []byte{0x07, 0x1F, 0x14, 0xFF, 0x01, 0x00, 0x00, 0x00})
	Frame561 = can.MustStandard(ID561, []byte{0x05, 0x60, 0x00, 0x07, 0x80, 0x00, 0x0F, 0x00})
	Frame593 = can.MustStandard(ID593, []byte{0x24, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00})
	Frame5CA = can.MustStandard(ID5CA, []byte{0x00, 0x00, 0x00, 0xFE, 0xFE, 0x50, 0x00, 0x00})
)

// Uptime50D carries a slow IG3-on counter in bytes 6..7, little endian.
func Uptime50D(tens uint16) can.Frame {
	d := []byte{0x00, 0x00, 0x30, 0x01, 0x50, 0x00, 0x00, 0x00}
	binary.LittleEndian.PutUint16(d[6:], tens)
	return can.MustStandard(ID50D, d)
}

// PowerState is the module power phase reported in 0x5B3.
type PowerState uint8

const (
	PowerOff          PowerState = 0x0
	PowerGoingToSleep PowerState = 0x1
	PowerOn           PowerState = 0x2
	PowerUnset        PowerState = 0xF
)

// Power5B3 packs the power phase into byte 0 low nibble, an IG3 flag into
// the high nibble and a woken marker into byte 1.
func Power5B3(state PowerState, ig3, woken bool) can.Frame {
	d := []byte{0x00, 0xFF, 0xFF, 0x0F, 0, 0, 0, 0}
	d[0] = uint8(state) & 0x0F
	if ig3 {
		d[0] |= 0x10
	}
	if woken {
		d[1] = 0x10
	}
	return can.MustStandard(ID5B3, d)
}
