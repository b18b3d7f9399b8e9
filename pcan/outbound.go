package pcan

import (
	"encoding/binary"

	"ecusim/can"
)

// Outbound identifiers.
const (
	IDSCU           = 0x10C
	IDTCSFast       = 0x153
	IDStability     = 0x220
	IDBrakePedal    = 0x2A2
	IDBrakeAux      = 0x331
	IDWheelSpeed    = 0x386
	IDWheelPulse    = 0x387
	IDTCSMed        = 0x394
	IDIGPMCharge    = 0x414
	IDParkingBrake  = 0x490
	IDTCSStatus     = 0x507
	IDIGPMBody      = 0x541
	IDIGPM553       = 0x553
	IDClock         = 0x567
	IDGatewayStatus = 0x588
	IDAirbag        = 0x5A0
	IDOdometer      = 0x5D0
	IDHUDATC        = 0x5D3
	IDIGPM5DF       = 0x5DF
	IDChargePort    = 0x5EC
)

// CounterNibbleMax is the top value of a 4-bit live counter.
const CounterNibbleMax = 0xF

// Constant frames.
var (
	IGPMCharge   = can.MustStandard(IDIGPMCharge, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	IGPM5DF      = can.MustStandard(IDIGPM5DF, []byte{0xC5, 0xFF, 0xFF, 0x01, 0, 0, 0, 0})
	IGPM553      = can.MustStandard(IDIGPM553, []byte{0x04, 0, 0, 0, 0, 0, 0x80, 0})
	Odometer     = can.MustStandard(IDOdometer, []byte{0x9D, 0x13, 0x04, 0, 0, 0, 0, 0})
	HUDATC       = can.MustStandard(IDHUDATC, []byte{0x0F, 0, 0, 0, 0, 0, 0, 0})
	AirbagStatus = can.MustStandard(IDAirbag, []byte{0x00, 0x00, 0x00, 0xC0, 0x25, 0x02, 0x91, 0x01})
	TCSStatus    = can.MustStandard(IDTCSStatus, []byte{0x00, 0x00, 0x00, 0x01})
	ParkingBrake = can.MustStandard(IDParkingBrake, []byte{0x00, 0x00, 0x08, 0x21, 0, 0, 0, 0})
)

// IGPMBody is the gateway body status. Byte 2 reports driver door closed
// and seatbelt fastened, both needed before the VCU will select D.
func IGPMBody(ignitionOn bool) can.Frame {
	d := []byte{0x00, 0x00, 0x44, 0x00, 0x08, 0x08, 0x00, 0x00}
	if ignitionOn {
		d[0] = 0x03
		d[7] = 0x0C
	}
	return can.MustStandard(IDIGPMBody, d)
}

// Clock encodes a wall clock of secs since start, flagged valid.
func Clock(secs int64) can.Frame {
	d := []byte{0x02, 0, 0, 0, 1, 0, 0, 0}
	d[3] = uint8(secs % 60)
	d[2] = uint8(secs / 60 % 60)
	d[1] = uint8(secs / 3600 % 24)
	return can.MustStandard(IDClock, d)
}

func ChargePortStatus(locked bool) can.Frame {
	d := make([]byte, 8)
	if locked {
		d[0] = 1
	}
	return can.MustStandard(IDChargePort, d)
}

// GatewayStatus reflects the power state in three opaque bytes.
func GatewayStatus(b0, b1, b2 uint8) can.Frame {
	return can.MustStandard(IDGatewayStatus, []byte{b0, b1, b2, 0, 0, 0, 0, 0})
}

// TCSFast carries two live counters in the low nibbles of bytes 6 and 7.
func TCSFast(c1, c2 uint8) can.Frame {
	d := []byte{0x20, 0x80, 0x10, 0xFF, 0x00, 0xFF, 0x40, 0xEE}
	d[6] = d[6]&0xF0 | c1&0x0F
	d[7] = d[7]&0xF0 | c2&0x0F
	return can.MustStandard(IDTCSFast, d)
}

// NextTCSFastCounter2 advances the second TCS counter, which skips 0x9.
func NextTCSFastCounter2(c uint8) uint8 {
	return CounterUpdateSkip(c, 0x0F, 0x09)
}

// TCSMed carries the driver braking flag (byte 3 bit 4), a counter in
// byte 6 low nibble and a nibble checksum over bytes 0..6 in byte 7 high
// nibble.
func TCSMed(braking bool, counter uint8) can.Frame {
	d := []byte{0x00, 0xE0, 0x00, 0x00, 0xFF, 0x43, 0xB2, 0x98}
	if braking {
		d[3] |= 0x10
	}
	d[6] = d[6]&0xF0 | counter&0x0F
	d[7] &= 0x0F
	d[7] |= ChecksumNibbleNeg(d[:7]) << 4
	return can.MustStandard(IDTCSMed, d)
}

// BrakePedal carries pedal force (bytes 3..4) and a heartbeat bit.
func BrakePedal(braking, heartbeat bool) can.Frame {
	d := []byte{0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if braking {
		binary.LittleEndian.PutUint16(d[3:], 0x101C)
		d[7] = 0x5E
	}
	if heartbeat {
		d[6] |= 0x01
	}
	return can.MustStandard(IDBrakePedal, d)
}

func BrakeAux(braking bool) can.Frame {
	d := []byte{0xF0, 0, 0, 0, 0, 0, 0, 0}
	if braking {
		d[1] = 0xEB
	}
	return can.MustStandard(IDBrakeAux, d)
}

// WheelSpeed carries 2-bit alive counters in the top bits of the first
// two 16-bit wheel speeds.
func WheelSpeed(lsb, msb uint8) can.Frame {
	d := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x80}
	d[1] = d[1]&0x3F | (lsb&0x3)<<6
	d[3] = d[3]&0x3F | (msb&0x3)<<6
	return can.MustStandard(IDWheelSpeed, d)
}

// WheelPulse carries a counter in byte 4 and a byte sum checksum in byte 5.
func WheelPulse(counter uint8) can.Frame {
	d := []byte{0x0A, 0x0D, 0x00, 0x00, 0x00, 0x00, 0x0A, 0x00}
	d[4] = counter & 0x0F
	d[5] = ChecksumSum(d)
	return can.MustStandard(IDWheelPulse, d)
}

// StabilityControl reports zero accelerations and yaw with a counter in
// byte 7 low nibble and (sum^9)&0xF in the high nibble.
func StabilityControl(counter uint8) can.Frame {
	d := make([]byte, 8)
	d[7] = counter & 0x0F
	d[7] |= ((ChecksumSum(d) ^ 0x9) & 0xF) << 4
	return can.MustStandard(IDStability, d)
}

// ParkActuator is the parking pawl state reported by the SCU.
type ParkActuator uint8

const (
	ActuatorInitialising ParkActuator = 1
	ActuatorUnlocked     ParkActuator = 2
	ActuatorMoving       ParkActuator = 3
	ActuatorLocked       ParkActuator = 4
)

func (a ParkActuator) String() string {
	switch a {
	case ActuatorInitialising:
		return "initialising"
	case ActuatorUnlocked:
		return "unlocked"
	case ActuatorMoving:
		return "moving"
	case ActuatorLocked:
		return "locked"
	}
	return "unknown"
}

// SCUStatus carries the actuator state in byte 0, a counter in byte 7 low
// nibble and a nibble checksum in the high nibble.
func SCUStatus(a ParkActuator, counter uint8) can.Frame {
	d := []byte{0x01, 0x00, 0x55, 0x54, 0x15, 0x40, 0x01, 0x00}
	d[0] = uint8(a)
	d[7] = counter & 0x0F
	d[7] |= ChecksumNibble(d) << 4
	return can.MustStandard(IDSCU, d)
}
