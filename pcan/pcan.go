// Package pcan is the powertrain CAN message codec: inbound messages the
// vehicle model consumes and the outbound frames the emulated ECUs send.
// Layouts are little-endian unless noted.
package pcan

import (
	"encoding/binary"
	"fmt"

	"ecusim/can"
	"ecusim/errcode"
)

// Inbound identifiers.
const (
	IDGear      = 0x2B0
	IDInverter  = 0x3A0
	IDMotor     = 0x3A1
	IDBattery   = 0x542
	IDPrecharge = 0x596
	IDContactor = 0x597
)

// DiagnosticBase starts the reserved standard identifier range.
const DiagnosticBase = 0x700

// Message is a decoded inbound message. It can be re-encoded, which the
// simulated peers use.
type Message interface {
	can.Transmittable
	Name() string
}

// IsDiagnostic reports whether f uses a reserved diagnostic identifier.
func IsDiagnostic(f can.Frame) bool { return !f.Extended && f.ID >= DiagnosticBase }

// Decode parses f into one of the inbound messages.
func Decode(f can.Frame) (Message, error) {
	if IsDiagnostic(f) {
		return nil, decodeErr(errcode.DiagnosticID, f)
	}
	if f.Extended {
		return nil, decodeErr(errcode.UnknownMessage, f)
	}
	d := f.PayloadBytes()
	need := 0
	switch f.ID {
	case IDPrecharge, IDContactor, IDGear:
		need = 1
	case IDInverter, IDMotor:
		need = 2
	case IDBattery:
		need = 5
	default:
		return nil, decodeErr(errcode.UnknownMessage, f)
	}
	if len(d) < need {
		return nil, decodeErr(errcode.BadLength, f)
	}

	switch f.ID {
	case IDPrecharge:
		return PrechargeStatus{PrechargeClosed: d[0]&1 != 0}, nil
	case IDContactor:
		return ContactorStatus{ContactorClosed: d[0]&1 != 0}, nil
	case IDGear:
		g, ok := gearFromWire(d[0] & 0x0F)
		if !ok {
			return nil, decodeErr(errcode.DecodeFailed, f)
		}
		return GearStatus{Gear: g}, nil
	case IDInverter:
		return InverterStatus{Voltage: binary.LittleEndian.Uint16(d)}, nil
	case IDMotor:
		return MotorStatus{RPM: binary.LittleEndian.Uint16(d)}, nil
	default: // IDBattery
		return BatteryStatus{
			SoCHalfPct:  d[0],
			VoltageDeci: binary.LittleEndian.Uint16(d[1:]),
			CurrentDeci: int16(binary.LittleEndian.Uint16(d[3:])),
		}, nil
	}
}

func decodeErr(c errcode.Code, f can.Frame) error {
	return &errcode.E{C: c, Op: "pcan.decode", Msg: fmt.Sprintf("id %03X len %d", f.ID, f.Len)}
}
