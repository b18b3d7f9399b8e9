package pcan

import "encoding/binary"

// Gear is the selected transmission position.
type Gear uint8

const (
	Park Gear = iota
	Neutral
	Drive
	Reverse
)

func (g Gear) String() string {
	switch g {
	case Park:
		return "P"
	case Neutral:
		return "N"
	case Drive:
		return "D"
	case Reverse:
		return "R"
	}
	return "?"
}

// wire nibble values of the gear selector
func gearFromWire(v uint8) (Gear, bool) {
	switch v {
	case 0:
		return Park, true
	case 5:
		return Drive, true
	case 6:
		return Neutral, true
	case 7:
		return Reverse, true
	}
	return 0, false
}

func gearToWire(g Gear) uint8 {
	switch g {
	case Drive:
		return 5
	case Neutral:
		return 6
	case Reverse:
		return 7
	}
	return 0
}

// PrechargeStatus reports the BMS precharge relay.
type PrechargeStatus struct{ PrechargeClosed bool }

func (PrechargeStatus) Name() string         { return "precharge_status" }
func (PrechargeStatus) Identifier() uint32   { return IDPrecharge }
func (m PrechargeStatus) PayloadBytes() []byte { return flagPayload(m.PrechargeClosed) }

// ContactorStatus reports the BMS main contactor.
type ContactorStatus struct{ ContactorClosed bool }

func (ContactorStatus) Name() string         { return "contactor_status" }
func (ContactorStatus) Identifier() uint32   { return IDContactor }
func (m ContactorStatus) PayloadBytes() []byte { return flagPayload(m.ContactorClosed) }

func flagPayload(v bool) []byte {
	b := make([]byte, 8)
	if v {
		b[0] = 1
	}
	return b
}

// GearStatus reports the shifter position.
type GearStatus struct{ Gear Gear }

func (GearStatus) Name() string       { return "gear_status" }
func (GearStatus) Identifier() uint32 { return IDGear }
func (m GearStatus) PayloadBytes() []byte {
	b := make([]byte, 8)
	b[0] = gearToWire(m.Gear)
	return b
}

// BatteryStatus carries pack telemetry.
type BatteryStatus struct {
	SoCHalfPct  uint8 // 0.5 %/bit
	VoltageDeci uint16 // 0.1 V/bit
	CurrentDeci int16  // 0.1 A/bit, positive discharging
}

func (BatteryStatus) Name() string       { return "battery_status" }
func (BatteryStatus) Identifier() uint32 { return IDBattery }
func (m BatteryStatus) PayloadBytes() []byte {
	b := make([]byte, 8)
	b[0] = m.SoCHalfPct
	binary.LittleEndian.PutUint16(b[1:], m.VoltageDeci)
	binary.LittleEndian.PutUint16(b[3:], uint16(m.CurrentDeci))
	return b
}

func (m BatteryStatus) SoC() float32     { return float32(m.SoCHalfPct) / 2 }
func (m BatteryStatus) Voltage() float32 { return float32(m.VoltageDeci) / 10 }
func (m BatteryStatus) Current() float32 { return float32(m.CurrentDeci) / 10 }

// InverterStatus carries the inverter DC link voltage in volts.
type InverterStatus struct{ Voltage uint16 }

func (InverterStatus) Name() string       { return "inverter_status" }
func (InverterStatus) Identifier() uint32 { return IDInverter }
func (m InverterStatus) PayloadBytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b, m.Voltage)
	return b
}

// MotorStatus carries motor speed.
type MotorStatus struct{ RPM uint16 }

func (MotorStatus) Name() string       { return "motor_status" }
func (MotorStatus) Identifier() uint32 { return IDMotor }
func (m MotorStatus) PayloadBytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b, m.RPM)
	return b
}
