package protocol

import (
	"fmt"
	"time"
)

type Kind byte

const (
	KindInvalid      Kind = 0x00
	KindRegistration Kind = 0x01
	KindReporting    Kind = 0x09
)

var kindTable = [256]Kind{
	0x01: KindRegistration,
	0x09: KindReporting,
}

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "Registration"
	case KindReporting:
		return "Reporting"
	}
	return fmt.Sprintf("Kind(0x%02x)", byte(k))
}

type Unit uint8

const (
	UnitInvalid Unit = iota
	UnitPressureMPa
	UnitPressureBar
	UnitPressureKPa
	UnitTemperature
	UnitLevelMeters
	UnitFlow
	UnitAngle
	UnitFloat
)

// indexed by wire digit
var unitTable = [10]Unit{
	1: UnitPressureMPa,
	2: UnitPressureBar,
	3: UnitPressureKPa,
	4: UnitTemperature,
	5: UnitLevelMeters,
	6: UnitFlow,
	7: UnitAngle,
	8: UnitFloat,
}

var unitNames = [...]string{
	UnitInvalid:     "Invalid",
	UnitPressureMPa: "PressureMPa",
	UnitPressureBar: "PressureBar",
	UnitPressureKPa: "PressureKPa",
	UnitTemperature: "Temperature",
	UnitLevelMeters: "LevelMeters",
	UnitFlow:        "Flow",
	UnitAngle:       "Angle",
	UnitFloat:       "Float",
}

func (u Unit) String() string {
	if int(u) < len(unitNames) {
		return unitNames[u]
	}
	return fmt.Sprintf("Unit(%d)", uint8(u))
}

type Status uint8

const (
	StatusInvalid Status = iota
	StatusNormal
	StatusCriticalLow
	StatusCriticalHigh
	StatusDeviceProblem
	StatusCollide
	StatusCertainAngle
)

var (
	statusTableAngle   = [10]Status{0: StatusNormal, 1: StatusCollide, 2: StatusCertainAngle}
	statusTableGeneric = [10]Status{0: StatusNormal, 1: StatusCriticalLow, 2: StatusCriticalHigh, 3: StatusDeviceProblem}
)

var statusNames = [...]string{
	StatusInvalid:       "Invalid",
	StatusNormal:        "Normal",
	StatusCriticalLow:   "CriticalLow",
	StatusCriticalHigh:  "CriticalHigh",
	StatusDeviceProblem: "DeviceProblem",
	StatusCollide:       "Collide",
	StatusCertainAngle:  "CertainAngle",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// SentinelDeviceID is sent by the device to signal registration roll-call complete.
// It is a heartbeat, not telemetry.
const SentinelDeviceID = "0000000000000000"

type Message struct {
	CorrelationID string
	DeviceID      string
	DeviceName    string
	Kind          Kind
	Body          *Body // nil for registration

	// Set when declared body length disagreed with received bytes and the body was trimmed.
	LengthMismatch *LengthMismatch
}

func (m *Message) IsSentinel() bool { return m.DeviceID == SentinelDeviceID }

func (m *Message) String() string {
	if m == nil {
		return "(nil)"
	}
	s := fmt.Sprintf("id=%s device=%s name=%q kind=%s", m.CorrelationID, m.DeviceID, m.DeviceName, m.Kind)
	if m.Body != nil {
		s += " " + m.Body.String()
	}
	return s
}

type LengthMismatch struct {
	Declared int
	Actual   int
	Kept     int
}

type Body struct {
	Time        time.Time
	IntervalSec uint8
	Battery     uint8
	Signal      uint8
	Readings    []Reading
}

func (b *Body) String() string {
	return fmt.Sprintf("time=%s interval=%ds battery=%d%% signal=%d readings=%v",
		b.Time.Format("2006-01-02T15:04:05"), b.IntervalSec, b.Battery, b.Signal, b.Readings)
}

type Reading struct {
	Status Status
	Unit   Unit
	Value  float64
}

func (r Reading) String() string {
	return fmt.Sprintf("%s:%s=%g", r.Unit, r.Status, r.Value)
}
