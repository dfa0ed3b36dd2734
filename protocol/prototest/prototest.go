// Package prototest builds device frames for tests and the simulator.
package prototest

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/protocol"
)

const (
	SimCorrelationID = "3333"
	SimDeviceID      = "3597710402688880"
	SimRegisterName  = "1111111111111110"
	SimReportName    = "3111111111111110"
)

// Captured from field simulator.
var (
	SimBody         = helpers.MustHex("130613192629029931000141225001412250")
	SimRegistration = Registration(SimCorrelationID, SimDeviceID, SimRegisterName)
	SimReporting    = Reporting(SimCorrelationID, SimDeviceID, SimReportName, len(SimBody), SimBody)
	SimSentinel     = Registration(SimCorrelationID, protocol.SentinelDeviceID, SimRegisterName)
)

// Registration frame as devices send it: header, kind and trailing 00 00 02 00 1f.
func Registration(id, device, name string) []byte {
	b := header(id, device, name, byte(protocol.KindRegistration))
	return append(b, 0x00, 0x00, 0x02, 0x00, 0x1f)
}

// Reporting frame with arbitrary declared length, so tests can produce mismatches.
func Reporting(id, device, name string, declared int, body []byte) []byte {
	b := header(id, device, name, byte(protocol.KindReporting))
	b = append(b, 0x00, 0, 0)
	binary.BigEndian.PutUint16(b[38:40], uint16(declared))
	return append(b, body...)
}

// Body encodes reporting body, readings are 8 digit strings.
func Body(t time.Time, interval, battery, signal uint8, readings ...string) []byte {
	digits := fmt.Sprintf("%s%02d%02d", t.Format("060102150405"), battery, signal)
	head := MustDigits(digits)
	b := make([]byte, 0, protocol.BodyHeaderSize+len(readings)*protocol.ReadingSize)
	b = append(b, head[:6]...)
	b = append(b, interval, head[6], head[7], 0x00)
	for _, r := range readings {
		b = append(b, MustDigits(r)...)
	}
	return b
}

func MustDigits(s string) []byte {
	b, err := protocol.EncodeDigits(s)
	if err != nil {
		panic(err)
	}
	return b
}

func header(id, device, name string, kind byte) []byte {
	b := make([]byte, 0, protocol.HeaderSize)
	b = append(b, pad(id, 4)...)
	b = append(b, pad(device, 16)...)
	b = append(b, pad(name, 16)...)
	return append(b, kind)
}

func pad(s string, n int) string {
	for len(s) < n {
		s += "0"
	}
	return s[:n]
}
