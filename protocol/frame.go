package protocol

import (
	"encoding/binary"
	"time"

	"github.com/juju/errors"
)

const (
	offsetDeviceID   = 4
	offsetDeviceName = 20
	offsetKind       = 36
	offsetBodyLen    = 38

	// Registration needs bytes up to and including kind.
	RegistrationMinSize = offsetKind + 1
	HeaderSize          = 40
	MaxBodySize         = 1<<16 - 1
)

// Decoder holds only immutable settings, zero value decodes timestamps in UTC.
// Safe to copy and share between goroutines.
type Decoder struct {
	loc *time.Location
}

func NewDecoder(loc *time.Location) Decoder { return Decoder{loc: loc} }

func (d Decoder) Location() *time.Location {
	if d.loc == nil {
		return time.UTC
	}
	return d.loc
}

// DecodeFrame decodes a frame with timestamps in UTC.
func DecodeFrame(b []byte) (*Message, error) { return Decoder{}.DecodeFrame(b) }

// DecodeFrame expects exactly one complete frame.
// Returned Message does not reference b.
func (d Decoder) DecodeFrame(b []byte) (*Message, error) {
	if len(b) < RegistrationMinSize {
		return nil, errors.Annotatef(ErrFrameTooShort, "length=%d min=%d", len(b), RegistrationMinSize)
	}
	kind := kindTable[b[offsetKind]]
	if kind == KindInvalid {
		return nil, errors.Annotatef(ErrUnknownMessageKind, "kind=0x%02x", b[offsetKind])
	}
	m := &Message{
		CorrelationID: string(b[:offsetDeviceID]),
		DeviceID:      string(b[offsetDeviceID:offsetDeviceName]),
		DeviceName:    string(b[offsetDeviceName:offsetKind]),
		Kind:          kind,
	}
	if kind == KindRegistration {
		return m, nil
	}

	if len(b) < HeaderSize {
		return nil, errors.Annotatef(ErrFrameTooShort, "device=%s length=%d min=%d", m.DeviceID, len(b), HeaderSize)
	}
	declared := int(binary.BigEndian.Uint16(b[offsetBodyLen:HeaderSize]))
	body := b[HeaderSize:]
	if declared != len(body) {
		kept := Reconcile(body)
		m.LengthMismatch = &LengthMismatch{Declared: declared, Actual: len(body), Kept: len(kept)}
		body = kept
	}
	var err error
	if m.Body, err = d.DecodeBody(body); err != nil {
		return nil, errors.Annotatef(err, "device=%s", m.DeviceID)
	}
	return m, nil
}
