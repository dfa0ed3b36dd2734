package protocol

import (
	"fmt"

	"github.com/juju/errors"
)

var (
	ErrFrameTooShort      = fmt.Errorf("frame too short")
	ErrUnknownMessageKind = fmt.Errorf("unknown message kind")
	ErrBodyTooShort       = fmt.Errorf("body too short")
	ErrInvalidTimestamp   = fmt.Errorf("invalid timestamp")
	ErrInvalidDigits      = fmt.Errorf("invalid BCD digits")
	ErrIncompleteReading  = fmt.Errorf("incomplete reading")
	ErrNoReadings         = fmt.Errorf("no readings")
	ErrUnknownUnit        = fmt.Errorf("unknown unit")
	ErrUnknownStatus      = fmt.Errorf("unknown status")
)

var errorKinds = map[error]string{
	ErrFrameTooShort:      "FrameTooShort",
	ErrUnknownMessageKind: "UnknownMessageKind",
	ErrBodyTooShort:       "BodyTooShort",
	ErrInvalidTimestamp:   "InvalidTimestamp",
	ErrInvalidDigits:      "InvalidDigits",
	ErrIncompleteReading:  "IncompleteReading",
	ErrNoReadings:         "NoReadings",
	ErrUnknownUnit:        "UnknownUnit",
	ErrUnknownStatus:      "UnknownStatus",
}

// ErrorKind returns stable short name of decode error cause, suitable for stat keys.
// Errors not produced by this package map to "Other", nil to "".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if k, ok := errorKinds[errors.Cause(err)]; ok {
		return k
	}
	return "Other"
}
