package protocol

import (
	"time"

	"github.com/juju/errors"
)

// Fixed part of body before readings: timestamp(6) interval(1) battery(1) signal(1) reserved(1).
const BodyHeaderSize = 10

// Reconcile trims a trailing partial reading so that readings area is a multiple of ReadingSize.
// Fixed body header is kept intact. Applying it again is a no-op.
func Reconcile(body []byte) []byte {
	n := len(body)
	if n < BodyHeaderSize {
		return body
	}
	return body[:n-(n-BodyHeaderSize)%ReadingSize]
}

func (d Decoder) DecodeBody(body []byte) (*Body, error) {
	if len(body) < BodyHeaderSize {
		return nil, errors.Annotatef(ErrBodyTooShort, "length=%d min=%d", len(body), BodyHeaderSize)
	}

	t, err := d.parseTime(Decode(body[0:6]))
	if err != nil {
		return nil, err
	}
	battery, ok := parse2(DecodeByte(body[7]))
	if !ok {
		return nil, errors.Annotatef(ErrInvalidDigits, "battery=%02x", body[7])
	}
	signal, ok := parse2(DecodeByte(body[8]))
	if !ok {
		return nil, errors.Annotatef(ErrInvalidDigits, "signal=%02x", body[8])
	}
	// body[9] reserved

	digits := Decode(body[BodyHeaderSize:])
	if len(digits) == 0 {
		return nil, ErrNoReadings
	}
	if tail := len(digits) % ReadingDigits; tail != 0 {
		return nil, errors.Annotatef(ErrIncompleteReading, "trailing chunk=%q", digits[len(digits)-tail:])
	}
	readings := make([]Reading, 0, len(digits)/ReadingDigits)
	for i := 0; i < len(digits); i += ReadingDigits {
		r, err := DecodeReading(digits[i : i+ReadingDigits])
		if err != nil {
			return nil, errors.Annotatef(err, "reading[%d]", i/ReadingDigits)
		}
		readings = append(readings, r)
	}

	return &Body{
		Time:        t,
		IntervalSec: body[6],
		Battery:     uint8(battery),
		Signal:      uint8(signal),
		Readings:    readings,
	}, nil
}

// parseTime reads YYMMDDHHMMSS, year is always 2000+YY.
func (d Decoder) parseTime(s string) (time.Time, error) {
	var f [6]int
	if len(s) != len(f)*2 {
		return time.Time{}, errors.Annotatef(ErrInvalidTimestamp, "digits=%q", s)
	}
	for i := range f {
		v, ok := parse2(s[i*2 : i*2+2])
		if !ok {
			return time.Time{}, errors.Annotatef(ErrInvalidTimestamp, "digits=%q", s)
		}
		f[i] = v
	}
	year, month, day := 2000+f[0], time.Month(f[1]), f[2]
	if month < time.January || month > time.December || day < 1 || f[3] > 23 || f[4] > 59 || f[5] > 59 {
		return time.Time{}, errors.Annotatef(ErrInvalidTimestamp, "digits=%q", s)
	}
	t := time.Date(year, month, day, f[3], f[4], f[5], 0, d.Location())
	// time.Date normalizes overflow like Feb 30
	if y, m, dd := t.Date(); y != year || m != month || dd != day {
		return time.Time{}, errors.Annotatef(ErrInvalidTimestamp, "digits=%q", s)
	}
	return t, nil
}
