package protocol

import (
	"math"
	"strconv"

	"github.com/juju/errors"
)

const (
	ReadingSize   = 4 // bytes on wire
	ReadingDigits = ReadingSize * 2
)

// DecodeReading decodes one 8 digit chunk: status, unit, decimal places, magnitude.
func DecodeReading(chunk string) (Reading, error) {
	if len(chunk) != ReadingDigits {
		return Reading{}, errors.Annotatef(ErrIncompleteReading, "chunk=%q", chunk)
	}

	unit := UnitInvalid
	if c := chunk[1]; isDigit(c) {
		unit = unitTable[c-'0']
	}
	if unit == UnitInvalid {
		return Reading{}, errors.Annotatef(ErrUnknownUnit, "chunk=%q digit=%q", chunk, chunk[1])
	}

	table := &statusTableGeneric
	if unit == UnitAngle {
		table = &statusTableAngle
	}
	status := StatusInvalid
	if c := chunk[0]; isDigit(c) {
		status = table[c-'0']
	}
	if status == StatusInvalid {
		return Reading{}, errors.Annotatef(ErrUnknownStatus, "chunk=%q unit=%s digit=%q", chunk, unit, chunk[0])
	}

	if !isDigits(chunk[2:]) {
		return Reading{}, errors.Annotatef(ErrInvalidDigits, "chunk=%q", chunk)
	}
	places := int(chunk[2] - '0')

	// temperature spends d3 on sign flag, other units use it as magnitude digit
	magnitude := chunk[3:]
	negative := false
	if unit == UnitTemperature {
		negative = chunk[3] == '1'
		magnitude = chunk[4:]
	}
	n, err := strconv.ParseInt(magnitude, 10, 32)
	if err != nil {
		return Reading{}, errors.Annotatef(ErrInvalidDigits, "chunk=%q magnitude", chunk)
	}
	if negative {
		n = -n
	}
	return Reading{
		Status: status,
		Unit:   unit,
		Value:  float64(n) / math.Pow10(places),
	}, nil
}
