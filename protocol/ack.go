package protocol

import (
	"bytes"
	"time"

	"github.com/juju/errors"
)

const (
	AckSize       = len(ackMagic) + 6
	ackTimeLayout = "060102150405"
)

var ackMagic = [8]byte{0x2B, 0x54, 0x4F, 0x50, 0x53, 0x41, 0x49, 0x4C} // +TOPSAIL

func AckMagic() []byte { return append([]byte(nil), ackMagic[:]...) }

// EncodeAck returns 14 bytes: magic followed by t as BCD YYMMDDHHMMSS.
func EncodeAck(t time.Time) []byte {
	digits, err := EncodeDigits(t.Format(ackTimeLayout))
	if err != nil {
		panic("code error EncodeAck err=" + err.Error())
	}
	b := make([]byte, 0, AckSize)
	b = append(b, ackMagic[:]...)
	return append(b, digits...)
}

// Ack encodes now in decoder location, devices read it as local wall clock.
func (d Decoder) Ack(now time.Time) []byte { return EncodeAck(now.In(d.Location())) }

func (d Decoder) ParseAck(b []byte) (time.Time, error) {
	if len(b) != AckSize {
		return time.Time{}, errors.NotValidf("ack length=%d", len(b))
	}
	if !bytes.Equal(b[:len(ackMagic)], ackMagic[:]) {
		return time.Time{}, errors.NotValidf("ack magic=%x", b[:len(ackMagic)])
	}
	return d.parseTime(Decode(b[len(ackMagic):]))
}
