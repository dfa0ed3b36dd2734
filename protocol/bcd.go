package protocol

import (
	"github.com/juju/errors"
)

// DecodeByte unpacks high and low nibbles into two characters.
// Nibble values above 9 are not validated and produce characters ':'..'?',
// so callers must treat any non-digit in the result as corrupt input.
func DecodeByte(b byte) string {
	return string([]byte{'0' + b>>4, '0' + b&0x0f})
}

// Decode unpacks every byte of bs, preserving order.
func Decode(bs []byte) string {
	s := make([]byte, 0, len(bs)*2)
	for _, b := range bs {
		s = append(s, '0'+b>>4, '0'+b&0x0f)
	}
	return string(s)
}

// EncodeDigits packs pairs of decimal digits into bytes.
// Input must have even length and consist of '0'..'9' only.
func EncodeDigits(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.Annotatef(ErrInvalidDigits, "odd length=%d", len(s))
	}
	if !isDigits(s) {
		return nil, errors.Annotatef(ErrInvalidDigits, "input=%q", s)
	}
	return hexToBytes(s), nil
}

// hexToBytes treats each pair of characters as one hexadecimal byte.
// Invalid characters count as zero. Accepts a-f, so public callers go through EncodeDigits.
func hexToBytes(s string) []byte {
	b := make([]byte, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		b[i/2] = hexNibble(s[i])<<4 | hexNibble(s[i+1])
	}
	return b
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// parse2 converts exactly two decimal characters.
func parse2(s string) (int, bool) {
	if len(s) != 2 || !isDigit(s[0]) || !isDigit(s[1]) {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}
