package helpers

import (
	"encoding/hex"
	"strings"
)

// MustHex decodes hex, spaces are ignored so test vectors can be grouped by field.
func MustHex(s string) []byte {
	b, err := hex.DecodeString(strings.Replace(s, " ", "", -1))
	if err != nil {
		panic(err)
	}
	return b
}
