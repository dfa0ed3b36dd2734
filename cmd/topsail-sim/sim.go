package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/temoto/topsail/protocol/prototest"
)

// randomReading returns 8 digit reading with normal status.
func randomReading(r *rand.Rand) string {
	unit := 1 + r.Intn(6) // angle has separate status table
	places := r.Intn(4)
	return fmt.Sprintf("0%d%d%05d", unit, places, r.Intn(100000))
}

type simDevice struct {
	id       string // correlation
	device   string
	name     string
	interval uint8
	readings int
	rand     *rand.Rand
}

func (d *simDevice) registration() []byte {
	return prototest.Registration(d.id, d.device, d.name)
}

func (d *simDevice) report(now time.Time) []byte {
	readings := make([]string, d.readings)
	for i := range readings {
		readings[i] = randomReading(d.rand)
	}
	battery := uint8(50 + d.rand.Intn(50))
	signal := uint8(10 + d.rand.Intn(21))
	body := prototest.Body(now, d.interval, battery, signal, readings...)
	return prototest.Reporting(d.id, d.device, d.name, len(body), body)
}

// hasLineBreak reports frames that line framing would split.
func hasLineBreak(b []byte) bool {
	for _, x := range b {
		if x == '\n' {
			return true
		}
	}
	return false
}
