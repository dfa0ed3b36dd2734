package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/topsail/protocol"
	"github.com/temoto/topsail/protocol/prototest"
)

func TestSimFrames(t *testing.T) {
	t.Parallel()

	d := &simDevice{
		id:       prototest.SimCorrelationID,
		device:   prototest.SimDeviceID,
		name:     prototest.SimReportName,
		interval: 5,
		readings: 4,
		rand:     rand.New(rand.NewSource(1)),
	}
	m, err := protocol.DecodeFrame(d.registration())
	require.NoError(t, err)
	assert.Equal(t, protocol.KindRegistration, m.Kind)
	assert.Equal(t, prototest.SimDeviceID, m.DeviceID)

	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	for i := 0; i < 100; i++ {
		m, err = protocol.DecodeFrame(d.report(now))
		require.NoError(t, err)
		assert.Equal(t, protocol.KindReporting, m.Kind)
		assert.Nil(t, m.LengthMismatch)
		assert.Equal(t, now, m.Body.Time)
		assert.Len(t, m.Body.Readings, 4)
	}
}

func TestRandomReading(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		s := randomReading(r)
		_, err := protocol.DecodeReading(s)
		require.NoError(t, err, s)
	}
}
