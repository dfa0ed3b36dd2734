package protocol_test

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/topsail/protocol"
	"github.com/temoto/topsail/protocol/prototest"
)

func TestDecodeRegistration(t *testing.T) {
	t.Parallel()
	m, err := protocol.DecodeFrame(prototest.SimRegistration)
	require.NoError(t, err)
	assert.Equal(t, &protocol.Message{
		CorrelationID: "3333",
		DeviceID:      "3597710402688880",
		DeviceName:    "1111111111111110",
		Kind:          protocol.KindRegistration,
	}, m)
	assert.False(t, m.IsSentinel())
}

func TestDecodeRegistrationMinimal(t *testing.T) {
	t.Parallel()
	b := prototest.SimRegistration[:protocol.RegistrationMinSize]
	m, err := protocol.DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindRegistration, m.Kind)
	assert.Nil(t, m.Body)

	_, err = protocol.DecodeFrame(b[:protocol.RegistrationMinSize-1])
	assert.Equal(t, protocol.ErrFrameTooShort, errors.Cause(err))
}

func TestDecodeSentinel(t *testing.T) {
	t.Parallel()
	m, err := protocol.DecodeFrame(prototest.SimSentinel)
	require.NoError(t, err)
	assert.True(t, m.IsSentinel())
}

func TestDecodeReporting(t *testing.T) {
	t.Parallel()
	m, err := protocol.DecodeFrame(prototest.SimReporting)
	require.NoError(t, err)
	assert.Equal(t, "3111111111111110", m.DeviceName)
	assert.Equal(t, protocol.KindReporting, m.Kind)
	assert.Nil(t, m.LengthMismatch)
	require.NotNil(t, m.Body)
	assert.Equal(t, &protocol.Body{
		Time:        time.Date(2013, 6, 13, 19, 26, 29, 0, time.UTC),
		IntervalSec: 2,
		Battery:     99,
		Signal:      31,
		Readings: []protocol.Reading{
			{Status: protocol.StatusNormal, Unit: protocol.UnitPressureMPa, Value: 1.225},
			{Status: protocol.StatusNormal, Unit: protocol.UnitPressureMPa, Value: 1.225},
		},
	}, m.Body)
}

func TestDecodeLocation(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+3", 3*3600)
	m, err := protocol.NewDecoder(loc).DecodeFrame(prototest.SimReporting)
	require.NoError(t, err)
	assert.Equal(t, loc, m.Body.Time.Location())
	assert.Equal(t, time.Date(2013, 6, 13, 16, 26, 29, 0, time.UTC), m.Body.Time.UTC())
}

func TestDecodeLengthMismatch(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		declared int
		body     []byte
		expect   protocol.LengthMismatch
		readings int
	}{
		{"short-aligned", 18, prototest.SimBody[:14], protocol.LengthMismatch{Declared: 18, Actual: 14, Kept: 14}, 1},
		{"short-partial", 18, prototest.SimBody[:16], protocol.LengthMismatch{Declared: 18, Actual: 16, Kept: 14}, 1},
		{"long-partial", 18, append(append([]byte(nil), prototest.SimBody...), 0x01, 0x41, 0x22), protocol.LengthMismatch{Declared: 18, Actual: 21, Kept: 18}, 2},
		{"declared-zero", 0, prototest.SimBody, protocol.LengthMismatch{Declared: 0, Actual: 18, Kept: 18}, 2},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			b := prototest.Reporting("0001", prototest.SimDeviceID, prototest.SimReportName, c.declared, c.body)
			m, err := protocol.DecodeFrame(b)
			require.NoError(t, err)
			require.NotNil(t, m.LengthMismatch)
			assert.Equal(t, c.expect, *m.LengthMismatch)
			assert.Len(t, m.Body.Readings, c.readings)
		})
	}
}

func TestDecodeNegativeTemperature(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 31, 23, 59, 58, 0, time.UTC)
	body := prototest.Body(ts, 60, 50, 7, "04212250", "14200300")
	b := prototest.Reporting("0002", "1234567890123456", "tank-7", len(body), body)
	m, err := protocol.DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, ts, m.Body.Time)
	assert.Equal(t, uint8(60), m.Body.IntervalSec)
	assert.Equal(t, []protocol.Reading{
		{Status: protocol.StatusNormal, Unit: protocol.UnitTemperature, Value: -22.5},
		{Status: protocol.StatusCriticalLow, Unit: protocol.UnitTemperature, Value: 3},
	}, m.Body.Readings)
}

func TestDecodeFrameErrors(t *testing.T) {
	t.Parallel()
	ts := time.Date(2013, 6, 13, 19, 26, 29, 0, time.UTC)
	report := func(body []byte) []byte {
		return prototest.Reporting("0003", prototest.SimDeviceID, prototest.SimReportName, len(body), body)
	}
	badKind := append([]byte(nil), prototest.SimRegistration...)
	badKind[36] = 0x05
	badTime := append([]byte(nil), prototest.SimBody...)
	badTime[1] = 0x13
	feb30 := append([]byte(nil), prototest.SimBody...)
	feb30[1], feb30[2] = 0x02, 0x30
	hexTime := append([]byte(nil), prototest.SimBody...)
	hexTime[5] = 0x2a
	badBattery := append([]byte(nil), prototest.SimBody...)
	badBattery[7] = 0x9c

	cases := []struct {
		name  string
		input []byte
		err   error
	}{
		{"empty", nil, protocol.ErrFrameTooShort},
		{"short", prototest.SimRegistration[:20], protocol.ErrFrameTooShort},
		{"kind", badKind, protocol.ErrUnknownMessageKind},
		{"reporting-no-length", prototest.SimReporting[:39], protocol.ErrFrameTooShort},
		{"scenario-d", report(prototest.Body(ts, 2, 99, 31, "01412250", "91412250")), protocol.ErrUnknownStatus},
		{"unit", report(prototest.Body(ts, 2, 99, 31, "09412250")), protocol.ErrUnknownUnit},
		{"month", report(badTime), protocol.ErrInvalidTimestamp},
		{"feb30", report(feb30), protocol.ErrInvalidTimestamp},
		{"nibble", report(hexTime), protocol.ErrInvalidTimestamp},
		{"battery", report(badBattery), protocol.ErrInvalidDigits},
		{"no-readings", report(prototest.SimBody[:10]), protocol.ErrNoReadings},
		{"body-short", report(prototest.SimBody[:9]), protocol.ErrBodyTooShort},
		{"body-short-mismatch", prototest.Reporting("0003", prototest.SimDeviceID, "", 18, prototest.SimBody[:5]), protocol.ErrBodyTooShort},
		{"trailing", report(prototest.SimBody[:16]), protocol.ErrIncompleteReading},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m, err := protocol.DecodeFrame(c.input)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Equal(t, c.err, errors.Cause(err), errors.ErrorStack(err))
		})
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()
	for n := 0; n < 64; n++ {
		body := make([]byte, n)
		once := protocol.Reconcile(body)
		twice := protocol.Reconcile(once)
		require.Equal(t, len(once), len(twice), "n=%d", n)
		if n < protocol.BodyHeaderSize {
			assert.Equal(t, n, len(once))
			continue
		}
		assert.Equal(t, 0, (len(once)-protocol.BodyHeaderSize)%protocol.ReadingSize, "n=%d", n)
		assert.True(t, n-len(once) < protocol.ReadingSize, "n=%d", n)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", protocol.ErrorKind(nil))
	assert.Equal(t, "Other", protocol.ErrorKind(errors.New("io")))
	_, err := protocol.DecodeFrame(nil)
	assert.Equal(t, "FrameTooShort", protocol.ErrorKind(err))
	_, err = protocol.DecodeReading("91412250")
	assert.Equal(t, "UnknownStatus", protocol.ErrorKind(errors.Annotate(err, "outer")))
}
