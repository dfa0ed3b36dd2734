package tele

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/spq"
	"github.com/temoto/topsail/devicenet"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/protocol"
	"github.com/temoto/topsail/protocol/prototest"
	tele_config "github.com/temoto/topsail/tele/config"
)

var testReceived = time.Date(2020, 5, 17, 10, 20, 30, 0, time.UTC)

func testMessage(t testing.TB) *protocol.Message {
	m, err := protocol.DecodeFrame(prototest.SimReporting)
	require.NoError(t, err)
	return m
}

func testTele(t testing.TB, mock *transportMock, cfg tele_config.Config) *Tele {
	mock.t = t
	tl := NewWithTransporter(mock)
	tl.now = func() time.Time { return testReceived }
	tl.backoff = helpers.Backoff{Min: time.Millisecond, Max: 10 * time.Millisecond, K: 2}
	cfg.PersistPath = spq.OnlyForTesting
	cfg.LogDebug = true
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), cfg))
	return tl
}

func TestForwardGateway(t *testing.T) {
	t.Parallel()

	mock := &transportMock{}
	tl := testTele(t, mock, tele_config.Config{Enabled: true})
	defer tl.Close()

	require.NoError(t, tl.Forward(context.Background(), testMessage(t)))
	sent := mock.recv(t)
	assert.Equal(t, DefaultTopicGateway, sent.topic)

	var v map[string][]struct {
		TS     int64                  `json:"ts"`
		Values map[string]interface{} `json:"values"`
	}
	require.NoError(t, json.Unmarshal(sent.payload, &v))
	points := v[prototest.SimDeviceID]
	require.Len(t, points, 1)
	assert.Equal(t, time.Date(2013, 6, 13, 19, 26, 29, 0, time.UTC).UnixNano()/int64(time.Millisecond), points[0].TS)
	assert.Equal(t, prototest.SimReportName, points[0].Values["device_name"])
	assert.Equal(t, "PressureMPa", points[0].Values["unit_1"])
	assert.Equal(t, int64(1), tl.Stat().Queued.Value())
	assert.Eventually(t, func() bool { return tl.Stat().Sent.Value() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestForwardRecordTopic(t *testing.T) {
	t.Parallel()

	mock := &transportMock{}
	tl := testTele(t, mock, tele_config.Config{
		Enabled: true,
		Format:  "record",
		Topic:   "site1/{device_id}/up",
	})
	defer tl.Close()

	require.NoError(t, tl.Forward(context.Background(), testMessage(t)))
	sent := mock.recv(t)
	assert.Equal(t, "site1/"+prototest.SimDeviceID+"/up", sent.topic)
	var jr jsonRecord
	require.NoError(t, json.Unmarshal(sent.payload, &jr))
	assert.Equal(t, prototest.SimCorrelationID, jr.CorrelationID)
	assert.Equal(t, "2013-06-13T19:26:29Z", jr.Time)
	assert.Equal(t, testReceived.Format(time.RFC3339Nano), jr.Received)
	require.NotEmpty(t, jr.Readings)
}

func TestForwardRetry(t *testing.T) {
	t.Parallel()

	mock := &transportMock{fail: 2}
	tl := testTele(t, mock, tele_config.Config{Enabled: true})
	defer tl.Close()

	m := testMessage(t)
	require.NoError(t, tl.Forward(context.Background(), m))
	sent := mock.recv(t)
	assert.Contains(t, string(sent.payload), m.DeviceID)
	assert.Equal(t, int64(2), tl.Stat().SendErrors.Value())
	assert.Eventually(t, func() bool { return tl.Stat().Sent.Value() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestForwardOrder(t *testing.T) {
	t.Parallel()

	type Case struct {
		name string
		fail int32
	}
	cases := []Case{
		{"ok", 0},
		{"first-send-fails", 1},
		{"retry-twice", 2},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			mock := &transportMock{fail: c.fail}
			tl := testTele(t, mock, tele_config.Config{Enabled: true, Format: "record"})
			defer tl.Close()

			ids := []string{"1000000000000001", "1000000000000002", "1000000000000003"}
			for _, id := range ids {
				m := testMessage(t)
				m.DeviceID = id
				require.NoError(t, tl.Forward(context.Background(), m))
			}
			for _, id := range ids {
				sent := mock.recv(t)
				assert.Equal(t, "topsail/"+id+"/telemetry", sent.topic)
			}
			assert.Equal(t, int64(c.fail), tl.Stat().SendErrors.Value())
		})
	}
}

func TestForwardDisabled(t *testing.T) {
	t.Parallel()

	mock := &transportMock{}
	tl := testTele(t, mock, tele_config.Config{Enabled: false})
	defer tl.Close()

	assert.False(t, tl.Enabled())
	assert.Equal(t, devicenet.ErrForwardDropped, tl.Forward(context.Background(), testMessage(t)))
	assert.Equal(t, int64(1), tl.Stat().Dropped.Value())
	assert.Equal(t, int64(0), tl.Stat().Queued.Value())
	assert.Nil(t, mock.out)
}

func TestForwardNoBody(t *testing.T) {
	t.Parallel()

	mock := &transportMock{}
	tl := testTele(t, mock, tele_config.Config{Enabled: true})
	defer tl.Close()

	m, err := protocol.DecodeFrame(prototest.SimRegistration)
	require.NoError(t, err)
	assert.Error(t, tl.Forward(context.Background(), m))
	assert.Equal(t, int64(0), tl.Stat().Queued.Value())
}

func TestQhandleInvalid(t *testing.T) {
	t.Parallel()

	mock := &transportMock{}
	tl := testTele(t, mock, tele_config.Config{Enabled: true})
	defer tl.Close()

	cases := [][]byte{{}, {0x7f}, {qRecord, 0xff, 0xff}}
	for _, b := range cases {
		del, err := tl.qhandle(b)
		assert.True(t, del, "b=%x", b)
		assert.Error(t, err, "b=%x", b)
	}
	assert.Equal(t, int64(len(cases)), tl.Stat().Invalid.Value())
}

func TestInitInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  tele_config.Config
	}{
		{"format", tele_config.Config{Enabled: true, Format: "xml"}},
		{"transport", tele_config.Config{Enabled: true, Transport: "carrier-pigeon", PersistPath: spq.OnlyForTesting}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			tl := New()
			err := tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), c.cfg)
			assert.Error(t, err)
		})
	}
}

func TestRecordFromMessage(t *testing.T) {
	t.Parallel()

	m := testMessage(t)
	r, err := RecordFromMessage(m, testReceived)
	require.NoError(t, err)
	assert.Equal(t, m.DeviceID, r.DeviceId)
	assert.Equal(t, m.Body.Time.UnixNano(), r.Time)
	assert.Equal(t, testReceived.UnixNano(), r.Received)
	require.Len(t, r.Readings, len(m.Body.Readings))
	for i, rd := range r.Readings {
		assert.Equal(t, m.Body.Readings[i], rd.Reading())
	}
	assert.False(t, r.LengthMismatch)
}
