package tele

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/topsail/protocol"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  string
		expect Format
		topic  string
	}{
		{"", FormatGateway, DefaultTopicGateway},
		{"gateway", FormatGateway, DefaultTopicGateway},
		{"record", FormatRecord, DefaultTopicRecord},
	}
	for _, c := range cases {
		f, err := ParseFormat(c.input)
		require.NoError(t, err, c.input)
		assert.Equal(t, c.expect, f)
		assert.Equal(t, c.topic, f.DefaultTopic())
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, "Format(0)", FormatInvalid.String())
}

func TestRenderGateway(t *testing.T) {
	t.Parallel()

	r := &Record{
		DeviceId:    "3597710402688880",
		DeviceName:  "dev",
		Time:        time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano(),
		IntervalSec: 60,
		Battery:     87,
		Signal:      20,
		Readings: []*Reading{
			{Status: uint32(protocol.StatusNormal), Unit: uint32(protocol.UnitPressureMPa), Value: 1.225},
			{Status: uint32(protocol.StatusNormal), Unit: uint32(protocol.UnitTemperature), Value: -12.5},
		},
	}
	topic, payload, err := Render(FormatGateway, "", r)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopicGateway, topic)

	var v map[string][]struct {
		TS     int64                  `json:"ts"`
		Values map[string]interface{} `json:"values"`
	}
	require.NoError(t, json.Unmarshal(payload, &v))
	require.Len(t, v[r.DeviceId], 1)
	p := v[r.DeviceId][0]
	assert.Equal(t, int64(1577934245000), p.TS)
	assert.Equal(t, 1.225, p.Values["value_1"])
	assert.Equal(t, -12.5, p.Values["value_2"])
	assert.Equal(t, "Temperature", p.Values["unit_2"])
	assert.Equal(t, float64(87), p.Values["battery"])
	assert.Equal(t, float64(60), p.Values["interval_sec"])
	assert.NotContains(t, p.Values, "value_3")
}

func TestRenderRecordTopic(t *testing.T) {
	t.Parallel()

	r := &Record{DeviceId: "42", LengthMismatch: true}
	topic, payload, err := Render(FormatRecord, "", r)
	require.NoError(t, err)
	assert.Equal(t, "topsail/42/telemetry", topic)
	assert.Contains(t, string(payload), `"length_mismatch":true`)

	topic, _, err = Render(FormatGateway, "custom/{device_id}/{device_id}", r)
	require.NoError(t, err)
	assert.Equal(t, "custom/42/42", topic)
}
