package tele

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/topsail/helpers"
)

type Format uint8

const (
	FormatInvalid Format = iota
	// ThingsBoard gateway telemetry API, all devices on one topic.
	FormatGateway
	// Full record as JSON, topic per device.
	FormatRecord
)

const (
	DefaultTopicGateway = "v1/gateway/telemetry"
	DefaultTopicRecord  = "topsail/{device_id}/telemetry"
	topicDeviceID       = "{device_id}"
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "gateway":
		return FormatGateway, nil
	case "record":
		return FormatRecord, nil
	}
	return FormatInvalid, errors.NotValidf("tele format=%q", s)
}

func (f Format) String() string {
	switch f {
	case FormatGateway:
		return "gateway"
	case FormatRecord:
		return "record"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

func (f Format) DefaultTopic() string {
	if f == FormatRecord {
		return DefaultTopicRecord
	}
	return DefaultTopicGateway
}

type gatewayPoint struct {
	TS     int64                  `json:"ts"`
	Values map[string]interface{} `json:"values"`
}

type jsonReading struct {
	Status string  `json:"status"`
	Unit   string  `json:"unit"`
	Value  float64 `json:"value"`
}

type jsonRecord struct {
	CorrelationID  string        `json:"correlation_id"`
	DeviceID       string        `json:"device_id"`
	DeviceName     string        `json:"device_name"`
	Time           string        `json:"time"`
	Received       string        `json:"received"`
	IntervalSec    uint32        `json:"interval_sec"`
	Battery        uint32        `json:"battery"`
	Signal         uint32        `json:"signal"`
	LengthMismatch bool          `json:"length_mismatch,omitempty"`
	Readings       []jsonReading `json:"readings"`
}

// Render returns MQTT topic and payload for record.
// Empty topic template selects format default.
func Render(f Format, topic string, r *Record) (string, []byte, error) {
	if topic == "" {
		topic = f.DefaultTopic()
	}
	topic = strings.Replace(topic, topicDeviceID, r.DeviceId, -1)

	var v interface{}
	switch f {
	case FormatGateway:
		values := make(map[string]interface{}, 4+3*len(r.Readings))
		values["device_name"] = r.DeviceName
		values["interval_sec"] = r.IntervalSec
		values["battery"] = r.Battery
		values["signal"] = r.Signal
		for i, x := range r.Readings {
			rd := x.Reading()
			n := i + 1
			values[fmt.Sprintf("value_%d", n)] = rd.Value
			values[fmt.Sprintf("unit_%d", n)] = rd.Unit.String()
			values[fmt.Sprintf("status_%d", n)] = rd.Status.String()
		}
		ts := helpers.UnixMilli(time.Unix(0, r.Time))
		v = map[string][]gatewayPoint{r.DeviceId: {{TS: ts, Values: values}}}

	case FormatRecord:
		jr := jsonRecord{
			CorrelationID:  r.CorrelationId,
			DeviceID:       r.DeviceId,
			DeviceName:     r.DeviceName,
			Time:           time.Unix(0, r.Time).UTC().Format(time.RFC3339),
			Received:       time.Unix(0, r.Received).UTC().Format(time.RFC3339Nano),
			IntervalSec:    r.IntervalSec,
			Battery:        r.Battery,
			Signal:         r.Signal,
			LengthMismatch: r.LengthMismatch,
			Readings:       make([]jsonReading, len(r.Readings)),
		}
		for i, x := range r.Readings {
			rd := x.Reading()
			jr.Readings[i] = jsonReading{Status: rd.Status.String(), Unit: rd.Unit.String(), Value: rd.Value}
		}
		v = jr

	default:
		return "", nil, errors.NotValidf("tele format=%s", f)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", nil, errors.Annotate(err, "tele payload")
	}
	return topic, b, nil
}
