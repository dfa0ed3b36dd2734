package tele

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/topsail/protocol"
)

func RecordFromMessage(m *protocol.Message, received time.Time) (*Record, error) {
	if m.Body == nil {
		return nil, errors.NotValidf("record from message kind=%s without body", m.Kind)
	}
	r := &Record{
		CorrelationId:  m.CorrelationID,
		DeviceId:       m.DeviceID,
		DeviceName:     m.DeviceName,
		Time:           m.Body.Time.UnixNano(),
		IntervalSec:    uint32(m.Body.IntervalSec),
		Battery:        uint32(m.Body.Battery),
		Signal:         uint32(m.Body.Signal),
		Readings:       make([]*Reading, len(m.Body.Readings)),
		Received:       received.UnixNano(),
		LengthMismatch: m.LengthMismatch != nil,
	}
	for i, rd := range m.Body.Readings {
		r.Readings[i] = &Reading{Status: uint32(rd.Status), Unit: uint32(rd.Unit), Value: rd.Value}
	}
	return r, nil
}

func (r *Reading) Reading() protocol.Reading {
	return protocol.Reading{
		Status: protocol.Status(r.Status),
		Unit:   protocol.Unit(r.Unit),
		Value:  r.Value,
	}
}
