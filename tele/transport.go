package tele

import (
	"context"

	"github.com/juju/errors"

	"github.com/temoto/topsail/log2"
	tele_config "github.com/temoto/topsail/tele/config"
)

// Tele transport contract:
// - Init fails only with invalid config, ignores network errors
// - Send delivers within ctx or fails; success includes ack from broker
// - hide "connection" concept from upstream API or errors
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error
	Send(ctx context.Context, topic string, payload []byte) error
	Close()
}

func newTransport(name string) (Transporter, error) {
	switch name {
	case "", "gomqtt":
		return &transportGomqtt{}, nil
	case "paho":
		return &transportPaho{}, nil
	}
	return nil, errors.NotValidf("tele transport=%q", name)
}
