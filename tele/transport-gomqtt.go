package tele

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/juju/errors"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	tele_config "github.com/temoto/topsail/tele/config"
	"github.com/temoto/topsail/tele/mqtt"
)

type transportGomqtt struct {
	log *log2.Log
	m   *mqtt.Client
}

func (self *transportGomqtt) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.log = log
	mqttLog := log.Clone(log2.LInfo)
	mqttLog.SetPrefix("tele.mqtt: ")
	if teleConfig.MqttLogDebug {
		mqttLog.SetLevel(log2.LDebug)
	}

	tlsconf, err := loadTLSConfig(teleConfig.TlsCaFile)
	if err != nil {
		return err
	}
	netTimeout := networkTimeout(teleConfig)
	opt := mqtt.ClientOptions{
		BrokerURL:      teleConfig.MqttBroker,
		ClientID:       teleConfig.MqttClientID,
		Username:       teleConfig.MqttUsername,
		Password:       teleConfig.MqttPassword,
		KeepaliveSec:   uint16(helpers.IntSecondDefault(teleConfig.KeepaliveSec, 60*time.Second) / time.Second),
		NetworkTimeout: netTimeout,
		TLS:            tlsconf,
		Log:            mqttLog,
		OnReady:        func() { self.log.Infof("mqtt connected broker=%s", teleConfig.MqttBroker) },
	}
	if self.m, err = mqtt.NewClient(opt); err != nil {
		return errors.Annotate(err, "tele gomqtt")
	}
	return nil
}

func (self *transportGomqtt) Send(ctx context.Context, topic string, payload []byte) error {
	msg := &packet.Message{
		Topic:   topic,
		Payload: payload,
		QOS:     packet.QOSAtLeastOnce,
	}
	return self.m.Publish(ctx, msg)
}

func (self *transportGomqtt) Close() {
	if self.m != nil {
		_ = self.m.Close()
	}
}

func networkTimeout(c tele_config.Config) time.Duration {
	d := helpers.IntSecondDefault(c.NetworkTimeoutSec, DefaultNetworkTimeout)
	if d < time.Second {
		d = time.Second
	}
	return d
}

func loadTLSConfig(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return nil, nil
	}
	cabytes, err := ioutil.ReadFile(caFile)
	if err != nil {
		return nil, errors.Annotate(err, "tls_ca_file")
	}
	conf := &tls.Config{RootCAs: x509.NewCertPool()}
	if !conf.RootCAs.AppendCertsFromPEM(cabytes) {
		return nil, errors.NotValidf("tls_ca_file=%s no certificates", caFile)
	}
	return conf, nil
}
