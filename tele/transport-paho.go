package tele

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	tele_config "github.com/temoto/topsail/tele/config"
)

type transportPaho struct {
	log  *log2.Log
	m    mqtt.Client
	mopt *mqtt.ClientOptions
}

func (self *transportPaho) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.log = log
	mqttLog := log.Clone(log2.LDebug)
	mqttLog.SetPrefix("tele.paho: ")
	// paho loggers are package globals
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}

	tlsconf, err := loadTLSConfig(teleConfig.TlsCaFile)
	if err != nil {
		return err
	}
	netTimeout := networkTimeout(teleConfig)
	connectTimeout := netTimeout * 3
	keepalive := helpers.IntSecondDefault(teleConfig.KeepaliveSec, 60*time.Second)

	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetClientID(teleConfig.MqttClientID).
		SetUsername(teleConfig.MqttUsername).
		SetPassword(teleConfig.MqttPassword).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepalive).
		SetMaxReconnectInterval(connectTimeout).
		SetPingTimeout(netTimeout).
		SetWriteTimeout(netTimeout).
		SetOnConnectHandler(func(mqtt.Client) { self.log.Infof("mqtt connected broker=%s", teleConfig.MqttBroker) }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { self.log.Errorf("mqtt connection lost err=%v", err) })
	if tlsconf != nil {
		self.mopt.SetTLSConfig(tlsconf)
	}
	self.m = mqtt.NewClient(self.mopt)
	go self.online(ctx)
	return nil
}

// Initial connect, paho reconnects by itself after first success.
func (self *transportPaho) online(ctx context.Context) {
	for ctx.Err() == nil && !self.m.IsConnected() {
		t := self.m.Connect()
		if self.tokenWait(ctx, t, "connect") == nil {
			return
		}
		select {
		case <-time.After(self.mopt.ConnectTimeout):
		case <-ctx.Done():
		}
	}
}

func (self *transportPaho) Send(ctx context.Context, topic string, payload []byte) error {
	if !self.m.IsConnected() {
		return errors.Errorf("mqtt not connected")
	}
	t := self.m.Publish(topic, 1, false, payload)
	return self.tokenWait(ctx, t, "publish")
}

func (self *transportPaho) Close() {
	if self.m != nil && self.m.IsConnected() {
		self.m.Disconnect(uint(self.mopt.WriteTimeout / time.Millisecond))
	}
}

func (self *transportPaho) tokenWait(ctx context.Context, t mqtt.Token, tag string) error {
	timeout := self.mopt.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !t.WaitTimeout(timeout) {
		return errors.Timeoutf("mqtt %s", tag)
	}
	if err := t.Error(); err != nil {
		return errors.Annotatef(err, "mqtt %s", tag)
	}
	return nil
}
