package mqtt

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/topsail/log2"
)

const testTimeout = 5 * time.Second

// testBroker serves one connection with script, then drains until client disconnects.
func testBroker(t testing.TB, script func(t testing.TB, b *transport.NetConn)) (string, <-chan struct{}) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			t.Errorf("accept err=%v", err)
			return
		}
		_ = conn.SetDeadline(time.Now().Add(testTimeout))
		b := transport.NewNetConn(conn)
		defer b.Close()
		script(t, b)
		for {
			if _, err := b.Receive(); err != nil {
				return
			}
		}
	}()
	return fmt.Sprintf("tcp://%s", ln.Addr().String()), done
}

func acceptConnect(t testing.TB, b *transport.NetConn) {
	pkt, err := b.Receive()
	require.NoError(t, err)
	assert.Equal(t, `<Connect ClientID="" KeepAlive=0 Username="" Password="" CleanSession=true Will=nil Version=4>`, pkt.String())
	connack := packet.NewConnack()
	connack.ReturnCode = packet.ConnectionAccepted
	require.NoError(t, b.Send(connack, false))
}

func testClient(t testing.TB, url string) *Client {
	mc, err := NewClient(ClientOptions{
		BrokerURL:      url,
		Log:            log2.NewStderr(log2.LDebug), // client goroutines may log after test end
		NetworkTimeout: testTimeout,
	})
	require.NoError(t, err)
	return mc
}

func TestClientConnect(t *testing.T) {
	t.Parallel()
	url, done := testBroker(t, acceptConnect)
	mc := testClient(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, mc.WaitReady(ctx))
	assert.NoError(t, mc.Close())
	<-done
}

func TestClientPublish(t *testing.T) {
	t.Parallel()
	url, done := testBroker(t, func(t testing.TB, b *transport.NetConn) {
		acceptConnect(t, b)
		pkt, err := b.Receive()
		require.NoError(t, err)
		pub, ok := pkt.(*packet.Publish)
		require.True(t, ok, PacketString(pkt))
		assert.Equal(t, "v1/gateway/telemetry", pub.Message.Topic)
		assert.Equal(t, `{"a":1}`, string(pub.Message.Payload))
		puback := packet.NewPuback()
		puback.ID = pub.ID
		require.NoError(t, b.Send(puback, false))
	})
	mc := testClient(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	err := mc.Publish(ctx, &packet.Message{Topic: "v1/gateway/telemetry", Payload: []byte(`{"a":1}`), QOS: packet.QOSAtLeastOnce})
	require.NoError(t, err)
	assert.NoError(t, mc.Close())
	<-done
}

func TestClientPublishNoPuback(t *testing.T) {
	t.Parallel()
	published := make(chan packet.ID, 1)
	url, done := testBroker(t, func(t testing.TB, b *transport.NetConn) {
		acceptConnect(t, b)
		pkt, err := b.Receive()
		require.NoError(t, err)
		pub, ok := pkt.(*packet.Publish)
		require.True(t, ok, PacketString(pkt))
		assert.Equal(t, packet.QOSAtLeastOnce, pub.Message.QOS)
		published <- pub.ID
	})
	mc := testClient(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, mc.WaitReady(ctx))

	ctx2, cancel2 := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel2()
	// QoS 0 request is upgraded, delivery needs PUBACK
	err := mc.Publish(ctx2, &packet.Message{Topic: "v1/gateway/telemetry", Payload: []byte(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), err.Error())
	assert.NotEqual(t, packet.ID(0), <-published)
	_ = mc.Close()
	<-done
}

func TestClientOptionsInvalid(t *testing.T) {
	t.Parallel()
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
	_, err = NewClient(ClientOptions{BrokerURL: "::"})
	assert.Error(t, err)
}

func TestMessageString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "message=nil", MessageString(nil))
	assert.Equal(t, `Topic="t" QOS=1 Retain=false Payload={"a":1}`, MessageString(&packet.Message{Topic: "t", QOS: 1, Payload: []byte(`{"a":1}`)}))
	assert.Equal(t, `Topic="t" QOS=0 Retain=false Payload=0102`, MessageString(&packet.Message{Topic: "t", Payload: []byte{1, 2}}))
}
