package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/256dpi/gomqtt/client"
	"github.com/256dpi/gomqtt/client/future"
	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/atomic_clock"
	"github.com/temoto/topsail/log2"
)

const (
	DefaultNetworkTimeout = 30 * time.Second
	DefaultReconnectDelay = 3 * time.Second
)

var ErrClientClosing = fmt.Errorf("MQTT client is closing")

type ClientOptions struct {
	BrokerURL      string
	TLS            *tls.Config
	ReconnectDelay time.Duration
	NetworkTimeout time.Duration
	KeepaliveSec   uint16
	ClientID       string
	Username       string
	Password       string
	OnReady        func() // optional, each successful connect
	Log            *log2.Log

	conpkt *packet.Connect
	dialer *transport.Dialer
}

// Client publishes device records to broker with QoS 1.
// - NewClient() returns only configuration errors, network IO is done in background
// - clean session, no subscriptions, incoming PUBLISH is logged and dropped
// - reconnects every ReconnectDelay until Close()
// - one PUBLISH in flight, undelivered records are kept by caller (spq queue)
type Client struct {
	sync.Mutex

	alive   *alive.Alive
	current *clientConn
	lastID  uint32
	opt     ClientOptions
	pubmu   sync.Mutex
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.BrokerURL == "" {
		return nil, errors.NotValidf("mqtt BrokerURL empty")
	}
	if opt.NetworkTimeout == 0 {
		opt.NetworkTimeout = DefaultNetworkTimeout
	}
	if opt.ReconnectDelay == 0 {
		opt.ReconnectDelay = DefaultReconnectDelay
	}
	if u, err := url.ParseRequestURI(opt.BrokerURL); err != nil {
		return nil, errors.Annotatef(err, "config error mqtt BrokerURL=%s", opt.BrokerURL)
	} else if u.User != nil && opt.Username == "" && opt.Password == "" {
		opt.Username = u.User.Username()
		opt.Password, _ = u.User.Password()
	}
	opt.conpkt = packet.NewConnect()
	opt.conpkt.ClientID = defaultString(opt.ClientID, opt.Username)
	opt.conpkt.KeepAlive = opt.KeepaliveSec
	opt.conpkt.CleanSession = true
	opt.conpkt.Username = opt.Username
	opt.conpkt.Password = opt.Password
	opt.dialer = transport.NewDialer(transport.DialConfig{
		TLSConfig: opt.TLS,
		Timeout:   opt.NetworkTimeout,
	})

	c := &Client{
		alive:  alive.NewAlive(),
		lastID: uint32(time.Now().UnixNano()),
		opt:    opt,
	}
	_ = c.clientConn(true)
	go c.worker()
	return c, nil
}

// Close sends DISCONNECT if connected and stops reconnecting.
func (c *Client) Close() error {
	var err error
	if cc := c.clientConn(false); cc != nil && cc.getConn() != nil {
		err = cc.send(packet.NewDisconnect())
		_ = cc.die(ErrClientClosing)
	}
	c.alive.Stop()
	c.alive.Wait()
	return err
}

// Publish sends msg with QoS 1 and waits for PUBACK.
// Waits for connection until ctx is done. PUBACK timeout drops connection.
func (c *Client) Publish(ctx context.Context, msg *packet.Message) error {
	c.pubmu.Lock()
	defer c.pubmu.Unlock()

	if err := c.WaitReady(ctx); err != nil {
		return err
	}
	cc := c.clientConn(false)
	if cc == nil {
		return ErrClientClosing
	}

	publish := packet.NewPublish()
	publish.Message = *msg
	publish.Message.QOS = packet.QOSAtLeastOnce
	publish.ID = c.nextID()
	fu := cc.expectPuback(publish.ID)
	if err := cc.send(publish); err != nil {
		return errors.Annotate(err, "send PUBLISH")
	}

	timeout := c.opt.NetworkTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < timeout {
			timeout = d
		}
	}
	switch err := fu.Wait(timeout); err {
	case nil:
		return nil

	case future.ErrCanceled:
		if err, ok := fu.Result().(error); ok {
			return err
		}
		return ErrClientClosing

	default:
		return cc.die(errors.Timeoutf("PUBACK id=%d", publish.ID))
	}
}

// Returns, in this order:
// - ErrClientClosing if client stopped with Close()
// - nil if connected within context limit
// - context.Canceled if context canceled/expired before successful connection
func (c *Client) WaitReady(ctx context.Context) error {
	donech := ctx.Done()
	stopch := c.alive.StopChan()
	for {
		cc := c.clientConn(false)
		if cc != nil && cc.waitConnected(ctx) {
			return nil
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-donech:
			return context.Canceled
		case <-stopch:
			return ErrClientClosing
		}
	}
}

func (c *Client) clientConn(create bool) *clientConn {
	c.Lock()
	defer c.Unlock()
	if !c.alive.IsRunning() {
		return nil
	}
	if c.current != nil && !c.current.alive.IsRunning() {
		c.current = nil
	}
	if c.current == nil && create {
		c.current = newClientConn(c.opt)
		c.opt.Log.Debugf("connecting broker=%s", c.opt.BrokerURL)
	}
	return c.current
}

func (c *Client) nextID() packet.ID {
	u32 := atomic.AddUint32(&c.lastID, 1)
	if id := packet.ID(u32 % (1 << 16)); id != 0 {
		return id
	}
	return c.nextID()
}

// worker keeps one connection attempt alive, pausing ReconnectDelay after each loss.
func (c *Client) worker() {
	stopch := c.alive.StopChan()
	for {
		cc := c.clientConn(true)
		if cc == nil {
			return
		}
		select {
		case <-cc.alive.WaitChan():
		case <-stopch:
			_ = cc.die(ErrClientClosing)
			return
		}

		c.opt.Log.Debugf("wait ReconnectDelay=%v", c.opt.ReconnectDelay)
		select {
		case <-time.After(c.opt.ReconnectDelay):
		case <-stopch:
			return
		}
	}
}

// Single broker connection: CONNECT, pings and PUBACK matching.
// State is set once at creation, except transport.Conn which requires blocking Dial.
type clientConn struct {
	alive  *alive.Alive
	closed uint32
	confu  *future.Future
	conn   atomic.Value // transport.Conn
	opt    ClientOptions
	pingat atomic_clock.Clock // last outgoing packet
	pongat atomic_clock.Clock // last PINGRESP

	puback struct {
		sync.Mutex
		id packet.ID
		fu *future.Future
	}
}

func newClientConn(opt ClientOptions) *clientConn {
	cc := &clientConn{
		alive: alive.NewAlive(),
		confu: future.New(),
		opt:   opt,
	}
	cc.alive.Add(1)
	go cc.connect()
	return cc
}

func (cc *clientConn) die(e error) error {
	if e == nil {
		e = ErrClientClosing
	}
	if !atomic.CompareAndSwapUint32(&cc.closed, 0, 1) {
		return e
	}
	cc.alive.Stop()
	cc.confu.Cancel(e)
	cc.puback.Lock()
	if cc.puback.fu != nil {
		cc.puback.fu.Cancel(e)
	}
	cc.puback.Unlock()
	if conn := cc.getConn(); conn != nil {
		_ = conn.Close()
	}
	return e
}

func (cc *clientConn) getConn() transport.Conn {
	if x := cc.conn.Load(); x != nil {
		return x.(transport.Conn)
	}
	return nil
}

// dial, send CONNECT, wait CONNACK, start pinger and reader
func (cc *clientConn) connect() {
	defer cc.alive.Done()

	conn, err := cc.opt.dialer.Dial(cc.opt.BrokerURL)
	if err != nil {
		_ = cc.die(errors.Annotatef(err, "connect: dial broker=%s", cc.opt.BrokerURL))
		return
	}
	cc.conn.Store(conn)
	if !cc.alive.IsRunning() { // died while dialing
		_ = conn.Close()
		return
	}
	if err = cc.send(cc.opt.conpkt); err != nil {
		return
	}

	conn.SetReadTimeout(cc.opt.NetworkTimeout)
	pkt, err := conn.Receive()
	if err != nil {
		_ = cc.die(errors.Annotate(err, "connect: expect CONNACK"))
		return
	}
	connack, ok := pkt.(*packet.Connack)
	if !ok {
		_ = cc.die(errors.Annotatef(client.ErrClientExpectedConnack, "connect: server error pkt=%s", PacketString(pkt)))
		return
	}
	cc.opt.Log.Debugf("CONNACK=%s", connack.String())
	if connack.ReturnCode != packet.ConnectionAccepted {
		_ = cc.die(errors.Annotate(client.ErrClientConnectionDenied, connack.ReturnCode.String()))
		return
	}
	conn.SetReadTimeout(0)

	if !cc.alive.Add(2) {
		_ = cc.die(context.Canceled)
		return
	}
	cc.pongat.SetNow()
	go cc.pinger()
	go cc.reader()
	cc.confu.Complete(true)
	if cc.opt.OnReady != nil {
		cc.opt.OnReady()
	}
}

func (cc *clientConn) expectPuback(id packet.ID) *future.Future {
	fu := future.New()
	cc.puback.Lock()
	cc.puback.id, cc.puback.fu = id, fu
	cc.puback.Unlock()
	if !cc.alive.IsRunning() {
		fu.Cancel(ErrClientClosing)
	}
	return fu
}

func (cc *clientConn) onPuback(id packet.ID) {
	cc.puback.Lock()
	fu, expect := cc.puback.fu, cc.puback.id
	cc.puback.fu = nil
	cc.puback.Unlock()
	switch {
	case fu == nil:
		cc.opt.Log.Errorf("unexpected PUBACK id=%d", id)
	case id != expect:
		// one publish in flight, wrong id means broken session
		_ = cc.die(errors.Errorf("PUBACK id=%d expected=%d", id, expect))
	default:
		fu.Complete(id)
	}
}

// pinger sends PINGREQ when nothing was sent for keepalive*1.5-NetworkTimeout
// and drops connection without PINGRESP for keepalive*1.5.
func (cc *clientConn) pinger() {
	defer cc.alive.Done()
	if cc.opt.KeepaliveSec == 0 {
		return
	}

	keepalive := keepaliveAndHalf(cc.opt.KeepaliveSec)
	interval := keepalive - cc.opt.NetworkTimeout
	if interval < keepalive/2 {
		interval = keepalive / 2
	}
	stopch := cc.alive.StopChan()
	for {
		if atomic_clock.Since(&cc.pongat) > keepalive {
			_ = cc.die(client.ErrClientMissingPong)
			return
		}
		wait := interval - atomic_clock.Since(&cc.pingat)
		if wait <= 0 {
			if err := cc.send(packet.NewPingreq()); err != nil {
				return
			}
			wait = interval
		}
		select {
		case <-time.After(wait):
		case <-stopch:
			return
		}
	}
}

func (cc *clientConn) reader() {
	defer cc.alive.Done()

	conn := cc.getConn()
	for {
		pkt, err := conn.Receive()
		if !cc.alive.IsRunning() {
			return
		}
		switch err {
		case nil:
		case io.EOF:
			cc.opt.Log.Errorf("server closed connection")
			_ = cc.die(nil)
			return
		default:
			_ = cc.die(errors.Annotate(err, "receive"))
			return
		}
		cc.opt.Log.Debugf("received=%s", PacketString(pkt))

		switch pt := pkt.(type) {
		case *packet.Pingresp:
			cc.pongat.SetNow()
		case *packet.Puback:
			cc.onPuback(pt.ID)
		case *packet.Publish:
			cc.opt.Log.Errorf("unexpected message %s", MessageString(&pt.Message))
		default:
			_ = cc.die(errors.Errorf("server error unexpected pkt=%s", PacketString(pkt)))
			return
		}
	}
}

func (cc *clientConn) send(p packet.Generic) error {
	conn := cc.getConn()
	if conn == nil {
		return client.ErrClientNotConnected
	}
	if err := conn.Send(p, false); err != nil {
		return cc.die(errors.Annotatef(err, "send %s", p.Type().String()))
	}
	cc.pingat.SetNow()
	cc.opt.Log.Debugf("sent %s", PacketString(p))
	return nil
}

// waitConnected returns true after CONNACK, false if connection died or ctx is done.
func (cc *clientConn) waitConnected(ctx context.Context) bool {
	poll := 500 * time.Millisecond
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d <= 0 {
			poll = 1
		} else if d < poll {
			poll = d
		}
	}
	for cc.alive.IsRunning() {
		if cc.confu.Wait(poll) == nil {
			connected, _ := cc.confu.Result().(bool)
			return connected
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}
