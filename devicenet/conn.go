package devicenet

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/temoto/atomic_clock"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
)

const DefaultNetworkTimeout = 30 * time.Second

var ErrClosing = fmt.Errorf("closing")

type deviceConn struct {
	err    helpers.AtomicError
	last   atomic_clock.Clock
	framer Framer
	net    net.Conn
	opt    *ListenOptions
	log    *log2.Log
	w      io.Writer

	device atomic.Value // string, bound by registration
}

func newDeviceConn(netConn net.Conn, opt *ListenOptions, stat *Stat, log *log2.Log) *deviceConn {
	c := &deviceConn{
		net: netConn,
		opt: opt,
		log: log,
	}
	if tcp, ok := netConn.(*net.TCPConn); ok {
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(time.Minute)
	}
	statread := helpers.NewStatReader(netConn, &stat.Bytes.Recv)
	c.w = helpers.NewStatWriter(netConn, &stat.Bytes.Send)
	c.framer = NewFramer(opt.Framing, statread, opt.MaxFrame)
	c.last.SetNow()
	return c
}

func (c *deviceConn) Close() error { return c.die(ErrClosing) }

func (c *deviceConn) Closed() bool {
	_, ok := c.err.Load()
	return ok
}

// receive blocks until next frame or idle timeout.
func (c *deviceConn) receive() ([]byte, error) {
	var deadline time.Time
	if c.opt.IdleTimeout > 0 {
		deadline = time.Now().Add(c.opt.IdleTimeout)
	}
	if err := c.net.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	b, err := c.framer.ReadFrame()
	if err == nil || err == ErrFrameTooLong {
		c.last.SetNow()
	}
	return b, err
}

func (c *deviceConn) send(b []byte) error {
	return helpers.WriteAllTimeout(c.net, c.w, b, c.opt.NetworkTimeout)
}

func (c *deviceConn) DeviceID() string {
	id, _ := c.device.Load().(string)
	return id
}
func (c *deviceConn) setDeviceID(id string) { c.device.Store(id) }

func (c *deviceConn) RemoteAddr() net.Addr         { return c.net.RemoteAddr() }
func (c *deviceConn) SinceLastRecv() time.Duration { return atomic_clock.Since(&c.last) }

func (c *deviceConn) String() string {
	return fmt.Sprintf("(remote=%s device=%s)", addrString(c.RemoteAddr()), c.DeviceID())
}

func (c *deviceConn) die(e error) error {
	if err, found := c.err.StoreOnce(e); found {
		return err
	}
	_ = c.net.Close()

	// reformat some well known errors for easier log reading
	estr := e.Error()
	if neterr, ok := e.(net.Error); ok && neterr.Timeout() {
		estr = "timeout"
	} else if strings.HasSuffix(estr, "i/o timeout") {
		estr = "timeout"
	} else if strings.HasSuffix(estr, "connection reset by peer") || e == io.EOF {
		estr = "closed by remote"
	}
	c.log.Debugf("die +close device=%s local=%s remote=%s e=%s", c.DeviceID(), addrString(c.net.LocalAddr()), addrString(c.RemoteAddr()), estr)
	return e
}
