package devicenet

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/protocol"
)

const DefaultListen = "tcp://:5555"

// ForwardFunc delivers decoded reporting message downstream.
// Called from connection goroutine, must not block for long.
// Return ErrForwardDropped when message was deliberately discarded.
type ForwardFunc func(ctx context.Context, m *protocol.Message) error

var ErrForwardDropped = fmt.Errorf("forward dropped")

type EventFunc func(*Event)

// Event describes outcome of one frame, for diagnostics.
type Event struct {
	Time       time.Time
	Remote     string
	Frame      []byte // only set when decode failed
	Message    *protocol.Message
	Err        error
	ForwardErr error
	Forwarded  bool
	Acked      bool
}

type Server struct {
	alive  *alive.Alive
	ctx    context.Context
	cancel context.CancelFunc
	conns  struct {
		sync.Mutex
		m map[*deviceConn]struct{}
	}
	listens struct {
		sync.RWMutex
		m map[string]net.Listener
	}
	log  *log2.Log
	opt  ServerOptions
	stat Stat
}

type ServerOptions struct {
	Log       *log2.Log
	Decoder   protocol.Decoder
	AckPolicy AckPolicy
	Debug     bool // log every decoded message at info level
	Forward   ForwardFunc
	OnEvent   EventFunc
	Now       func() time.Time
}

type ListenOptions struct {
	URL            string // tcp://host:port or tls://host:port
	TLS            *tls.Config
	Framing        Framing
	MaxFrame       int
	NetworkTimeout time.Duration // ack write
	IdleTimeout    time.Duration // zero keeps silent links forever
}

func NewServer(opt ServerOptions) *Server {
	if opt.AckPolicy == AckInvalid {
		opt.AckPolicy = AckAlways
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	s := &Server{
		alive: alive.NewAlive(),
		log:   opt.Log,
		opt:   opt,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conns.m = make(map[*deviceConn]struct{})
	s.listens.m = make(map[string]net.Listener)
	return s
}

func (s *Server) Addrs() []string {
	s.listens.RLock()
	defer s.listens.RUnlock()
	addrs := make([]string, 0, len(s.listens.m))
	for _, l := range s.listens.m {
		addrs = append(addrs, l.Addr().String())
	}
	return addrs
}

func (s *Server) Listen(ctx context.Context, opts []ListenOptions) error {
	s.listens.Lock()
	defer s.listens.Unlock()

	for url, ll := range s.listens.m {
		_ = ll.Close()
		delete(s.listens.m, url)
	}

	if !s.alive.Add(len(opts)) {
		return errors.Errorf("Listen after Close")
	}
	errs := make([]error, 0)
	for _, opt := range opts {
		if opt.URL == "" {
			opt.URL = DefaultListen
			s.log.Warningf("device listen not configured, using default %s", opt.URL)
		}
		if opt.Framing == FramingInvalid {
			opt.Framing = FramingLine
		}
		if opt.MaxFrame == 0 {
			opt.MaxFrame = DefaultMaxFrame
		}
		if opt.NetworkTimeout == 0 {
			opt.NetworkTimeout = DefaultNetworkTimeout
		}
		s.log.Debugf("listen url=%s framing=%s max_frame=%d ack=%s", opt.URL, opt.Framing, opt.MaxFrame, s.opt.AckPolicy)
		if err := s.listenStream(ctx, opt); err != nil {
			s.alive.Done()
			errs = append(errs, errors.Annotatef(err, "listen %s", opt.URL))
		}
	}
	return helpers.FoldErrors(errs)
}

func (s *Server) Stat() *Stat { return &s.stat }

func (s *Server) Alive() *alive.Alive { return s.alive }

// Close stops accepting, drops open device connections and waits for their goroutines.
func (s *Server) Close() error {
	s.alive.Stop()
	s.cancel()
	s.listens.Lock()
	for url, ll := range s.listens.m {
		_ = ll.Close()
		delete(s.listens.m, url)
	}
	s.listens.Unlock()
	helpers.WithLock(&s.conns, func() {
		for c := range s.conns.m {
			_ = c.die(ErrClosing)
		}
	})
	s.alive.Wait()
	return nil
}

func (s *Server) listenStream(ctx context.Context, opt ListenOptions) error {
	scheme, hostport, err := parseURI(opt.URL)
	if err != nil {
		return errors.Annotate(err, "parse url")
	}

	lc := net.ListenConfig{}
	var ll net.Listener
	switch scheme {
	case "tls":
		if opt.TLS == nil {
			return errors.NotValidf("tls listen without certificate")
		}
		if ll, err = lc.Listen(ctx, "tcp", hostport); err != nil {
			return errors.Annotate(err, "tls listen")
		}
		ll = tls.NewListener(ll, opt.TLS)

	case "tcp":
		if ll, err = lc.Listen(ctx, "tcp", hostport); err != nil {
			return errors.Annotatef(err, "net.Listen address=%s", hostport)
		}
	}
	if ll == nil {
		return errors.Errorf("unsupported listen url=%s", opt.URL)
	}

	s.listens.m[opt.URL] = ll
	go s.acceptLoop(ll, opt)
	return nil
}

func (s *Server) acceptLoop(ll net.Listener, opt ListenOptions) {
	defer s.alive.Done() // one alive subtask for each listener
	for {
		conn, err := ll.Accept()
		if !s.alive.IsRunning() {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				s.log.Errorf("accept listen=%s err=%v", addrString(ll.Addr()), err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			s.log.Error(errors.Annotatef(err, "accept listen=%s", addrString(ll.Addr())))
			s.alive.Stop()
			return
		}

		if !s.alive.Add(1) { // and one alive subtask for each connection
			_ = conn.Close()
			return
		}
		c := newDeviceConn(conn, &opt, &s.stat, s.log)
		helpers.WithLock(&s.conns, func() { s.conns.m[c] = struct{}{} })
		// Close may have swept conns before insert
		if !s.alive.IsRunning() {
			_ = c.die(ErrClosing)
		}
		go s.processConn(c)
	}
}

func (s *Server) processConn(c *deviceConn) {
	defer s.alive.Done()
	s.stat.Accepted.Add(1)
	s.stat.Conn.Add(1)
	defer s.stat.Conn.Add(-1)
	s.log.Debugf("accept remote=%s", addrString(c.RemoteAddr()))

	var err error
	for {
		var frame []byte
		frame, err = c.receive()
		if !s.alive.IsRunning() {
			err = ErrClosing
			break
		}
		if err == ErrFrameTooLong {
			s.stat.TooLong.Add(1)
			s.log.Errorf("%s frame exceeds max=%d dropped", c, c.opt.MaxFrame)
			continue
		}
		if err != nil {
			break
		}
		s.processFrame(c, frame)
	}

	// mandatory cleanup on connection closed
	closeErr := c.die(err)
	helpers.WithLock(&s.conns, func() { delete(s.conns.m, c) })
	if id := c.DeviceID(); id != "" {
		s.log.Infof("device disconnected id=%s remote=%s err=%v", id, addrString(c.RemoteAddr()), closeErr)
	}
}
