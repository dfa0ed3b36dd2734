// Package monitor serves runtime counters and a live stream of device frames over HTTP.
package monitor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/topsail/devicenet"
	"github.com/temoto/topsail/log2"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type Monitor struct {
	alive   *alive.Alive
	log     *log2.Log
	server  *http.Server
	addr    net.Addr
	clients struct {
		sync.Mutex
		m map[*client]struct{}
	}
	vars struct {
		sync.RWMutex
		m map[string]expvar.Var
	}
	Dropped expvar.Int // events not delivered to slow clients
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func New(log *log2.Log) *Monitor {
	m := &Monitor{
		alive: alive.NewAlive(),
		log:   log,
	}
	m.clients.m = make(map[*client]struct{})
	m.vars.m = make(map[string]expvar.Var)
	m.Publish("monitor.dropped", &m.Dropped)
	return m
}

// Publish adds var to /debug/vars next to process-wide expvar.
func (m *Monitor) Publish(name string, v expvar.Var) {
	m.vars.Lock()
	m.vars.m[name] = v
	m.vars.Unlock()
}

func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/vars", m.handleVars)
	mux.HandleFunc("/ws", m.handleWS)
	return mux
}

func (m *Monitor) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Annotatef(err, "monitor listen=%s", addr)
	}
	if !m.alive.Add(1) {
		_ = ln.Close()
		return errors.Errorf("monitor Listen after Close")
	}
	m.addr = ln.Addr()
	m.server = &http.Server{Handler: m.Handler()}
	m.log.Infof("monitor listen=%s", m.addr)
	go func() {
		defer m.alive.Done()
		if err := m.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.log.Errorf("monitor serve err=%v", err)
		}
	}()
	return nil
}

func (m *Monitor) Addr() string {
	if m.addr == nil {
		return ""
	}
	return m.addr.String()
}

func (m *Monitor) Clients() int {
	m.clients.Lock()
	defer m.clients.Unlock()
	return len(m.clients.m)
}

func (m *Monitor) Close() {
	if !m.alive.IsRunning() {
		return
	}
	m.alive.Stop()
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		_ = m.server.Shutdown(ctx)
		cancel()
	}
	m.clients.Lock()
	for c := range m.clients.m {
		_ = c.conn.Close()
	}
	m.clients.Unlock()
	m.alive.Wait()
}

// OnEvent never blocks: events for slow clients are dropped.
// Signature matches devicenet.EventFunc.
func (m *Monitor) OnEvent(e *devicenet.Event) {
	m.clients.Lock()
	n := len(m.clients.m)
	m.clients.Unlock()
	if n == 0 {
		return
	}
	b, err := json.Marshal(NewJSONEvent(e))
	if err != nil {
		m.log.Errorf("monitor event marshal err=%v", err)
		return
	}
	m.broadcast(b)
}

func (m *Monitor) broadcast(b []byte) {
	m.clients.Lock()
	defer m.clients.Unlock()
	for c := range m.clients.m {
		select {
		case c.send <- b:
		default:
			m.Dropped.Add(1)
		}
	}
}

func (m *Monitor) handleVars(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	emit := func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	}
	expvar.Do(emit)
	m.vars.RLock()
	names := make([]string, 0, len(m.vars.m))
	for name := range m.vars.m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		emit(expvar.KeyValue{Key: name, Value: m.vars.m[name]})
	}
	m.vars.RUnlock()
	fmt.Fprintf(w, "\n}\n")
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	if !m.alive.Add(1) {
		http.Error(w, "closing", http.StatusServiceUnavailable)
		return
	}
	defer m.alive.Done()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Errorf("monitor ws upgrade remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	m.clients.Lock()
	m.clients.m[c] = struct{}{}
	m.clients.Unlock()
	m.log.Debugf("monitor ws client connected remote=%s", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// ignore client messages, read to observe close
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	stopch := m.alive.StopChan()
loop:
	for {
		select {
		case b := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				break loop
			}
		case <-done:
			break loop
		case <-stopch:
			break loop
		}
	}
	m.clients.Lock()
	delete(m.clients.m, c)
	m.clients.Unlock()
	_ = conn.Close()
	<-done
	m.log.Debugf("monitor ws client disconnected remote=%s", r.RemoteAddr)
}

type JSONReading struct {
	Status string  `json:"status"`
	Unit   string  `json:"unit"`
	Value  float64 `json:"value"`
}

type JSONEvent struct {
	Time         time.Time     `json:"time"`
	Remote       string        `json:"remote"`
	Frame        string        `json:"frame,omitempty"`
	Kind         string        `json:"kind,omitempty"`
	DeviceID     string        `json:"device_id,omitempty"`
	DeviceName   string        `json:"device_name,omitempty"`
	Sentinel     bool          `json:"sentinel,omitempty"`
	Mismatch     bool          `json:"length_mismatch,omitempty"`
	BodyTime     *time.Time    `json:"body_time,omitempty"`
	Readings     []JSONReading `json:"readings,omitempty"`
	Error        string        `json:"error,omitempty"`
	ForwardError string        `json:"forward_error,omitempty"`
	Forwarded    bool          `json:"forwarded"`
	Acked        bool          `json:"acked"`
}

func NewJSONEvent(e *devicenet.Event) *JSONEvent {
	je := &JSONEvent{
		Time:      e.Time,
		Remote:    e.Remote,
		Forwarded: e.Forwarded,
		Acked:     e.Acked,
	}
	if e.Frame != nil {
		je.Frame = hex.EncodeToString(e.Frame)
	}
	if e.Err != nil {
		je.Error = e.Err.Error()
	}
	if e.ForwardErr != nil {
		je.ForwardError = e.ForwardErr.Error()
	}
	if msg := e.Message; msg != nil {
		je.Kind = msg.Kind.String()
		je.DeviceID = msg.DeviceID
		je.DeviceName = msg.DeviceName
		je.Sentinel = msg.IsSentinel()
		je.Mismatch = msg.LengthMismatch != nil
		if msg.Body != nil {
			t := msg.Body.Time
			je.BodyTime = &t
			je.Readings = make([]JSONReading, len(msg.Body.Readings))
			for i, rd := range msg.Body.Readings {
				je.Readings[i] = JSONReading{Status: rd.Status.String(), Unit: rd.Unit.String(), Value: rd.Value}
			}
		}
	}
	return je
}
