package devicenet

// Values are read and modified atomically, but not consistently.

import (
	"encoding/json"
	"expvar"
	"strings"

	"github.com/juju/errors"
)

const statErrorPrefix = "error."

type Stat struct {
	Conn     expvar.Int // currently open
	Accepted expvar.Int
	Recv     CountSizePair // frames
	Send     CountSizePair // acks
	Bytes    struct {
		Recv expvar.Int
		Send expvar.Int
	}

	Registration   expvar.Int
	Reporting      expvar.Int
	Sentinel       expvar.Int
	Readings       expvar.Int
	Mismatch       expvar.Int
	TooLong        expvar.Int
	Forwarded      expvar.Int
	ForwardErrors  expvar.Int
	ForwardDropped expvar.Int // ErrForwardDropped, not counted in Forwarded
	Errors         expvar.Map // decode errors by protocol.ErrorKind
}

var _ expvar.Var = &Stat{}

type CountSizePair struct {
	Count expvar.Int
	Size  expvar.Int
}

func (csp *CountSizePair) Register(size int) {
	csp.Count.Add(1)
	csp.Size.Add(int64(size))
}

func (s *Stat) counters() map[string]*expvar.Int {
	return map[string]*expvar.Int{
		"conn":            &s.Conn,
		"accepted":        &s.Accepted,
		"recv.count":      &s.Recv.Count,
		"recv.size":       &s.Recv.Size,
		"send.count":      &s.Send.Count,
		"send.size":       &s.Send.Size,
		"bytes.recv":      &s.Bytes.Recv,
		"bytes.send":      &s.Bytes.Send,
		"registration":    &s.Registration,
		"reporting":       &s.Reporting,
		"sentinel":        &s.Sentinel,
		"readings":        &s.Readings,
		"mismatch":        &s.Mismatch,
		"too_long":        &s.TooLong,
		"forwarded":       &s.Forwarded,
		"forward_errors":  &s.ForwardErrors,
		"forward_dropped": &s.ForwardDropped,
	}
}

// Processed counts frames that decoded successfully.
func (s *Stat) Processed() int64 {
	return s.Registration.Value() + s.Reporting.Value() + s.Sentinel.Value()
}

func (s *Stat) ErrorCount(kind string) int64 {
	if v, ok := s.Errors.Get(kind).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

func (s *Stat) Snapshot() map[string]int64 {
	m := make(map[string]int64, 24)
	for k, v := range s.counters() {
		m[k] = v.Value()
	}
	s.Errors.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			m[statErrorPrefix+kv.Key] = v.Value()
		}
	})
	return m
}

func (s *Stat) String() string {
	b, err := json.Marshal(s.Snapshot())
	if err != nil {
		return "null"
	}
	return string(b)
}

func (s *Stat) MarshalBinary() ([]byte, error) { return json.Marshal(s.Snapshot()) }

// UnmarshalBinary adds stored totals to current counters.
// Open connection gauge is not restored.
func (s *Stat) UnmarshalBinary(b []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		return errors.Annotate(err, "stat unmarshal")
	}
	counters := s.counters()
	for k, v := range m {
		if strings.HasPrefix(k, statErrorPrefix) {
			s.Errors.Add(k[len(statErrorPrefix):], v)
			continue
		}
		if c, ok := counters[k]; ok && c != &s.Conn {
			c.Add(v)
		}
	}
	return nil
}
