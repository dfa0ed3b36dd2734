package tele

import (
	"context"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/spq"
	"github.com/temoto/topsail/devicenet"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/protocol"
	tele_config "github.com/temoto/topsail/tele/config"
)

//go:generate protoc --go_out=./ tele.proto

const DefaultNetworkTimeout = 30 * time.Second

// Tele contract:
// - Init() fails only with invalid config, network issues ignored
// - Forward blocks at most for disk write
//   network may be slow or absent, records are delivered in background
// - records are delivered at least once, in order of arrival
// - disabled tele drops records with a warning and devicenet.ErrForwardDropped
type Tele struct { //nolint:maligned
	alive     *alive.Alive
	backoff   helpers.Backoff
	config    tele_config.Config
	format    Format
	log       *log2.Log
	now       func() time.Time
	q         *spq.Queue
	stat      Stat
	transport Transporter
}

func New() *Tele {
	return &Tele{}
}
func NewWithTransporter(trans Transporter) *Tele {
	return &Tele{transport: trans}
}

func (self *Tele) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.config = teleConfig
	self.log = log.Clone(log2.LInfo)
	self.log.SetPrefix("tele: ")
	if self.config.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	if self.now == nil {
		self.now = time.Now
	}
	self.alive = alive.NewAlive()
	if self.backoff.Max == 0 {
		self.backoff = helpers.Backoff{Min: time.Second, Max: 5 * time.Minute, K: 2}
	}

	var err error
	if self.format, err = ParseFormat(self.config.Format); err != nil {
		return err
	}
	if !self.config.Enabled {
		self.log.Warningf("tele disabled, device records will be dropped")
		self.alive.Stop()
		return nil
	}

	// test code sets .transport
	if self.transport == nil { // production path
		if self.transport, err = newTransport(self.config.Transport); err != nil {
			return err
		}
	}
	if err = self.transport.Init(ctx, self.log, self.config); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	if self.config.PersistPath == "" {
		panic("code error must set tele PersistPath")
	}
	self.q, err = spq.Open(self.config.PersistPath)
	if err != nil {
		return errors.Annotate(err, "tele queue")
	}

	self.alive.Add(1)
	go self.qworker()
	return nil
}

func (self *Tele) Enabled() bool { return self.config.Enabled }
func (self *Tele) Stat() *Stat   { return &self.stat }

// Forward stores reporting message in persistent queue for background delivery.
// Signature matches devicenet.ForwardFunc.
func (self *Tele) Forward(ctx context.Context, m *protocol.Message) error {
	if !self.config.Enabled || self.q == nil {
		self.stat.Dropped.Add(1)
		self.log.Warningf("tele disabled, dropped device=%s", m.DeviceID)
		return devicenet.ErrForwardDropped
	}
	r, err := RecordFromMessage(m, self.now())
	if err != nil {
		return errors.Annotate(err, "tele forward")
	}
	if err = self.qpushTagProto(qRecord, r); err != nil {
		return errors.Annotate(err, "tele forward")
	}
	self.stat.Queued.Add(1)
	self.log.Debugf("queued device=%s readings=%d", r.DeviceId, len(r.Readings))
	return nil
}

// Close stops background delivery. Undelivered records stay on disk.
func (self *Tele) Close() {
	if self.alive == nil {
		return
	}
	self.alive.Stop()
	if self.q != nil {
		self.q.Close()
	}
	self.alive.Wait()
	if self.transport != nil && self.config.Enabled {
		self.transport.Close()
	}
}

// denote value type in persistent queue bytes form
const (
	qRecord byte = 1
)

func (self *Tele) qworker() {
	defer self.alive.Done()
	stopch := self.alive.StopChan()
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			// success path
			b := box.Bytes()
			var del bool
			del, err = self.qhandle(b)
			if err != nil {
				self.log.Errorf("qhandle b=%x err=%v", b, err)
			}
			if del {
				if err = self.q.Delete(box); err != nil {
					self.log.Errorf("qhandle Delete b=%x err=%v", b, err)
				}
				self.backoff.Reset()
				continue
			}
			// item stays at queue head, next Peek retries it
			self.backoff.Failure()
			select {
			case <-time.After(self.backoff.DelayBefore()):
			case <-stopch:
			}

		case spq.ErrClosed:
			select {
			case <-stopch: // success path
			default:
				self.log.Errorf("CRITICAL spq closed unexpectedly")
			}
			return

		default:
			self.log.Errorf("CRITICAL spq err=%v", err)
			select {
			case <-time.After(time.Second):
			case <-stopch:
				return
			}
		}
	}
}

// qhandle returns true when item must leave the queue.
func (self *Tele) qhandle(b []byte) (bool, error) {
	if len(b) == 0 {
		self.stat.Invalid.Add(1)
		return true, errors.Errorf("spq peek=empty")
	}

	switch b[0] {
	case qRecord:
		var r Record
		if err := proto.Unmarshal(b[1:], &r); err != nil {
			self.stat.Invalid.Add(1)
			return true, err
		}
		return self.qsendRecord(&r)

	default:
		self.stat.Invalid.Add(1)
		return true, errors.Errorf("unknown kind=%d", b[0])
	}
}

func (self *Tele) qsendRecord(r *Record) (bool, error) {
	topic, payload, err := Render(self.format, self.config.Topic, r)
	if err != nil {
		self.stat.Invalid.Add(1)
		return true, errors.Annotate(err, "render") // retry will not help
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout(self.config))
	defer cancel()
	if err = self.transport.Send(ctx, topic, payload); err != nil {
		self.stat.SendErrors.Add(1)
		return false, errors.Annotatef(err, "send topic=%s", topic)
	}
	self.stat.Sent.Add(1)
	self.log.Debugf("sent topic=%s payload=%s", topic, payload)
	return true, nil
}

func (self *Tele) qpushTagProto(tag byte, pb proto.Message) error {
	buf := proto.NewBuffer(make([]byte, 0, 256))
	if err := buf.EncodeVarint(uint64(tag)); err != nil {
		return err
	}
	if err := buf.Marshal(pb); err != nil {
		return err
	}
	return self.q.Push(buf.Bytes())
}
