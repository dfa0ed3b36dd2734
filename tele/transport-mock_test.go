package tele

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/topsail/log2"
	tele_config "github.com/temoto/topsail/tele/config"
)

type mockSent struct {
	topic   string
	payload []byte
}

type transportMock struct {
	t         testing.TB
	fail      int32 // first N Send calls fail
	calls     int32
	outBuffer int
	out       chan mockSent
	closed    int32
}

func (self *transportMock) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	if self.outBuffer == 0 {
		self.outBuffer = 16
	}
	self.out = make(chan mockSent, self.outBuffer)
	return nil
}

func (self *transportMock) Send(ctx context.Context, topic string, payload []byte) error {
	n := atomic.AddInt32(&self.calls, 1)
	if n <= atomic.LoadInt32(&self.fail) {
		self.t.Logf("mock send fail n=%d", n)
		return errors.Errorf("mock network error")
	}
	select {
	case self.out <- mockSent{topic: topic, payload: payload}:
		self.t.Logf("mock delivered topic=%s payload=%s", topic, payload)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (self *transportMock) Close() { atomic.StoreInt32(&self.closed, 1) }

func (self *transportMock) recv(t testing.TB) mockSent {
	select {
	case m := <-self.out:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("mock transport: no message")
	}
	return mockSent{}
}
