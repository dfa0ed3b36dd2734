package helpers

import (
	"sync/atomic"
	"time"

	"github.com/temoto/atomic_clock"
)

// Backoff is a limited exponential retry delay.
// Zero delay until first Failure, each Failure multiplies it by K within [Min, Max].
// Safe for concurrent use.
//
//	for {
//	  time.Sleep(backoff.DelayBefore())
//	  if err := op(); err != nil {
//	    backoff.Failure()
//	  } else {
//	    backoff.Reset()
//	  }
//	}
type Backoff struct {
	next int64 // atomic align
	last atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32
}

// DelayBefore returns what is left of the current delay since last Failure or Reset.
func (b *Backoff) DelayBefore() time.Duration {
	next := b.Next()
	if next == 0 {
		return 0
	}
	delay := b.limit(next)
	if since := atomic_clock.Since(&b.last); since < delay {
		return (delay - since).Truncate(time.Millisecond)
	}
	return 0
}

// Next returns full delay DelayBefore would wait right after the last Failure.
func (b *Backoff) Next() time.Duration {
	return time.Duration(atomic.LoadInt64(&b.next))
}

func (b *Backoff) Failure() {
	next := time.Duration(float32(b.Next()) * b.K)
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(b.limit(next)))
}

func (b *Backoff) Reset() {
	b.last.SetNow()
	atomic.StoreInt64(&b.next, 0)
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if d > b.Max {
		d = b.Max
	}
	return d.Truncate(time.Millisecond)
}
