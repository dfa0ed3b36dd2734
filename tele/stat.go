package tele

import (
	"expvar"
	"fmt"
)

type Stat struct {
	Queued     expvar.Int
	Sent       expvar.Int
	SendErrors expvar.Int
	Dropped    expvar.Int // tele disabled
	Invalid    expvar.Int // queue items that can never be sent
}

var _ expvar.Var = &Stat{}

func (s *Stat) String() string {
	return fmt.Sprintf(`{"queued":%d,"sent":%d,"send_errors":%d,"dropped":%d,"invalid":%d}`,
		s.Queued.Value(), s.Sent.Value(), s.SendErrors.Value(), s.Dropped.Value(), s.Invalid.Value())
}
