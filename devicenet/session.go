package devicenet

import (
	"github.com/juju/errors"
	"github.com/temoto/topsail/protocol"
)

// processFrame decodes, forwards and acknowledges one frame.
// Nothing here may close the connection except failed ack write.
func (s *Server) processFrame(c *deviceConn, frame []byte) {
	now := s.opt.Now()
	s.stat.Recv.Register(len(frame))
	ev := Event{Time: now, Remote: addrString(c.RemoteAddr())}

	m, err := s.opt.Decoder.DecodeFrame(frame)
	ev.Message, ev.Err = m, err
	sentinel := false
	if err != nil {
		s.stat.Errors.Add(protocol.ErrorKind(err), 1)
		s.log.Errorf("%s decode frame=%x err=%v", c, frame, err)
		ev.Frame = append([]byte(nil), frame...)
	} else {
		sentinel = m.IsSentinel()
		ev.Forwarded, ev.ForwardErr = s.processMessage(c, m)
	}

	if s.opt.AckPolicy.shouldAck(sentinel, err) {
		ack := s.opt.Decoder.Ack(now)
		if werr := c.send(ack); werr != nil {
			s.log.Errorf("%s ack err=%v", c, werr)
			_ = c.die(werr)
		} else {
			s.stat.Send.Register(len(ack))
			ev.Acked = true
		}
	}
	if s.opt.OnEvent != nil {
		s.opt.OnEvent(&ev)
	}
}

func (s *Server) processMessage(c *deviceConn, m *protocol.Message) (bool, error) {
	if lm := m.LengthMismatch; lm != nil {
		s.stat.Mismatch.Add(1)
		s.log.Warningf("%s body length mismatch declared=%d actual=%d kept=%d", c, lm.Declared, lm.Actual, lm.Kept)
	}
	if s.opt.Debug {
		s.log.Infof("%s message %s", c, m)
	} else {
		s.log.Debugf("%s message %s", c, m)
	}

	switch {
	case m.IsSentinel():
		s.stat.Sentinel.Add(1)
		s.log.Infof("%s all devices connected", c)
		return false, nil

	case m.Kind == protocol.KindRegistration:
		s.stat.Registration.Add(1)
		c.setDeviceID(m.DeviceID)
		s.log.Infof("device connected id=%s name=%s remote=%s", m.DeviceID, m.DeviceName, addrString(c.RemoteAddr()))
		return false, nil
	}

	s.stat.Reporting.Add(1)
	s.stat.Readings.Add(int64(len(m.Body.Readings)))
	if c.DeviceID() == "" {
		c.setDeviceID(m.DeviceID)
	}
	if s.opt.Forward == nil {
		return false, nil
	}
	if err := s.opt.Forward(s.ctx, m); errors.Cause(err) == ErrForwardDropped {
		s.stat.ForwardDropped.Add(1)
		s.log.Debugf("%s forward dropped device=%s", c, m.DeviceID)
		return false, nil
	} else if err != nil {
		s.stat.ForwardErrors.Add(1)
		err = errors.Annotatef(err, "forward device=%s", m.DeviceID)
		s.log.Error(err)
		return false, err
	}
	s.stat.Forwarded.Add(1)
	if s.opt.Debug {
		s.log.Infof("forwarded device=%s readings=%d", m.DeviceID, len(m.Body.Readings))
	}
	return true, nil
}
