// Simulated field device: registers, sends reports, prints acknowledgments.
package main

import (
	"flag"
	"io"
	"net"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/log2"
	"github.com/temoto/topsail/protocol"
	"github.com/temoto/topsail/protocol/prototest"
)

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	addr := cmdline.String("addr", "127.0.0.1:5555", "gateway host:port")
	device := cmdline.String("device", prototest.SimDeviceID, "16 digit device id")
	name := cmdline.String("name", prototest.SimReportName, "16 char device name")
	count := cmdline.Int("count", 3, "reports to send, 0 = forever")
	interval := cmdline.Duration("interval", 2*time.Second, "pause between reports")
	readings := cmdline.Int("readings", 2, "readings per report")
	sentinel := cmdline.Bool("sentinel", true, "send sentinel registration after reports")
	framing := cmdline.String("framing", "line", "line|header")
	timeout := cmdline.Duration("timeout", 10*time.Second, "network timeout")
	_ = cmdline.Parse(os.Args[1:])
	log.SetFlags(log2.LInteractiveFlags)

	if *framing != "line" && *framing != "header" {
		log.Fatalf("invalid framing=%s", *framing)
	}
	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		log.Fatal(errors.Annotatef(err, "dial %s", *addr))
	}
	defer conn.Close()
	log.Infof("connected %s", conn.RemoteAddr())

	decoder := protocol.NewDecoder(time.Local)
	d := &simDevice{
		id:       prototest.SimCorrelationID,
		device:   *device,
		name:     *name,
		interval: uint8(interval.Seconds()),
		readings: *readings,
		rand:     helpers.RandUnix(),
	}
	s := &session{conn: conn, line: *framing == "line", timeout: *timeout, decoder: decoder}

	if err = s.exchange("registration", d.registration()); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	for i := 0; *count == 0 || i < *count; i++ {
		time.Sleep(*interval)
		if err = s.exchange("report", d.report(time.Now())); err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
	}
	if *sentinel {
		if err = s.exchange("sentinel", prototest.Registration(d.id, protocol.SentinelDeviceID, d.name)); err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
	}
}

type session struct {
	conn    net.Conn
	decoder protocol.Decoder
	line    bool
	timeout time.Duration
}

func (s *session) exchange(tag string, frame []byte) error {
	if s.line {
		if hasLineBreak(frame) {
			log.Warningf("%s frame contains line break, gateway will split it", tag)
		}
		frame = append(frame, '\n')
	}
	if err := helpers.WriteAllTimeout(s.conn, s.conn, frame, s.timeout); err != nil {
		return errors.Annotatef(err, "send %s", tag)
	}
	log.Infof("sent %s %x", tag, frame)

	ack := make([]byte, protocol.AckSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return errors.Annotate(err, "set deadline")
	}
	if _, err := io.ReadFull(s.conn, ack); err != nil {
		return errors.Annotatef(err, "read ack after %s", tag)
	}
	t, err := s.decoder.ParseAck(ack)
	if err != nil {
		return errors.Annotatef(err, "ack=%x", ack)
	}
	log.Infof("ack %x gateway time=%s", ack, t.Format(time.RFC3339))
	return nil
}
