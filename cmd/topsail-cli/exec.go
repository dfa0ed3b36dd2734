package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/topsail/helpers"
	"github.com/temoto/topsail/protocol"
	"github.com/temoto/topsail/protocol/prototest"
)

const usage = `syntax: one command per line
- XX...          decode device frame from hex (spaces allowed)
- ack            show acknowledgment for current time
- ack=XX...      parse acknowledgment from hex
- tz=Zone        interpret device time in zone, e.g. tz=Asia/Shanghai
- connect ADDR   dial gateway host:port
- send XX...     send frame with line delimiter, show acknowledgment
- sim reg|report|sentinel  send captured simulator frame
- close          close gateway connection
- help           show this text
`

type cli struct {
	out     io.Writer
	decoder protocol.Decoder
	conn    net.Conn
	timeout time.Duration
	now     func() time.Time
}

func newCli(out io.Writer) *cli {
	return &cli{
		out:     out,
		decoder: protocol.NewDecoder(time.UTC),
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

func (c *cli) completer(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "ack", Description: "show acknowledgment for now"},
		{Text: "ack=", Description: "parse acknowledgment hex"},
		{Text: "tz=", Description: "device time zone"},
		{Text: "connect", Description: "dial gateway"},
		{Text: "send", Description: "send frame hex"},
		{Text: "sim", Description: "send simulator frame"},
		{Text: "close", Description: "close gateway connection"},
		{Text: "help", Description: "usage"},
	}
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func (c *cli) exec(line string) {
	if err := c.do(strings.TrimSpace(line)); err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
}

func (c *cli) do(line string) error {
	word, arg := line, ""
	if i := strings.IndexAny(line, " ="); i >= 0 {
		word, arg = line[:i], strings.TrimSpace(line[i+1:])
	}
	switch word {
	case "":
		return nil
	case "help":
		fmt.Fprint(c.out, usage)
		return nil
	case "ack":
		if arg == "" {
			fmt.Fprintf(c.out, "%x\n", c.decoder.Ack(c.now()))
			return nil
		}
		b, err := parseHex(arg)
		if err != nil {
			return err
		}
		t, err := c.decoder.ParseAck(b)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "ack time=%s\n", t.Format(time.RFC3339))
		return nil
	case "tz":
		loc, err := time.LoadLocation(arg)
		if err != nil {
			return errors.Annotate(err, "tz")
		}
		c.decoder = protocol.NewDecoder(loc)
		return nil
	case "connect":
		c.close()
		conn, err := net.DialTimeout("tcp", arg, c.timeout)
		if err != nil {
			return errors.Annotatef(err, "connect %s", arg)
		}
		c.conn = conn
		fmt.Fprintf(c.out, "connected %s\n", conn.RemoteAddr())
		return nil
	case "close":
		c.close()
		return nil
	case "send":
		b, err := parseHex(arg)
		if err != nil {
			return err
		}
		return c.send(b)
	case "sim":
		switch arg {
		case "reg":
			return c.send(prototest.SimRegistration)
		case "report":
			return c.send(prototest.SimReporting)
		case "sentinel":
			return c.send(prototest.SimSentinel)
		}
		return errors.NotValidf("sim frame=%q", arg)
	}
	b, err := parseHex(line)
	if err != nil {
		return errors.Errorf("unknown command=%q, try help", word)
	}
	return c.decode(b)
}

func (c *cli) decode(b []byte) error {
	m, err := c.decoder.DecodeFrame(b)
	if err != nil {
		fmt.Fprintf(c.out, "kind=%s\n", protocol.ErrorKind(err))
		return err
	}
	fmt.Fprintf(c.out, "%s\n", m.String())
	if m.LengthMismatch != nil {
		fmt.Fprintf(c.out, "length mismatch declared=%d actual=%d kept=%d\n",
			m.LengthMismatch.Declared, m.LengthMismatch.Actual, m.LengthMismatch.Kept)
	}
	if m.Body != nil {
		fmt.Fprintf(c.out, "time=%s interval=%ds battery=%d signal=%d\n",
			m.Body.Time.Format(time.RFC3339), m.Body.IntervalSec, m.Body.Battery, m.Body.Signal)
		for i, r := range m.Body.Readings {
			fmt.Fprintf(c.out, "reading[%d] status=%s unit=%s value=%v\n", i, r.Status, r.Unit, r.Value)
		}
	}
	return nil
}

func (c *cli) send(frame []byte) error {
	if c.conn == nil {
		return errors.Errorf("not connected, use connect ADDR")
	}
	b := append(append([]byte{}, frame...), '\n')
	if err := helpers.WriteAllTimeout(c.conn, c.conn, b, c.timeout); err != nil {
		c.close()
		return errors.Annotate(err, "send")
	}
	ack := make([]byte, protocol.AckSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	if _, err := io.ReadFull(c.conn, ack); err != nil {
		return errors.Annotate(err, "read ack")
	}
	t, err := c.decoder.ParseAck(ack)
	if err != nil {
		return errors.Annotatef(err, "ack=%x", ack)
	}
	fmt.Fprintf(c.out, "ack %x time=%s\n", ack, t.Format(time.RFC3339))
	return nil
}

func (c *cli) close() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func parseHex(s string) ([]byte, error) {
	s = strings.Replace(s, " ", "", -1)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Annotate(err, "hex")
	}
	return b, nil
}
