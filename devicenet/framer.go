package devicenet

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/juju/errors"
	"github.com/temoto/topsail/protocol"
)

const DefaultMaxFrame = 1024

var ErrFrameTooLong = fmt.Errorf("frame too long")

type Framing uint8

const (
	FramingInvalid Framing = iota
	// Legacy devices terminate frames with \n.
	// Binary payload containing 0x0a is split, such frames fail to decode.
	FramingLine
	// Frame length is taken from the declared body length in the fixed header.
	// Wrong declared length desynchronizes the stream: missing bytes are taken from
	// the next frame. Body length reconciliation only helps with FramingLine.
	FramingHeader
)

func ParseFraming(s string) (Framing, error) {
	switch s {
	case "", "line":
		return FramingLine, nil
	case "header":
		return FramingHeader, nil
	}
	return FramingInvalid, errors.NotValidf("framing=%q", s)
}

func (f Framing) String() string {
	switch f {
	case FramingLine:
		return "line"
	case FramingHeader:
		return "header"
	}
	return fmt.Sprintf("Framing(%d)", uint8(f))
}

// Framer returns next complete frame.
// Returned slice is valid until next ReadFrame call.
// ErrFrameTooLong means oversized frame was skipped and stream is still usable.
type Framer interface {
	ReadFrame() ([]byte, error)
}

func NewFramer(f Framing, r io.Reader, max int) Framer {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	switch f {
	case FramingHeader:
		return &headerFramer{r: bufio.NewReaderSize(r, protocol.HeaderSize), max: max}
	case FramingLine, FramingInvalid:
		// room for \r\n after max payload
		return &lineFramer{r: bufio.NewReaderSize(r, max+2), max: max}
	}
	panic(fmt.Sprintf("code error NewFramer framing=%s", f))
}

type lineFramer struct {
	r   *bufio.Reader
	max int
}

func (f *lineFramer) ReadFrame() ([]byte, error) {
	for {
		line, err := f.r.ReadSlice('\n')
		switch err {
		case nil:
		case bufio.ErrBufferFull:
			// skip until delimiter
			for err == bufio.ErrBufferFull {
				_, err = f.r.ReadSlice('\n')
			}
			if err != nil {
				return nil, errors.Annotate(err, "discard long frame")
			}
			return nil, ErrFrameTooLong
		case io.EOF:
			if len(line) != 0 {
				return nil, errors.Annotatef(io.ErrUnexpectedEOF, "partial frame length=%d", len(line))
			}
			return nil, io.EOF
		default:
			return nil, err
		}

		line = line[:len(line)-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if len(line) == 0 {
			continue
		}
		if len(line) > f.max {
			return nil, ErrFrameTooLong
		}
		return line, nil
	}
}

type headerFramer struct {
	r   *bufio.Reader
	max int
	buf []byte
}

func (f *headerFramer) ReadFrame() ([]byte, error) {
	header, err := f.r.Peek(protocol.HeaderSize)
	switch err {
	case nil:
	case io.EOF:
		if len(header) == 0 {
			return nil, io.EOF
		}
		return nil, errors.Annotate(io.ErrUnexpectedEOF, "header")
	default:
		return nil, errors.Annotate(err, "header")
	}

	n := protocol.HeaderSize + int(binary.BigEndian.Uint16(header[protocol.HeaderSize-2:]))
	if n > f.max {
		if _, err = f.r.Discard(n); err != nil {
			return nil, errors.Annotate(err, "discard long frame")
		}
		return nil, ErrFrameTooLong
	}
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	frame := f.buf[:n]
	if _, err = io.ReadFull(f.r, frame); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Annotate(err, "readfull")
	}
	return frame, nil
}
