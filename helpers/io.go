package helpers

import (
	"io"
	"net"
	"time"
)

func WriteAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == len(b) {
			return nil
		}
		b = b[n:]
	}
	return nil
}

// WriteAllTimeout writes b to w with conn write deadline, zero timeout means no deadline.
// w may wrap conn, e.g. StatWriter.
func WriteAllTimeout(conn net.Conn, w io.Writer, b []byte, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return WriteAll(w, b)
}
