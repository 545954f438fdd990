package telnet

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"
)

// ByteReader provides buffered byte-at-a-time reads over the raw socket.
// It is the leaf of the inbound pipeline; everything above it (the
// negotiator, the key decoder, the capability probe) pulls single bytes
// from here.
//
// There are two read shapes:
//   - Next blocks until a byte arrives or the connection idle timeout
//     expires; failure is terminal for the connection.
//   - NextTimeout waits at most d and reports a soft timeout, used for
//     escape-sequence disambiguation and probe replies where "no data" is a
//     normal answer, not an error.
type ByteReader struct {
	conn        net.Conn
	r           *bufio.Reader
	idleTimeout time.Duration
}

func NewByteReader(conn net.Conn, idleTimeout time.Duration) *ByteReader {
	return &ByteReader{
		conn:        conn,
		r:           bufio.NewReaderSize(conn, 256),
		idleTimeout: idleTimeout,
	}
}

// Next returns the next byte from the socket. ok=false means the
// connection is no longer usable: EOF, I/O error, cancellation, or the idle
// timeout elapsed with no traffic. There are no retries at this layer.
func (br *ByteReader) Next(ctx context.Context) (byte, bool) {
	if ctx.Err() != nil {
		return 0, false
	}

	if br.idleTimeout > 0 {
		br.conn.SetReadDeadline(time.Now().Add(br.idleTimeout))
	} else {
		br.conn.SetReadDeadline(time.Time{})
	}

	b, err := br.r.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

// NextTimeout waits up to d for the next byte. timedOut=true with
// ok=true means nothing arrived in the window; the caller falls back to a
// default rather than disconnecting. ok=false is terminal, same as Next.
func (br *ByteReader) NextTimeout(ctx context.Context, d time.Duration) (b byte, timedOut bool, ok bool) {
	if ctx.Err() != nil {
		return 0, false, false
	}

	br.conn.SetReadDeadline(time.Now().Add(d))
	b, err := br.r.ReadByte()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
			return 0, true, true
		}
		return 0, false, false
	}
	return b, false, true
}

// Buffered reports how many raw bytes are sitting in the read buffer.
func (br *ByteReader) Buffered() int {
	return br.r.Buffered()
}
