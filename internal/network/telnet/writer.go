package telnet

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
)

// Writer serializes all outbound traffic for a connection and escapes
// literal 0xFF data bytes as IAC IAC. A single mutex is the write path;
// session logic, negotiation replies, and probe sequences all funnel
// through it so partial writes never interleave.
type Writer struct {
	w      io.Writer
	logger *slog.Logger
	mu     sync.Mutex
}

func NewWriter(w io.Writer, logger *slog.Logger) *Writer {
	return &Writer{w: w, logger: logger}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Fast path: nothing to escape.
	if bytes.IndexByte(p, IAC) == -1 {
		return w.w.Write(p)
	}

	var buf bytes.Buffer
	buf.Grow(len(p) + len(p)/8)
	for _, b := range p {
		buf.WriteByte(b)
		if b == IAC {
			buf.WriteByte(IAC)
		}
	}

	if _, err = w.w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	// Report bytes consumed from p, not bytes put on the wire.
	return len(p), nil
}

// WriteCommand sends IAC followed by the given command bytes.
// Example: WriteCommand(WILL, Echo) sends IAC WILL ECHO.
func (w *Writer) WriteCommand(cmds ...byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data := make([]byte, 1+len(cmds))
	data[0] = IAC
	copy(data[1:], cmds)
	_, err := w.w.Write(data)
	return err
}

// WriteSubNegotiation wraps data in IAC SB <option> ... IAC SE.
func (w *Writer) WriteSubNegotiation(option byte, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, 0, 5+len(data))
	buf = append(buf, IAC, SB, option)
	buf = append(buf, data...)
	buf = append(buf, IAC, SE)

	_, err := w.w.Write(buf)
	return err
}
