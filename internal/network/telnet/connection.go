package telnet

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sphildreth/blackboard/internal/ansi"
)

// State is the connection lifecycle position.
type State int32

const (
	StateConnecting State = iota
	StateNegotiating
	StateProbing
	StateReady
	StateDisconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateProbing:
		return "probing"
	case StateReady:
		return "ready"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Options are the tunable timeouts for a connection. Zero values take the
// defaults; tests shrink them to keep suites fast.
type Options struct {
	// IdleTimeout disconnects a connection with no inbound traffic.
	IdleTimeout time.Duration
	// EscTimeout bounds the wait for bytes following an ESC before the
	// decoder settles on a plain Escape key.
	EscTimeout time.Duration
	// ProbeTimeout bounds each of the two capability probe replies.
	ProbeTimeout time.Duration
	// SettleDelay is how long Initialize drains negotiation replies before
	// probing begins.
	SettleDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.IdleTimeout == 0 {
		o.IdleTimeout = 10 * time.Minute
	}
	if o.EscTimeout == 0 {
		o.EscTimeout = 150 * time.Millisecond
	}
	if o.ProbeTimeout == 0 {
		o.ProbeTimeout = 400 * time.Millisecond
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 250 * time.Millisecond
	}
	return o
}

// Connection is the per-client façade handed to session logic. It composes
// the byte reader, the telnet negotiator, the key decoder, and the content
// adapter behind the small surface the rest of the board consumes: send
// line/text, read line/key, capability getters, disconnect.
//
// The owning goroutine issues all reads sequentially; writes from any
// goroutine are serialized by the Writer. Disconnect may be called from
// either side and is idempotent.
type Connection struct {
	conn   net.Conn
	opts   Options
	logger *slog.Logger

	br   *ByteReader
	neg  *Negotiator
	out  *Writer
	keys *KeyDecoder

	caps        CapabilitySnapshot
	connectedAt time.Time
	remoteAddr  string

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32
	echo  atomic.Bool

	closeOnce    sync.Once
	disconnected chan struct{}
}

func NewConnection(conn net.Conn, logger *slog.Logger, opts Options) *Connection {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		conn:         conn,
		opts:         opts,
		logger:       logger,
		connectedAt:  time.Now(),
		remoteAddr:   conn.RemoteAddr().String(),
		ctx:          ctx,
		cancel:       cancel,
		disconnected: make(chan struct{}),
	}
	c.br = NewByteReader(conn, opts.IdleTimeout)
	c.out = NewWriter(conn, logger)
	c.neg = NewNegotiator(c.br, c.out, logger)
	c.keys = NewKeyDecoder(c.neg, opts.EscTimeout)
	c.echo.Store(true)
	c.state.Store(int32(StateConnecting))
	return c
}

// Initialize performs option negotiation and the capability probe. It must
// complete before any session output is written, so the content adapter
// always has a defined snapshot to consult. On failure the connection is
// already disconnected when Initialize returns.
func (c *Connection) Initialize() error {
	c.state.Store(int32(StateNegotiating))

	if err := c.neg.Start(); err != nil {
		c.Disconnect()
		return err
	}

	// Give the client a bounded window to answer the option burst; replies
	// arriving later are still handled inline by the negotiator.
	c.drainNegotiation(c.opts.SettleDelay)

	c.state.Store(int32(StateProbing))
	p := &prober{neg: c.neg, out: c.out, logger: c.logger, timeout: c.opts.ProbeTimeout}
	c.caps = p.run(c.ctx)

	if !c.IsConnected() {
		return net.ErrClosed
	}

	c.state.Store(int32(StateReady))
	c.logger.Info("Connection ready",
		"addr", c.remoteAddr,
		"terminal", c.caps.TerminalType,
		"ansi", c.caps.ANSI,
		"cp437", c.caps.CP437,
		"modern", c.caps.Modern,
	)
	return nil
}

// drainNegotiation consumes and discards bytes for the settle window so IAC
// replies are processed before probing. Stray application bytes this early
// are line noise from auto-connect scripts and are dropped.
func (c *Connection) drainNegotiation(window time.Duration) {
	deadline := time.Now().Add(window)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return
		}
		if _, timedOut, ok := c.neg.NextTimeout(c.ctx, remain); !ok || timedOut {
			return
		}
	}
}

// Send writes text in the connection's negotiated encoding: CP437 for
// legacy clients, UTF-8 for modern ones, escape-stripped ASCII for
// terminals that cannot render ANSI at all.
func (c *Connection) Send(text string) error {
	var payload []byte
	switch {
	case !c.caps.ANSI:
		payload = []byte(ansi.Adapt(text, c.profile()))
	case c.caps.CP437:
		payload = ansi.EncodeCP437(text)
	default:
		payload = []byte(text)
	}

	if _, err := c.out.Write(payload); err != nil {
		c.Disconnect()
		return err
	}
	return nil
}

// SendLine writes text followed by CRLF.
func (c *Connection) SendLine(text string) error {
	return c.Send(text + "\r\n")
}

// SendAnsi adapts ANSI/CP437 art content to the terminal's capabilities and
// writes the result verbatim.
func (c *Connection) SendAnsi(content string) error {
	adapted := ansi.Adapt(content, c.profile())
	if _, err := c.out.Write([]byte(adapted)); err != nil {
		c.Disconnect()
		return err
	}
	return nil
}

// SendRaw writes bytes without encoding or adaptation. IAC escaping still
// applies.
func (c *Connection) SendRaw(p []byte) error {
	if _, err := c.out.Write(p); err != nil {
		c.Disconnect()
		return err
	}
	return nil
}

// ReadKey blocks for the next logical key event. ok=false means the
// connection is gone; the caller should unwind.
func (c *Connection) ReadKey() (KeyEvent, bool) {
	key, ok := c.keys.ReadKey(c.ctx)
	if !ok {
		c.Disconnect()
		return KeyEvent{}, false
	}
	return key, true
}

// ReadLine accumulates characters into a line, echoing as configured.
// Backspace erases, Escape clears the buffer, and Enter on an empty buffer
// is swallowed; the call returns only once at least one character was
// accepted or the peer disconnected.
func (c *Connection) ReadLine() (string, bool) {
	var buf []byte
	for {
		key, ok := c.ReadKey()
		if !ok {
			return "", false
		}

		switch key.Code {
		case KeyEnter:
			if len(buf) == 0 {
				continue
			}
			if c.echo.Load() {
				c.SendRaw([]byte("\r\n"))
			}
			return string(buf), true

		case KeyBackspace:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				if c.echo.Load() {
					c.SendRaw([]byte("\b \b"))
				}
			}

		case KeyEscape:
			if c.echo.Load() {
				for range buf {
					c.SendRaw([]byte("\b \b"))
				}
			}
			buf = buf[:0]

		case KeyChar:
			buf = append(buf, key.Ch)
			if c.echo.Load() {
				c.SendRaw([]byte{key.Ch})
			}
		}
		// Navigation and function keys have no effect on a line read.
	}
}

// SetEcho controls whether ReadLine echoes typed characters; turned off for
// password entry.
func (c *Connection) SetEcho(on bool) {
	c.echo.Store(on)
}

// Read implements io.Reader over the decoded application byte stream, for
// collaborators that want to stream (e.g. full-screen TUIs). The first byte
// blocks; buffered bytes are drained without waiting.
func (c *Connection) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b, ok := c.neg.Next(c.ctx)
	if !ok {
		c.Disconnect()
		return 0, io.EOF
	}
	p[0] = b
	n := 1

	for n < len(p) && c.br.Buffered() > 0 {
		b, timedOut, ok := c.neg.NextTimeout(c.ctx, time.Millisecond)
		if !ok || timedOut {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

// Write implements io.Writer; bytes pass through IAC escaping only.
func (c *Connection) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// Disconnect tears the connection down: cancels in-flight reads, closes the
// socket, and fires the one-shot Disconnected notification. Calling it
// again is a no-op.
func (c *Connection) Disconnect() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateDisconnecting))
		c.cancel()
		c.conn.SetReadDeadline(time.Now())
		c.conn.Close()
		close(c.disconnected)
		c.state.Store(int32(StateClosed))
		c.logger.Debug("Connection closed", "addr", c.remoteAddr)
	})
}

// Disconnected returns a channel closed exactly once when the connection
// tears down, from either side.
func (c *Connection) Disconnected() <-chan struct{} {
	return c.disconnected
}

func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) IsConnected() bool {
	s := c.State()
	return s != StateDisconnecting && s != StateClosed
}

// IsLocalOptionEnabled reports whether we have agreed to perform an option.
func (c *Connection) IsLocalOptionEnabled(option byte) bool {
	return c.neg.IsLocalOptionEnabled(option)
}

// IsRemoteOptionEnabled reports whether the client has agreed to perform an
// option.
func (c *Connection) IsRemoteOptionEnabled(option byte) bool {
	return c.neg.IsRemoteOptionEnabled(option)
}

func (c *Connection) RemoteAddress() string   { return c.remoteAddr }
func (c *Connection) ConnectedAt() time.Time  { return c.connectedAt }
func (c *Connection) SupportsAnsi() bool      { return c.caps.ANSI }
func (c *Connection) SupportsCP437() bool     { return c.caps.CP437 }
func (c *Connection) IsModernTerminal() bool  { return c.caps.Modern }
func (c *Connection) ClientSoftware() string  { return c.caps.Client }
func (c *Connection) Capabilities() CapabilitySnapshot { return c.caps }

// TerminalType returns the probe's classification, falling back to the raw
// TTYPE-negotiated value until the capability snapshot is populated.
func (c *Connection) TerminalType() string {
	if c.caps.TerminalType != "" {
		return c.caps.TerminalType
	}
	return c.neg.TerminalType()
}

// WindowSize returns the NAWS-reported dimensions, defaulting to 80x25 when
// the client never sent them.
func (c *Connection) WindowSize() (width, height int) {
	width, height = c.neg.WindowSize()
	if width <= 0 || height <= 0 {
		return 80, 25
	}
	return width, height
}

func (c *Connection) profile() ansi.Profile {
	return ansi.Profile{
		ANSI:   c.caps.ANSI,
		CP437:  c.caps.CP437,
		Modern: c.caps.Modern,
	}
}
