package telnet

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// OptionState represents the negotiated state of a single Telnet option.
type OptionState int

const (
	OptionDisabled OptionState = iota
	OptionEnabled
)

// negotiationState is the IAC state machine position. It persists across
// reads, so an IAC sequence split over multiple TCP segments decodes the
// same as one that arrives intact.
type negotiationState int

const (
	stateData negotiationState = iota
	stateIAC                   // saw IAC, awaiting command byte
	stateCommand               // saw IAC WILL/WONT/DO/DONT, awaiting option byte
	stateSB                    // saw IAC SB, awaiting option byte
	stateSBData                // accumulating subnegotiation payload
	stateSBIAC                 // saw IAC inside subnegotiation payload
)

const maxSubNegotiation = 256

// Negotiator consumes the raw byte stream, intercepts and answers Telnet
// IAC sequences, and yields clean application bytes with IAC IAC collapsed
// to a literal 0xFF. It owns the per-connection NegotiationState: which
// options have been offered and accepted, the reported terminal type, and
// the NAWS window size.
type Negotiator struct {
	br     *ByteReader
	out    *Writer
	logger *slog.Logger

	state    negotiationState
	cmd      byte
	sbOption byte
	sbData   []byte

	localOptions  map[byte]OptionState // options WE perform (client sent DO)
	remoteOptions map[byte]OptionState // options the CLIENT performs (we sent DO)

	// Offers already on the wire, so an acknowledging DO/WILL is answered
	// with silence instead of a duplicate that would loop forever.
	sentWill map[byte]bool
	sentDo   map[byte]bool

	mu           sync.RWMutex
	terminalType string
	windowWidth  int
	windowHeight int
}

func NewNegotiator(br *ByteReader, out *Writer, logger *slog.Logger) *Negotiator {
	return &Negotiator{
		br:            br,
		out:           out,
		logger:        logger,
		localOptions:  make(map[byte]OptionState),
		remoteOptions: make(map[byte]OptionState),
		sentWill:      make(map[byte]bool),
		sentDo:        make(map[byte]bool),
	}
}

// Start proactively offers the option set a BBS wants: the server echoes,
// go-ahead is suppressed, and the client is asked for its terminal type and
// window size.
func (n *Negotiator) Start() error {
	if err := n.sendWill(Echo); err != nil {
		return err
	}
	if err := n.sendWill(SGA); err != nil {
		return err
	}
	if err := n.sendDo(TType); err != nil {
		return err
	}
	return n.sendDo(NAWS)
}

// Next returns the next application byte, transparently consuming and
// answering any IAC sequences in between. ok=false is terminal for the
// connection. A truncated IAC sequence at EOF is silently dropped; the
// connection is closing anyway.
func (n *Negotiator) Next(ctx context.Context) (byte, bool) {
	for {
		b, ok := n.br.Next(ctx)
		if !ok {
			return 0, false
		}
		if app, emit := n.feed(b); emit {
			return app, true
		}
	}
}

// NextTimeout is Next with a soft deadline. Bytes swallowed by the
// IAC state machine do not extend the window.
func (n *Negotiator) NextTimeout(ctx context.Context, d time.Duration) (b byte, timedOut bool, ok bool) {
	deadline := time.Now().Add(d)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return 0, true, true
		}
		b, timedOut, ok := n.br.NextTimeout(ctx, remain)
		if !ok {
			return 0, false, false
		}
		if timedOut {
			return 0, true, true
		}
		if app, emit := n.feed(b); emit {
			return app, false, true
		}
	}
}

// feed advances the state machine by one raw byte. When the byte is
// ordinary application data (or an unescaped literal 0xFF), it is returned
// with emit=true; protocol bytes are absorbed.
func (n *Negotiator) feed(b byte) (app byte, emit bool) {
	switch n.state {
	case stateData:
		if b == IAC {
			n.state = stateIAC
			return 0, false
		}
		return b, true

	case stateIAC:
		switch b {
		case IAC:
			// IAC IAC is a literal 0xFF data byte.
			n.state = stateData
			return IAC, true
		case WILL, WONT, DO, DONT:
			n.cmd = b
			n.state = stateCommand
		case SB:
			n.state = stateSB
		default:
			// Simple command with no option byte.
			n.handleSimpleCommand(b)
			n.state = stateData
		}
		return 0, false

	case stateCommand:
		n.handleNegotiation(n.cmd, b)
		n.state = stateData
		return 0, false

	case stateSB:
		n.sbOption = b
		n.sbData = n.sbData[:0]
		n.state = stateSBData
		return 0, false

	case stateSBData:
		if b == IAC {
			n.state = stateSBIAC
		} else if len(n.sbData) < maxSubNegotiation {
			n.sbData = append(n.sbData, b)
		}
		return 0, false

	case stateSBIAC:
		switch b {
		case SE:
			n.handleSubNegotiation(n.sbOption, n.sbData)
			n.state = stateData
		case IAC:
			// Escaped 0xFF inside the payload.
			if len(n.sbData) < maxSubNegotiation {
				n.sbData = append(n.sbData, IAC)
			}
			n.state = stateSBData
		default:
			// Malformed subnegotiation; abandon it.
			n.state = stateData
		}
		return 0, false
	}

	return 0, false
}

// handleNegotiation applies the fixed reply policy for WILL/WONT/DO/DONT.
func (n *Negotiator) handleNegotiation(cmd, option byte) {
	n.logCommand("IN", cmd, option)

	switch cmd {
	case DO:
		switch option {
		case Echo, SGA:
			// We offered these at Start; an acknowledging DO is answered
			// with silence. A fresh DO gets the WILL it expects.
			n.enableLocal(option)
			n.sendWill(option)
		default:
			n.sendWont(option)
		}

	case DONT:
		n.disableLocal(option)
		n.sendWont(option)

	case WILL:
		switch option {
		case SGA:
			n.enableRemote(option)
			n.sendDo(option)
		case NAWS:
			n.enableRemote(option)
			n.sendDo(option)
			// The client volunteers SB NAWS ... SE after this.
		case TType:
			n.enableRemote(option)
			n.sendDo(option)
			// Terminal type must be explicitly requested.
			n.out.WriteSubNegotiation(TType, []byte{SEND})
		default:
			n.sendDont(option)
		}

	case WONT:
		if n.IsRemoteOptionEnabled(option) {
			n.disableRemote(option)
			n.sendDont(option)
		}
	}
}

func (n *Negotiator) handleSimpleCommand(cmd byte) {
	n.logger.Debug("Telnet command [IN]", "cmd", commandName(cmd))

	switch cmd {
	case AYT:
		n.out.Write([]byte("\r\n[Yes]\r\n"))
	case NOP, DM, BRK, IP, AO, EC, EL, GA:
		// Consumed without effect.
	}
}

func (n *Negotiator) handleSubNegotiation(option byte, data []byte) {
	n.logger.Debug("Telnet subnegotiation [IN]", "opt", optionName(option), "len", len(data))

	switch option {
	case NAWS:
		// RFC 1073: IAC SB NAWS <16-bit width> <16-bit height> IAC SE
		if len(data) < 4 {
			return
		}
		width := int(binary.BigEndian.Uint16(data[0:2]))
		height := int(binary.BigEndian.Uint16(data[2:4]))
		if width <= 0 || height <= 0 {
			return
		}

		n.mu.Lock()
		n.windowWidth = width
		n.windowHeight = height
		n.mu.Unlock()

		n.logger.Debug("Telnet window size", "dims", fmt.Sprintf("%dx%d", width, height))

	case TType:
		// RFC 1091: IAC SB TTYPE IS <terminal-type-string> IAC SE
		if len(data) > 1 && data[0] == IS {
			ttype := strings.TrimSpace(string(data[1:]))
			if ttype == "" {
				return
			}

			n.mu.Lock()
			n.terminalType = ttype
			n.mu.Unlock()

			n.logger.Debug("Telnet terminal type", "type", ttype)
		}
	}
}

func (n *Negotiator) enableLocal(option byte) {
	n.mu.Lock()
	n.localOptions[option] = OptionEnabled
	n.mu.Unlock()
}

func (n *Negotiator) disableLocal(option byte) {
	n.mu.Lock()
	n.localOptions[option] = OptionDisabled
	n.mu.Unlock()
}

func (n *Negotiator) enableRemote(option byte) {
	n.mu.Lock()
	n.remoteOptions[option] = OptionEnabled
	n.mu.Unlock()
}

func (n *Negotiator) disableRemote(option byte) {
	n.mu.Lock()
	n.remoteOptions[option] = OptionDisabled
	n.mu.Unlock()
}

// IsLocalOptionEnabled reports whether we have agreed to perform an option.
func (n *Negotiator) IsLocalOptionEnabled(option byte) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.localOptions[option] == OptionEnabled
}

// IsRemoteOptionEnabled reports whether the client has agreed to perform an option.
func (n *Negotiator) IsRemoteOptionEnabled(option byte) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.remoteOptions[option] == OptionEnabled
}

// TerminalType returns the type string reported via TTYPE subnegotiation,
// or "" if the client never sent one.
func (n *Negotiator) TerminalType() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.terminalType
}

// WindowSize returns the NAWS-reported dimensions, or zeros if the client
// never sent them.
func (n *Negotiator) WindowSize() (width, height int) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.windowWidth, n.windowHeight
}

func (n *Negotiator) sendWill(option byte) error {
	if n.sentWill[option] {
		return nil
	}
	n.sentWill[option] = true
	n.enableLocal(option)
	n.logCommand("OUT", WILL, option)
	return n.out.WriteCommand(WILL, option)
}

func (n *Negotiator) sendWont(option byte) error {
	n.sentWill[option] = false
	n.logCommand("OUT", WONT, option)
	return n.out.WriteCommand(WONT, option)
}

func (n *Negotiator) sendDo(option byte) error {
	if n.sentDo[option] {
		return nil
	}
	n.sentDo[option] = true
	n.logCommand("OUT", DO, option)
	return n.out.WriteCommand(DO, option)
}

func (n *Negotiator) sendDont(option byte) error {
	n.sentDo[option] = false
	n.logCommand("OUT", DONT, option)
	return n.out.WriteCommand(DONT, option)
}

func (n *Negotiator) logCommand(direction string, cmd, option byte) {
	n.logger.Debug(fmt.Sprintf("Telnet command [%s]", direction),
		"cmd", commandName(cmd), "opt", optionName(option))
}

func commandName(cmd byte) string {
	if name, ok := CommandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", cmd)
}

func optionName(option byte) string {
	if name, ok := OptionNames[option]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", option)
}
