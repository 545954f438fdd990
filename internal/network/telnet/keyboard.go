package telnet

import (
	"context"
	"fmt"
	"time"
)

// KeyCode identifies a decoded key. Printable characters carry KeyChar plus
// the character byte; everything else is a tagged special key.
type KeyCode int

const (
	KeyChar KeyCode = iota
	KeyEnter
	KeyBackspace
	KeyEscape
	KeyTab
	KeyDelete
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyUnknown
)

var keyNames = map[KeyCode]string{
	KeyEnter:     "Enter",
	KeyBackspace: "Backspace",
	KeyEscape:    "Escape",
	KeyTab:       "Tab",
	KeyDelete:    "Delete",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
	KeyF1:        "F1",
	KeyF2:        "F2",
	KeyF3:        "F3",
	KeyF4:        "F4",
	KeyF5:        "F5",
	KeyF6:        "F6",
	KeyF7:        "F7",
	KeyF8:        "F8",
	KeyF9:        "F9",
	KeyF10:       "F10",
	KeyF11:       "F11",
	KeyF12:       "F12",
	KeyUnknown:   "Unknown",
}

// KeyEvent is a single decoded keypress. It is produced and consumed within
// one read call and never persisted.
type KeyEvent struct {
	Code KeyCode
	Ch   byte // set when Code == KeyChar
}

func (k KeyEvent) String() string {
	if k.Code == KeyChar {
		return fmt.Sprintf("%q", string(k.Ch))
	}
	if name, ok := keyNames[k.Code]; ok {
		return name
	}
	return "Unknown"
}

// IsChar reports whether the event is a printable character.
func (k KeyEvent) IsChar() bool {
	return k.Code == KeyChar
}

// csiKeys maps the bytes between "ESC[" and the terminator (terminator
// included) to special keys. These are the sequences BBS clients and the
// common terminal emulators emit.
var csiKeys = map[string]KeyCode{
	"A":   KeyUp,
	"B":   KeyDown,
	"C":   KeyRight,
	"D":   KeyLeft,
	"H":   KeyHome,
	"F":   KeyEnd,
	"1~":  KeyHome,
	"3~":  KeyDelete,
	"4~":  KeyEnd,
	"5~":  KeyPageUp,
	"6~":  KeyPageDown,
	"11~": KeyF1,
	"12~": KeyF2,
	"13~": KeyF3,
	"14~": KeyF4,
	"15~": KeyF5,
	"17~": KeyF6,
	"18~": KeyF7,
	"19~": KeyF8,
	"20~": KeyF9,
	"21~": KeyF10,
	"23~": KeyF11,
	"24~": KeyF12,
}

// ss3Keys maps the byte after "ESC O" (VT100 application keypad) to F1-F4.
var ss3Keys = map[byte]KeyCode{
	'P': KeyF1,
	'Q': KeyF2,
	'R': KeyF3,
	'S': KeyF4,
}

const maxEscSequence = 10

// KeyDecoder turns the clean application byte stream into logical key
// events. The hard case is a bare ESC: it may be the Escape key or the
// start of a multi-byte sequence, and the only way to tell is whether a
// follow-up byte arrives within a short window.
type KeyDecoder struct {
	neg        *Negotiator
	escTimeout time.Duration

	// A CR that arrived as CR LF (or CR NUL) must decode as one Enter,
	// not two, so the byte after a CR is peeked and absorbed.
	pendingCR bool
}

func NewKeyDecoder(neg *Negotiator, escTimeout time.Duration) *KeyDecoder {
	return &KeyDecoder{neg: neg, escTimeout: escTimeout}
}

// ReadKey blocks until one logical key event is decoded. ok=false means the
// connection is no longer usable. Control bytes outside the decode tables
// are discarded, never surfaced.
func (d *KeyDecoder) ReadKey(ctx context.Context) (KeyEvent, bool) {
	for {
		b, ok := d.neg.Next(ctx)
		if !ok {
			return KeyEvent{}, false
		}

		if d.pendingCR {
			d.pendingCR = false
			if b == '\n' || b == 0 {
				// Second half of a CR LF / CR NUL line ending.
				continue
			}
		}

		switch {
		case b == '\r':
			d.pendingCR = true
			return KeyEvent{Code: KeyEnter}, true
		case b == '\n':
			return KeyEvent{Code: KeyEnter}, true
		case b == 0x08 || b == 0x7F:
			return KeyEvent{Code: KeyBackspace}, true
		case b == '\t':
			return KeyEvent{Code: KeyTab}, true
		case b == 0x1B:
			return d.readEscape(ctx)
		case b >= 0x20 && b <= 0x7E:
			return KeyEvent{Code: KeyChar, Ch: b}, true
		default:
			// Stray control byte; keep reading.
		}
	}
}

// readEscape resolves what follows an ESC byte. No follow-up within the
// timeout means the user pressed Escape itself.
func (d *KeyDecoder) readEscape(ctx context.Context) (KeyEvent, bool) {
	b, timedOut, ok := d.neg.NextTimeout(ctx, d.escTimeout)
	if !ok {
		return KeyEvent{}, false
	}
	if timedOut {
		return KeyEvent{Code: KeyEscape}, true
	}

	switch b {
	case '[':
		return d.readCSI(ctx)
	case 'O':
		return d.readSS3(ctx)
	default:
		// ESC followed by something we don't model; the safest reading is
		// a plain Escape press.
		return KeyEvent{Code: KeyEscape}, true
	}
}

// readCSI accumulates the bytes of an "ESC[" sequence until a terminator
// (letter or '~') arrives, then looks it up. Unmatched sequences decode to
// KeyUnknown and are absorbed, never leaked as raw control bytes.
func (d *KeyDecoder) readCSI(ctx context.Context) (KeyEvent, bool) {
	var seq []byte
	for len(seq) < maxEscSequence {
		b, timedOut, ok := d.neg.NextTimeout(ctx, d.escTimeout)
		if !ok {
			return KeyEvent{}, false
		}
		if timedOut {
			return KeyEvent{Code: KeyUnknown}, true
		}

		seq = append(seq, b)
		if isCSITerminator(b) {
			if code, found := csiKeys[string(seq)]; found {
				return KeyEvent{Code: code}, true
			}
			return KeyEvent{Code: KeyUnknown}, true
		}
	}
	return KeyEvent{Code: KeyUnknown}, true
}

func (d *KeyDecoder) readSS3(ctx context.Context) (KeyEvent, bool) {
	b, timedOut, ok := d.neg.NextTimeout(ctx, d.escTimeout)
	if !ok {
		return KeyEvent{}, false
	}
	if timedOut {
		return KeyEvent{Code: KeyUnknown}, true
	}

	if code, found := ss3Keys[b]; found {
		return KeyEvent{Code: code}, true
	}
	return KeyEvent{Code: KeyUnknown}, true
}

func isCSITerminator(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~'
}
