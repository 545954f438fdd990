package ansi

import (
	"strings"
	"unicode/utf8"
)

const (
	// ResetSeq restores terminal attributes after art output.
	ResetSeq = "\x1b[0m"

	esc = 0x1B
)

// Profile is the rendering capability set the adapter consults: whether the
// terminal honors ANSI escapes, whether it renders raw CP437, and whether
// it is a modern (UTF-8) emulator.
type Profile struct {
	ANSI   bool
	CP437  bool
	Modern bool
}

// Adapt transforms outbound content for a terminal's capabilities. It is
// total: any byte or rune without a mapping passes through untouched.
//
//   - No ANSI support: escape sequences are stripped and box-drawing glyphs
//     (Unicode or raw CP437) become +, -, |.
//   - CP437 client: content passes through unchanged; it is already in the
//     client's native encoding.
//   - Modern terminal: raw CP437 bytes are expanded to Unicode.
//   - Anything else: unchanged.
func Adapt(content string, p Profile) string {
	switch {
	case !p.ANSI:
		return toASCII(StripAnsi(content))
	case p.CP437:
		return content
	case p.Modern:
		return ExpandCP437(content)
	default:
		return content
	}
}

// StripAnsi removes ANSI escape sequences with an explicit scan rather than
// a regex: ESC '[' parameters/intermediates (0x20-0x3F) up to a final byte
// (0x40-0x7E). A bare ESC pair (ESC + one byte) is dropped as well. A
// sequence truncated at end of input is discarded.
func StripAnsi(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		b := s[i]
		if b != esc {
			sb.WriteByte(b)
			continue
		}

		if i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] >= 0x20 && s[j] <= 0x3F {
				j++
			}
			// j now sits on the final byte, or past the end if truncated.
			i = j
			continue
		}

		// ESC followed by a single command byte.
		i++
	}
	return sb.String()
}

// ExpandCP437 converts any raw CP437 high bytes in content to their Unicode
// display runes, leaving valid UTF-8 (and all ASCII) untouched. Art files
// on disk are CP437; strings built in code are UTF-8; both may appear in
// one write.
func ExpandCP437(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))

	for i := 0; i < len(content); {
		b := content[i]
		if b < 0x80 {
			sb.WriteByte(b)
			i++
			continue
		}

		if r, size := utf8.DecodeRuneInString(content[i:]); r != utf8.RuneError && size > 1 {
			sb.WriteString(content[i : i+size])
			i += size
			continue
		}

		sb.WriteRune(cp437ToUnicode[b-0x80])
		i++
	}
	return sb.String()
}

// toASCII replaces box-drawing glyphs with their ASCII stand-ins, accepting
// both Unicode runes and raw CP437 bytes. Unmapped content passes through.
func toASCII(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); {
		b := s[i]
		if b < 0x80 {
			sb.WriteByte(b)
			i++
			continue
		}

		var r rune
		var size int
		if dr, ds := utf8.DecodeRuneInString(s[i:]); dr != utf8.RuneError && ds > 1 {
			r, size = dr, ds
		} else {
			// Raw CP437 byte.
			r, size = cp437ToUnicode[b-0x80], 1
		}

		if a, ok := asciiForBox(r); ok {
			sb.WriteByte(a)
		} else if size > 1 {
			sb.WriteString(s[i : i+size])
		} else {
			sb.WriteByte(b)
		}
		i += size
	}
	return sb.String()
}

// NormalizeLineEndings rewrites every line ending as CRLF, which raw
// terminal modes require. LF-only art files otherwise stairstep.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
