package ansi

import "strings"

// cp437ToUnicode maps the upper 128 bytes of CP437 to the runes we display
// on Unicode terminals. Indices 0-127 correspond to 0x80-0xFF.
//
// This is deliberately not a faithful CP437 decode: every double-line and
// mixed-line box glyph collapses to its single-line equivalent (0xC9 '╔'
// renders as '┌', 0xCD '═' as '─'). Single-line frames survive any modern
// font; double-line glyphs are exactly the ones that render inconsistently
// outside real CP437 fonts.
var cp437ToUnicode = [128]rune{
	'Ç', 'ü', 'é', 'â', 'ä', 'à', 'å', 'ç', // 80-87
	'ê', 'ë', 'è', 'ï', 'î', 'ì', 'Ä', 'Å', // 88-8F
	'É', 'æ', 'Æ', 'ô', 'ö', 'ò', 'û', 'ù', // 90-97
	'ÿ', 'Ö', 'Ü', '¢', '£', '¥', '₧', 'ƒ', // 98-9F
	'á', 'í', 'ó', 'ú', 'ñ', 'Ñ', 'ª', 'º', // A0-A7
	'¿', '⌐', '¬', '½', '¼', '¡', '«', '»', // A8-AF
	'░', '▒', '▓', '│', '┤', '┤', '┤', '┐', // B0-B7
	'┐', '┤', '│', '┐', '┘', '┘', '┘', '┐', // B8-BF
	'└', '┴', '┬', '├', '─', '┼', '├', '├', // C0-C7
	'└', '┌', '┴', '┬', '├', '─', '┼', '┴', // C8-CF
	'┴', '┬', '┬', '└', '└', '┌', '┌', '┼', // D0-D7
	'┼', '┘', '┌', '█', '▄', '▌', '▐', '▀', // D8-DF
	'α', 'ß', 'Γ', 'π', 'Σ', 'σ', 'µ', 'τ', // E0-E7
	'Φ', 'Θ', 'Ω', 'δ', '∞', 'φ', 'ε', '∩', // E8-EF
	'≡', '±', '≥', '≤', '⌠', '⌡', '÷', '≈', // F0-F7
	'°', '∙', '·', '√', 'ⁿ', '²', '■', ' ', // F8-FF
}

// unicodeToCP437 is the outbound direction, for encoding UTF-8 strings to
// legacy clients. Built from the display table, plus the double-line glyphs
// the display table collapsed away.
var unicodeToCP437 = func() map[rune]byte {
	m := make(map[rune]byte, 160)
	for i, r := range cp437ToUnicode {
		if _, exists := m[r]; !exists {
			m[r] = byte(i) + 0x80
		}
	}
	// Double-line box drawing has real CP437 bytes even though we never
	// produce those runes when decoding.
	for r, b := range map[rune]byte{
		'═': 0xCD,
		'║': 0xBA,
		'╔': 0xC9,
		'╗': 0xBB,
		'╚': 0xC8,
		'╝': 0xBC,
		'╠': 0xCC,
		'╣': 0xB9,
		'╦': 0xCB,
		'╩': 0xCA,
		'╬': 0xCE,
	} {
		m[r] = b
	}
	return m
}()

// DecodeCP437 converts CP437-encoded bytes to a UTF-8 string using the
// display mapping.
func DecodeCP437(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))

	for _, b := range data {
		if b < 0x80 {
			sb.WriteByte(b)
		} else {
			sb.WriteRune(cp437ToUnicode[b-0x80])
		}
	}
	return sb.String()
}

// EncodeCP437 converts a UTF-8 string to CP437 bytes for legacy clients.
// Runes with no CP437 representation become '?'.
func EncodeCP437(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x80:
			out = append(out, byte(r))
		default:
			if b, ok := unicodeToCP437[r]; ok {
				out = append(out, b)
			} else {
				out = append(out, '?')
			}
		}
	}
	return out
}

// asciiForBox returns the plain-ASCII stand-in for a box-drawing, shade, or
// block rune, for terminals that cannot render ANSI art at all.
func asciiForBox(r rune) (byte, bool) {
	switch {
	case r == '─' || r == '═':
		return '-', true
	case r == '│' || r == '║':
		return '|', true
	case r >= '┌' && r <= '╋': // corners, tees, crosses
		return '+', true
	case r >= '╒' && r <= '╬': // double/mixed corners and junctions
		return '+', true
	case r >= '▀' && r <= '▓': // blocks and shades
		return '#', true
	case r == '■':
		return '#', true
	}
	return 0, false
}
