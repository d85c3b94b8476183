package strcore

// Canonical escape-character map, preserved verbatim from the legacy
// STRING_ESCAPE_CHARACTERS_MAP_FROM/TO tables.
var (
	escapeMapFrom = []byte{0x00, 0x07, 0x08, '\t', '\n', 0x0B, 0x0C, '\r', 0x1B}
	escapeMapTo   = []byte{'0', 'a', 'b', 't', 'n', 'v', 'f', 'r', 'e'}
)

func escapeTranslate(b byte) (byte, bool) {
	for i, from := range escapeMapFrom {
		if from == b {
			return escapeMapTo[i], true
		}
	}
	return 0, false
}

func unescapeTranslate(b byte) (byte, bool) {
	for i, to := range escapeMapTo {
		if to == b {
			return escapeMapFrom[i], true
		}
	}
	return 0, false
}

// Escape returns v with escapeChar and every byte in chars translated
// through the canonical map (or escaped literally if not in the map),
// prefixed by escapeChar.
func Escape(escapeChar byte, chars string, v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		b := v[i]
		if to, ok := escapeTranslate(b); ok {
			out = append(out, escapeChar, to)
			continue
		}
		if b == escapeChar || containsByte(chars, b) {
			out = append(out, escapeChar, b)
			continue
		}
		out = append(out, b)
	}
	return string(out)
}

// Unescape inverts Escape: every escapeChar prefix is consumed and its
// following byte translated back (or taken literally if not in the map).
func Unescape(escapeChar byte, v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b == escapeChar && i+1 < len(v) {
			i++
			next := v[i]
			if from, ok := unescapeTranslate(next); ok {
				out = append(out, from)
			} else {
				out = append(out, next)
			}
			continue
		}
		out = append(out, b)
	}
	return string(out)
}

const defaultEscapeChar = '\\'

// Quote wraps v in quoteChar, escaping occurrences of quoteChar and the
// escape character inside using the canonical map.
func Quote(quoteChar byte, v string) string {
	escaped := Escape(defaultEscapeChar, string(quoteChar), v)
	return string(quoteChar) + escaped + string(quoteChar)
}

// Unquote unwraps v if its first and last byte are the same byte found in
// quoteChars; otherwise returns v unchanged.
func Unquote(quoteChars string, v string) string {
	if len(v) < 2 {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if first != last || !containsByte(quoteChars, first) {
		return v
	}
	inner := v[1 : len(v)-1]
	return Unescape(defaultEscapeChar, inner)
}
