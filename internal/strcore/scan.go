package strcore

import (
	"strconv"
	"strings"
)

// Scan is the inverse of AppendFormat for the conversions
// "diucoxXefgaSsy%", with the same length modifiers; a '*' conversion
// skips a field without storing it. On success the returned nextIndex is
// StringEnd when the entire input was consumed. On mismatch, ok is false
// and no output pointer is written.
func Scan(input string, index int, format string, outs ...interface{}) (ok bool, nextIndex int) {
	start := resolveEnd(index, len(input))
	pos := start
	fi := 0
	outIdx := 0
	var assigns []func()

	fail := func() (bool, int) {
		return false, 0
	}

	for fi < len(format) {
		if format[fi] != '%' {
			if pos >= len(input) || input[pos] != format[fi] {
				return fail()
			}
			pos++
			fi++
			continue
		}
		if fi+1 < len(format) && format[fi+1] == '%' {
			if pos >= len(input) || input[pos] != '%' {
				return fail()
			}
			pos++
			fi += 2
			continue
		}
		spec, nfi, err := parseConversion(format, fi)
		if err != nil {
			return fail()
		}
		fi = nfi

		skip := spec.suppress

		consumed, matched := scanOne(input, pos, spec)
		if !matched {
			return fail()
		}
		if !skip && outIdx < len(outs) {
			out, text := outs[outIdx], input[pos:pos+consumed]
			assigns = append(assigns, func() { assignOut(out, text, spec) })
			outIdx++
		}
		pos += consumed
	}

	for _, assign := range assigns {
		assign()
	}

	if pos >= len(input) {
		return true, StringEnd
	}
	return true, pos
}

// scanOne consumes the textual representation of one conversion starting
// at input[pos] and returns how many bytes were consumed.
func scanOne(input string, pos int, spec conversionSpec) (int, bool) {
	rest := input[pos:]
	switch spec.conv {
	case 'c':
		if len(rest) == 0 {
			return 0, false
		}
		return 1, true
	case 'd', 'i':
		return scanWhile(rest, func(i int, r byte) bool {
			return (r >= '0' && r <= '9') || (i == 0 && (r == '-' || r == '+'))
		})
	case 'u', 'o', 'x', 'X':
		return scanWhile(rest, func(i int, r byte) bool {
			if spec.conv == 'x' || spec.conv == 'X' {
				return isHexByte(r)
			}
			return r >= '0' && r <= '9'
		})
	case 'e', 'E', 'f', 'F', 'g', 'G', 'a', 'A':
		return scanWhile(rest, func(i int, r byte) bool {
			return (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' ||
				r == 'e' || r == 'E'
		})
	case 's':
		return scanString(rest, spec)
	case 'S':
		return scanString(rest, spec)
	case 'y':
		if strings.HasPrefix(rest, "yes") {
			return 3, true
		}
		if strings.HasPrefix(rest, "no") {
			return 2, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func isHexByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func scanWhile(s string, pred func(i int, r byte) bool) (int, bool) {
	i := 0
	for i < len(s) && pred(i, s[i]) {
		i++
	}
	if i == 0 {
		return 0, false
	}
	return i, true
}

func scanString(rest string, spec conversionSpec) (int, bool) {
	if spec.quote != 0 && len(rest) > 0 && rest[0] == spec.quote {
		// scan through the matching, unescaped closing quote
		i := 1
		for i < len(rest) {
			if rest[i] == defaultEscapeChar && i+1 < len(rest) {
				i += 2
				continue
			}
			if rest[i] == spec.quote {
				return i + 1, true
			}
			i++
		}
		return 0, false
	}
	// unquoted: read to next whitespace or end
	i := 0
	for i < len(rest) && rest[i] != ' ' && rest[i] != '\t' && rest[i] != '\n' {
		i++
	}
	return i, true
}

func assignOut(out interface{}, text string, spec conversionSpec) {
	switch spec.conv {
	case 'd', 'i':
		if p, ok := out.(*int64); ok {
			v, _ := strconv.ParseInt(text, 10, 64)
			*p = v
		} else if p, ok := out.(*int); ok {
			v, _ := strconv.Atoi(text)
			*p = v
		}
	case 'u', 'o', 'x', 'X':
		base := 10
		if spec.conv == 'x' || spec.conv == 'X' {
			base = 16
		} else if spec.conv == 'o' {
			base = 8
		}
		if p, ok := out.(*uint64); ok {
			v, _ := strconv.ParseUint(text, base, 64)
			*p = v
		}
	case 'e', 'E', 'f', 'F', 'g', 'G', 'a', 'A':
		if p, ok := out.(*float64); ok {
			v, _ := strconv.ParseFloat(text, 64)
			*p = v
		}
	case 'c':
		if p, ok := out.(*byte); ok && len(text) > 0 {
			*p = text[0]
		}
	case 's':
		if p, ok := out.(*string); ok {
			*p = unquoteScanned(text, spec)
		}
	case 'S':
		if p, ok := out.(**String); ok {
			*p = New().Set(unquoteScanned(text, spec))
		}
	case 'y':
		if p, ok := out.(*bool); ok {
			*p = text == "yes"
		}
	}
}

func unquoteScanned(text string, spec conversionSpec) string {
	if spec.quote != 0 && len(text) >= 2 && text[0] == spec.quote && text[len(text)-1] == spec.quote {
		return Unescape(defaultEscapeChar, text[1:len(text)-1])
	}
	return text
}

// Parse is an alias of Scan matching the legacy naming
// (String_parse/String_scan were near-synonyms differing only in the
// position of the nextIndex out-parameter).
func Parse(input string, index int, format string, nextIndex *int, outs ...interface{}) bool {
	ok, ni := Scan(input, index, format, outs...)
	if nextIndex != nil {
		*nextIndex = ni
	}
	return ok
}
