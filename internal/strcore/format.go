package strcore

import (
	"fmt"
	"strconv"
	"strings"
)

// conversionSpec is one parsed %-directive of an appendFormat/scan
// template.
type conversionSpec struct {
	flags     string // subset of "# 0 - + "
	suppress  bool   // '*' immediately after '%': consume the field, assign nothing
	width     int
	hasWidth  bool
	precision int
	hasPrec   bool
	length    string // hh h l ll q j z t
	quote     byte   // optional quote char immediately before s/S
	conv      byte
}

func isLengthModifierByte(b byte) bool {
	switch b {
	case 'h', 'l', 'q', 'j', 'z', 't':
		return true
	default:
		return false
	}
}

func isConversionByte(b byte) bool {
	return strings.IndexByte("cdiouxXeEfFgGaAsSpnby%", b) >= 0
}

func isAlnumByte(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// parseConversion parses one %... directive starting at format[i] (which
// must be '%'); it returns the spec and the index just past the
// conversion character.
func parseConversion(format string, i int) (conversionSpec, int, error) {
	var spec conversionSpec
	i++ // skip '%'
	for i < len(format) && strings.IndexByte("#0-+ ", format[i]) >= 0 {
		spec.flags += string(format[i])
		i++
	}
	// a bare '*' right after flags is scanf's assignment-suppression
	// marker: the field is consumed but no output pointer is written.
	if i < len(format) && format[i] == '*' {
		spec.suppress = true
		i++
	}
	for i < len(format) && format[i] >= '0' && format[i] <= '9' {
		spec.hasWidth = true
		spec.width = spec.width*10 + int(format[i]-'0')
		i++
	}
	if i < len(format) && format[i] == '.' {
		i++
		spec.hasPrec = true
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			spec.precision = spec.precision*10 + int(format[i]-'0')
			i++
		}
	}
	// optional quote char: a single non-alphanumeric, non-% byte
	// immediately before s/S.
	if i < len(format) && !isLengthModifierByte(format[i]) && !isAlnumByte(format[i]) && format[i] != '%' &&
		i+1 < len(format) && (format[i+1] == 's' || format[i+1] == 'S') {
		spec.quote = format[i]
		i++
	}
	for i < len(format) && isLengthModifierByte(format[i]) {
		spec.length += string(format[i])
		i++
	}
	if i >= len(format) {
		return spec, i, fmt.Errorf("appendFormat: truncated conversion")
	}
	spec.conv = format[i]
	i++
	return spec, i, nil
}

// AppendFormat appends the printf-like expansion of format against args to
// s, per the grammar in the component design (flags, width, precision,
// length modifiers, an optional quote character before s/S, and the
// conversion table including the string-core-specific 'b'/'y' verbs).
func (s *String) AppendFormat(format string, args ...interface{}) *String {
	argi := 0
	next := func() interface{} {
		if argi >= len(args) {
			return nil
		}
		v := args[argi]
		argi++
		return v
	}

	i := 0
	for i < len(format) {
		if format[i] != '%' {
			s.AppendChar(format[i])
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			s.AppendChar('%')
			i += 2
			continue
		}
		spec, ni, err := parseConversion(format, i)
		if err != nil {
			if debugEnabled {
				panic(err)
			}
			i = len(format)
			break
		}
		i = ni
		s.appendOne(spec, next)
	}
	return s
}

func (s *String) appendOne(spec conversionSpec, next func() interface{}) {
	switch spec.conv {
	case 'c':
		v := next()
		switch c := v.(type) {
		case byte:
			s.AppendChar(c)
		case rune:
			s.AppendCharUTF8(c)
		case int:
			s.AppendCharUTF8(rune(c))
		default:
			s.Append(fmt.Sprint(v))
		}
	case 'd', 'i':
		s.Append(formatSigned(toInt64(next()), spec))
	case 'o', 'u', 'x', 'X':
		s.Append(formatUnsigned(toUint64(next()), spec))
	case 'e', 'E', 'f', 'F', 'g', 'G', 'a', 'A':
		s.Append(formatFloat(toFloat64(next()), spec))
	case 's':
		s.Append(quoteIfNeeded(spec, fmt.Sprint(next())))
	case 'S':
		v := next()
		var text string
		if cs, ok := v.(*String); ok {
			text = cs.String()
		} else {
			text = fmt.Sprint(v)
		}
		s.Append(quoteIfNeeded(spec, text))
	case 'p', 'n':
		s.Append(fmt.Sprintf("%p", next()))
	case 'b':
		s.Append(formatBinary(toUint64(next()), spec))
	case 'y':
		b, _ := next().(bool)
		if b {
			s.Append("yes")
		} else {
			s.Append("no")
		}
	default:
		if debugEnabled {
			panic(fmt.Sprintf("appendFormat: unknown conversion %%%c", spec.conv))
		}
	}
}

func quoteIfNeeded(spec conversionSpec, v string) string {
	if spec.quote == 0 {
		return v
	}
	return Quote(spec.quote, v)
}

func applyWidth(spec conversionSpec, v string) string {
	if !spec.hasWidth || len(v) >= spec.width {
		return v
	}
	pad := spec.width - len(v)
	fill := byte(' ')
	if strings.IndexByte(spec.flags, '0') >= 0 && strings.IndexByte(spec.flags, '-') < 0 {
		fill = '0'
	}
	padding := strings.Repeat(string(fill), pad)
	if strings.IndexByte(spec.flags, '-') >= 0 {
		return v + strings.Repeat(" ", pad)
	}
	return padding + v
}

func formatSigned(v int64, spec conversionSpec) string {
	out := strconv.FormatInt(v, 10)
	if v >= 0 && strings.IndexByte(spec.flags, '+') >= 0 {
		out = "+" + out
	} else if v >= 0 && strings.IndexByte(spec.flags, ' ') >= 0 {
		out = " " + out
	}
	return applyWidth(spec, out)
}

func formatUnsigned(v uint64, spec conversionSpec) string {
	base := 10
	prefix := ""
	switch spec.conv {
	case 'o':
		base = 8
		if strings.IndexByte(spec.flags, '#') >= 0 {
			prefix = "0"
		}
	case 'x':
		base = 16
		if strings.IndexByte(spec.flags, '#') >= 0 {
			prefix = "0x"
		}
	case 'X':
		base = 16
		if strings.IndexByte(spec.flags, '#') >= 0 {
			prefix = "0X"
		}
	}
	out := strconv.FormatUint(v, base)
	if spec.conv == 'X' {
		out = strings.ToUpper(out)
	}
	return applyWidth(spec, prefix+out)
}

func formatFloat(v float64, spec conversionSpec) string {
	prec := 6
	if spec.hasPrec {
		prec = spec.precision
	}
	verb := byte('f')
	switch spec.conv {
	case 'e', 'E':
		verb = spec.conv
	case 'g', 'G':
		verb = spec.conv
	case 'a', 'A':
		verb = 'x' // Go's %x float hex form approximates the C %a conversion
	}
	out := strconv.FormatFloat(v, verb, prec, 64)
	return applyWidth(spec, out)
}

func formatBinary(v uint64, spec conversionSpec) string {
	out := strconv.FormatUint(v, 2)
	minWidth := 0
	if spec.hasWidth {
		minWidth = spec.width
	}
	for len(out) < minWidth {
		out = "0" + out
	}
	return out
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	case uint:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
