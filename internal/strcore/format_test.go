package strcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torsten-rupp/barindex/internal/strcore"
)

func TestAppendFormatIntegerConversions(t *testing.T) {
	s := strcore.New()
	s.AppendFormat("%d-%05d-%x", int64(42), int64(7), uint64(255))
	assert.Equal(t, "42-00007-ff", s.String())
}

func TestAppendFormatStringConversionWithQuote(t *testing.T) {
	s := strcore.New()
	s.AppendFormat("%'s", "hi")
	assert.Equal(t, "'hi'", s.String())
}

func TestAppendFormatYesNoVerb(t *testing.T) {
	s := strcore.New()
	s.AppendFormat("%y/%y", true, false)
	assert.Equal(t, "yes/no", s.String())
}

func TestAppendFormatLiteralPercent(t *testing.T) {
	s := strcore.New()
	s.AppendFormat("100%%")
	assert.Equal(t, "100%", s.String())
}

func TestFormatThenParseRoundTripsIntegers(t *testing.T) {
	s := strcore.New()
	s.AppendFormat("%d", int64(1234))

	var out int64
	ok, next := strcore.Scan(s.String(), 0, "%d", &out)
	require.True(t, ok)
	assert.Equal(t, strcore.StringEnd, next)
	assert.Equal(t, int64(1234), out)
}

func TestFormatThenParseRoundTripsQuotedString(t *testing.T) {
	s := strcore.New()
	s.AppendFormat("%'s", "round trip")

	var out string
	ok, _ := strcore.Scan(s.String(), 0, "%'s", &out)
	require.True(t, ok)
	assert.Equal(t, "round trip", out)
}
