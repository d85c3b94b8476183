package strcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torsten-rupp/barindex/internal/strcore"
)

func TestScanLiteralPrefixMustMatch(t *testing.T) {
	var out int64
	ok, _ := strcore.Scan("id=42", 0, "id=%d", &out)
	require.True(t, ok)
	assert.Equal(t, int64(42), out)

	ok, _ = strcore.Scan("name=42", 0, "id=%d", &out)
	assert.False(t, ok)
}

func TestScanUnquotedStringStopsAtWhitespace(t *testing.T) {
	var out string
	ok, next := strcore.Scan("token rest", 0, "%s", &out)
	require.True(t, ok)
	assert.Equal(t, "token", out)
	assert.Equal(t, 5, next)
}

func TestScanStarSkipsFieldWithoutAssigning(t *testing.T) {
	var out int64
	ok, _ := strcore.Scan("skip-me 99", 0, "%*s %d", &out)
	require.True(t, ok)
	assert.Equal(t, int64(99), out)
}

func TestParseIsScanAlias(t *testing.T) {
	var out int64
	var next int
	ok := strcore.Parse("77", 0, "%d", &next, &out)
	require.True(t, ok)
	assert.Equal(t, int64(77), out)
	assert.Equal(t, strcore.StringEnd, next)
}

func TestScanYesNoVerb(t *testing.T) {
	var out bool
	ok, _ := strcore.Scan("yes", 0, "%y", &out)
	require.True(t, ok)
	assert.True(t, out)

	ok, _ = strcore.Scan("no", 0, "%y", &out)
	require.True(t, ok)
	assert.False(t, out)
}
