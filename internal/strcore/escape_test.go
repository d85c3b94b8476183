package strcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/torsten-rupp/barindex/internal/strcore"
)

func TestEscapeThenUnescapeIsIdentity(t *testing.T) {
	cases := []string{
		"plain",
		"line1\nline2\ttabbed",
		"quote\"inside",
		"back\\slash",
		"\x00\x07\x08\x0B\x0C\x1B",
		"",
	}
	for _, v := range cases {
		escaped := strcore.Escape('\\', "\"", v)
		assert.Equal(t, v, strcore.Unescape('\\', escaped))
	}
}

func TestEscapeUsesCanonicalMap(t *testing.T) {
	assert.Equal(t, `\n`, strcore.Escape('\\', "", "\n"))
	assert.Equal(t, `\t`, strcore.Escape('\\', "", "\t"))
	assert.Equal(t, `\0`, strcore.Escape('\\', "", "\x00"))
}

func TestQuoteThenUnquoteIsIdentity(t *testing.T) {
	cases := []string{"simple", "has \"quote\" inside", "has \\backslash"}
	for _, v := range cases {
		quoted := strcore.Quote('"', v)
		assert.Equal(t, v, strcore.Unquote(`"`, quoted))
	}
}

func TestUnquoteLeavesUnmatchedDelimitersAlone(t *testing.T) {
	assert.Equal(t, "no quotes here", strcore.Unquote(`"`, "no quotes here"))
	assert.Equal(t, `"mismatched'`, strcore.Unquote(`"`, `"mismatched'`))
}
