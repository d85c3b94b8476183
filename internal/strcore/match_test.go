package strcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/torsten-rupp/barindex/internal/strcore"
)

func TestMatchCaseSensitive(t *testing.T) {
	matched, _ := strcore.Match("^[A-Z][a-z]+$", strcore.MatchCaseSensitive, "Hello")
	assert.True(t, matched)

	matched, _ = strcore.Match("^[A-Z][a-z]+$", strcore.MatchCaseSensitive, "hello")
	assert.False(t, matched)
}

func TestMatchCaseInsensitive(t *testing.T) {
	matched, _ := strcore.Match("^hello$", strcore.MatchCaseInsensitive, "HELLO")
	assert.True(t, matched)
}

func TestMatchCapturesSubgroups(t *testing.T) {
	matched, groups := strcore.Match(`(\d+)-(\d+)`, strcore.MatchCaseSensitive, "order 42-7 done")
	assert.True(t, matched)
	assert.Equal(t, []string{"42", "7"}, groups)
}

func TestMatchInvalidPatternFailsClosed(t *testing.T) {
	matched, groups := strcore.Match("(unclosed", strcore.MatchCaseSensitive, "anything")
	assert.False(t, matched)
	assert.Nil(t, groups)
}

func TestMatchCompilationIsCached(t *testing.T) {
	pattern := "^cache-me$"
	for i := 0; i < 3; i++ {
		matched, _ := strcore.Match(pattern, strcore.MatchCaseSensitive, "cache-me")
		assert.True(t, matched)
	}
}
