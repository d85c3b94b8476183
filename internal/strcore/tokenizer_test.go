package strcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torsten-rupp/barindex/internal/strcore"
)

func collectTokens(tok *strcore.Tokenizer) []string {
	var out []string
	for {
		token, _, ok := tok.GetNextToken()
		if !ok {
			break
		}
		out = append(out, token)
	}
	return out
}

func TestTokenizerSplitsOnSeparators(t *testing.T) {
	tok := strcore.NewTokenizer("a,b,,c", 0, ",", "", false)
	assert.Equal(t, []string{"a", "b", "", "c"}, collectTokens(tok))
}

func TestTokenizerSkipEmptyDropsEmptyFields(t *testing.T) {
	tok := strcore.NewTokenizer("a,,b,,,c", 0, ",", "", true)
	assert.Equal(t, []string{"a", "b", "c"}, collectTokens(tok))
}

func TestTokenizerAllSeparatorsSkipEmptyYieldsNothing(t *testing.T) {
	tok := strcore.NewTokenizer("aaa", 0, "a", "", true)
	assert.Empty(t, collectTokens(tok))
}

func TestTokenizerAllSeparatorsNoSkipYieldsSepCountPlusOneEmptyTokens(t *testing.T) {
	tok := strcore.NewTokenizer("aaa", 0, "a", "", false)
	tokens := collectTokens(tok)
	require.Len(t, tokens, 4) // 3 separators => 4 empty fields
	for _, tk := range tokens {
		assert.Equal(t, "", tk)
	}
}

func TestTokenizerQuotedSectionProtectsSeparators(t *testing.T) {
	tok := strcore.NewTokenizer(`a,"b,c",d`, 0, ",", `"`, false)
	assert.Equal(t, []string{"a", "b,c", "d"}, collectTokens(tok))
}

func TestTokenizerEscapeInsideQuotes(t *testing.T) {
	tok := strcore.NewTokenizer(`"a\"b",c`, 0, ",", `"`, false)
	assert.Equal(t, []string{`a"b`, "c"}, collectTokens(tok))
}

func TestTokenizerEmptyInputNoSkipYieldsOneEmptyToken(t *testing.T) {
	tok := strcore.NewTokenizer("", 0, ",", "", false)
	assert.Equal(t, []string{""}, collectTokens(tok))
}

func TestTokenizerEmptyInputSkipEmptyYieldsNothing(t *testing.T) {
	tok := strcore.NewTokenizer("", 0, ",", "", true)
	assert.Empty(t, collectTokens(tok))
}
