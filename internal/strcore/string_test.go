package strcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torsten-rupp/barindex/internal/strcore"
)

func TestSetThenStringRoundTrips(t *testing.T) {
	cases := []string{"", "a", "hello world", "日本語", string(make([]byte, 200))}
	for _, v := range cases {
		s := strcore.New()
		s.Set(v)
		assert.Equal(t, v, s.String())
		assert.Equal(t, len(v), s.Length())
	}
}

func TestGrowthCapacityFollowsDeltaPolicy(t *testing.T) {
	s := strcore.New()
	assert.Equal(t, strcore.StartCapacity, s.Capacity())

	long := make([]byte, 100)
	s.Set(string(long))
	assert.GreaterOrEqual(t, s.Capacity(), 101)
	assert.Equal(t, 0, s.Capacity()%strcore.DeltaLength)
}

func TestStaticStringOverflowPanics(t *testing.T) {
	buf := make([]byte, 0, 4)
	s := strcore.NewStatic(buf)
	assert.Panics(t, func() {
		s.Set("too long for four bytes")
	})
}

func TestConstStringMutationPanics(t *testing.T) {
	s := strcore.NewConst("frozen")
	assert.Equal(t, "frozen", s.String())
	assert.Panics(t, func() { s.Append("x") })
	assert.Panics(t, func() { s.Clear() })
}

func TestDuplicateIsIndependentCopy(t *testing.T) {
	s := strcore.New().Set("original")
	dup := s.Duplicate()
	dup.Set("changed")
	assert.Equal(t, "original", s.String())
	assert.Equal(t, "changed", dup.String())
}

func TestEraseZeroesBackingBytesAndTruncates(t *testing.T) {
	s := strcore.New().Set("secret")
	s.Erase()
	assert.Equal(t, "", s.String())
	assert.Equal(t, 0, s.Length())
}

func TestInsertAtStringEndAppendsAtCurrentEnd(t *testing.T) {
	s := strcore.New().Set("hello")
	s.Insert(strcore.StringEnd, " world")
	assert.Equal(t, "hello world", s.String())
}

func TestInsertAtIndexSplicesContent(t *testing.T) {
	s := strcore.New().Set("helloworld")
	s.Insert(5, " ")
	assert.Equal(t, "hello world", s.String())
}

func TestRemoveWithStringEndLengthRemovesToEnd(t *testing.T) {
	s := strcore.New().Set("hello world")
	s.Remove(5, strcore.StringEnd)
	assert.Equal(t, "hello", s.String())
}

func TestSubWithStringEndIndexYieldsEmpty(t *testing.T) {
	s := strcore.New().Set("hello")
	require.Equal(t, "", s.Sub(strcore.StringEnd, 3))
}

func TestSubWithStringEndLengthReadsToEnd(t *testing.T) {
	s := strcore.New().Set("hello world")
	assert.Equal(t, "world", s.Sub(6, strcore.StringEnd))
}

func TestReplaceAllNonOverlapping(t *testing.T) {
	s := strcore.New().Set("aaaa")
	s.ReplaceAll("aa", "b")
	assert.Equal(t, "bb", s.String())
}

func TestJoinSkipsSeparatorWhenEmpty(t *testing.T) {
	s := strcore.New()
	s.Join(",", "first")
	s.Join(",", "second")
	assert.Equal(t, "first,second", s.String())
}

func TestPadLeftAndPadRight(t *testing.T) {
	s := strcore.New().Set("7")
	s.PadLeft(3, '0')
	assert.Equal(t, "007", s.String())

	s2 := strcore.New().Set("7")
	s2.PadRight(3, '0')
	assert.Equal(t, "700", s2.String())
}

func TestTrimBeginEndAndTrim(t *testing.T) {
	s := strcore.New().Set("  padded  ")
	s.Trim(" ")
	assert.Equal(t, "padded", s.String())
}

func TestToLowerToUpperASCIIOnly(t *testing.T) {
	s := strcore.New().Set("MiXeD")
	s.ToLower()
	assert.Equal(t, "mixed", s.String())
	s.ToUpper()
	assert.Equal(t, "MIXED", s.String())
}

func TestFindReturnsStringEndWhenNotFound(t *testing.T) {
	s := strcore.New().Set("hello")
	assert.Equal(t, strcore.StringEnd, s.Find(0, "zzz"))
	assert.Equal(t, 1, s.Find(0, "ell"))
}

func TestFindLastReturnsLastOccurrence(t *testing.T) {
	s := strcore.New().Set("ababab")
	assert.Equal(t, 4, s.FindLast("ab"))
}

func TestFindLastReturnsStringEndWhenAbsent(t *testing.T) {
	s := strcore.New().Set("hello")
	assert.Equal(t, strcore.StringEnd, s.FindLast("zzz"))
}

func TestAppendCharUTF8EncodesMultibyteRunes(t *testing.T) {
	s := strcore.New()
	s.AppendCharUTF8('語')
	assert.Equal(t, "語", s.String())
}
