package dict_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torsten-rupp/barindex/internal/dict"
)

func TestAddThenFindReturnsSameBytes(t *testing.T) {
	d := dict.New()
	d.Add([]byte("key1"), []byte("value1"))

	v, ok := d.Find([]byte("key1"))
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), v)
}

func TestFindMissingKeyReturnsNotFound(t *testing.T) {
	d := dict.New()
	_, ok := d.Find([]byte("nope"))
	assert.False(t, ok)
}

func TestAddOverwritesExistingKey(t *testing.T) {
	d := dict.New()
	d.Add([]byte("k"), []byte("first"))
	d.Add([]byte("k"), []byte("second"))

	v, ok := d.Find([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("second"), v)
	assert.Equal(t, 1, d.Len())
}

func TestRemoveThenFindReturnsNotFound(t *testing.T) {
	d := dict.New()
	d.Add([]byte("k"), []byte("v"))
	d.Remove([]byte("k"))

	_, ok := d.Find([]byte("k"))
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len())
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	d := dict.New()
	d.Remove([]byte("absent")) // must not panic
	assert.Equal(t, 0, d.Len())
}

func TestGrowthAcrossPrimeLadderPreservesAllLiveEntries(t *testing.T) {
	d := dict.New()
	const n = 3000 // forces at least one table growth past the first prime (1031)

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		val := []byte(fmt.Sprintf("val-%d", i))
		d.Add(key, val)
	}

	require.Equal(t, n, d.Len())
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		want := []byte(fmt.Sprintf("val-%d", i))
		got, ok := d.Find(key)
		require.True(t, ok, "key-%d missing after growth", i)
		assert.Equal(t, want, got)
	}
}

func TestEachVisitsEveryLiveEntry(t *testing.T) {
	d := dict.New()
	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range want {
		d.Add([]byte(k), []byte(v))
	}

	got := map[string]string{}
	d.Each(func(key, value []byte) {
		got[string(key)] = string(value)
	})
	assert.Equal(t, want, got)
}

func TestWithCloneAndFreeOwnValueStorage(t *testing.T) {
	var freed [][]byte
	d := dict.New(
		dict.WithClone(func(v []byte) []byte { return append([]byte(nil), v...) }),
		dict.WithFree(func(v []byte) { freed = append(freed, v) }),
	)

	src := []byte("owned")
	d.Add([]byte("k"), src)
	src[0] = 'X' // mutating the caller's buffer must not affect the stored copy

	v, ok := d.Find([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("owned"), v)

	d.Remove([]byte("k"))
	require.Len(t, freed, 1)
	assert.Equal(t, []byte("owned"), freed[0])
}

func TestWithCompareOverridesKeyEquality(t *testing.T) {
	caseInsensitive := func(a, b []byte) bool {
		return bytes.EqualFold(a, b)
	}
	d := dict.New(dict.WithCompare(caseInsensitive))
	d.Add([]byte("Key"), []byte("value"))

	v, ok := d.Find([]byte("KEY"))
	require.True(t, ok)
	assert.Equal(t, []byte("value"), v)
}
