// Package dict implements the open-addressed hash map used by the
// continuous tracker (watch-handle -> watch, path -> watch) and by index
// migration (source row id -> target row id), ported from the legacy
// dictionary module (see original_source/bar/common/dictionaries.c) into
// idiomatic Go.
package dict

import (
	"bytes"
	"hash/fnv"
	"math/bits"
	"sync"
)

// primeLadder is the sequence of table sizes a dictionary grows through.
var primeLadder = []int{1031, 2053, 4099, 8209, 16411, 32771, 65537, 131101, 262147, 524309}

// rehashProbes is the number of left-rotation probe steps tried within a
// single table before moving on to the next table in the chain.
const rehashProbes = 8

// CloneFunc copies a value into dictionary-owned storage. CompareFunc
// compares two keys for equality.
type (
	CloneFunc   func(value []byte) []byte
	FreeFunc    func(value []byte)
	CompareFunc func(a, b []byte) bool
)

type entry struct {
	used  bool
	hash  uint64
	key   []byte
	value []byte
	owned bool
}

type table struct {
	size    int
	entries []entry
}

// Dictionary is an open-addressed hash map from byte-slice keys to
// byte-slice values, backed by a growable chain of fixed-capacity tables.
// A single mutex guards all operations, including iteration.
type Dictionary struct {
	mu      sync.Mutex
	tables  []*table
	clone   CloneFunc
	free    FreeFunc
	compare CompareFunc
}

// Option configures optional ownership/comparison callbacks.
type Option func(*Dictionary)

// WithClone makes the dictionary copy values into owned storage on
// insert; pairs with WithFree to release that storage on Remove/overwrite.
// Without it, values are borrowed by reference.
func WithClone(clone CloneFunc) Option { return func(d *Dictionary) { d.clone = clone } }

// WithFree releases a value previously produced by WithClone.
func WithFree(free FreeFunc) Option { return func(d *Dictionary) { d.free = free } }

// WithCompare overrides the default bytes.Equal key comparator.
func WithCompare(compare CompareFunc) Option { return func(d *Dictionary) { d.compare = compare } }

// New creates an empty dictionary.
func New(opts ...Option) *Dictionary {
	d := &Dictionary{compare: bytes.Equal}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func hashKey(key []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(key)
	return h.Sum64()
}

func rot(h uint64, n uint) uint64 {
	return bits.RotateLeft64(h, int(n))
}

// probeSequence returns the candidate indices within a table of the given
// size: h0, then rot(h,1)..rot(h,rehashProbes).
func probeSequence(h uint64, size int) []int {
	idxs := make([]int, 0, rehashProbes+1)
	idxs = append(idxs, int(h%uint64(size)))
	for n := uint(1); n <= rehashProbes; n++ {
		idxs = append(idxs, int(rot(h, n)%uint64(size)))
	}
	return idxs
}

func newTable(size int) *table {
	return &table{size: size, entries: make([]entry, size)}
}

func nextPrime(after int) (int, bool) {
	for _, p := range primeLadder {
		if p > after {
			return p, true
		}
	}
	return 0, false
}

// Add inserts key/value, replacing any existing entry for an equal key.
func (d *Dictionary) Add(key, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := hashKey(key)
	if d.setExisting(h, key, value) {
		return
	}
	if d.insertIntoSlot(h, key, value) {
		return
	}
	if d.growAndInsert(h, key, value) {
		return
	}
	d.appendTableAndInsert(h, key, value)
}

// Find returns the value for key and true, or nil/false if absent.
func (d *Dictionary) Find(key []byte) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := hashKey(key)
	if tb, idx, ok := d.locate(h, key); ok {
		return tb.entries[idx].value, true
	}
	return nil, false
}

// Remove deletes the entry for key, if any, releasing an owned value.
func (d *Dictionary) Remove(key []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := hashKey(key)
	if tb, idx, ok := d.locate(h, key); ok {
		e := &tb.entries[idx]
		if e.owned && d.free != nil {
			d.free(e.value)
		}
		*e = entry{}
	}
}

// Len returns the number of live entries across all tables.
func (d *Dictionary) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, tb := range d.tables {
		for i := range tb.entries {
			if tb.entries[i].used {
				n++
			}
		}
	}
	return n
}

// Each calls fn for every live entry, holding the dictionary lock for the
// whole iteration.
func (d *Dictionary) Each(fn func(key, value []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, tb := range d.tables {
		for i := range tb.entries {
			if tb.entries[i].used {
				fn(tb.entries[i].key, tb.entries[i].value)
			}
		}
	}
}

func (d *Dictionary) keysEqual(a, b []byte) bool {
	if d.compare != nil {
		return d.compare(a, b)
	}
	return bytes.Equal(a, b)
}

// locate finds the (table, index) of the live entry matching key. Each
// table's probe sequence is tried first; a full scan of the table is the
// fallback, so a lookup never misses an entry that insertion placed
// outside the probe sequence under heavy collision. The fallback compares
// with the key comparator alone, so a comparator looser than byte
// equality (whose equal keys hash differently) still finds the entry.
func (d *Dictionary) locate(h uint64, key []byte) (*table, int, bool) {
	for _, tb := range d.tables {
		for _, idx := range probeSequence(h, tb.size) {
			e := &tb.entries[idx]
			if e.used && e.hash == h && d.keysEqual(e.key, key) {
				return tb, idx, true
			}
		}
		for idx := range tb.entries {
			e := &tb.entries[idx]
			if e.used && d.keysEqual(e.key, key) {
				return tb, idx, true
			}
		}
	}
	return nil, 0, false
}

func (d *Dictionary) setExisting(h uint64, key, value []byte) bool {
	tb, idx, ok := d.locate(h, key)
	if !ok {
		return false
	}
	e := &tb.entries[idx]
	if e.owned && d.free != nil {
		d.free(e.value)
	}
	e.value = d.ownedValue(value)
	e.owned = d.clone != nil
	return true
}

func (d *Dictionary) ownedValue(value []byte) []byte {
	if d.clone != nil {
		return d.clone(value)
	}
	return value
}

// insertIntoSlot places a new entry into an empty slot found by any
// existing table's probe sequence.
func (d *Dictionary) insertIntoSlot(h uint64, key, value []byte) bool {
	for _, tb := range d.tables {
		for _, idx := range probeSequence(h, tb.size) {
			if !tb.entries[idx].used {
				d.place(tb, idx, h, key, value)
				return true
			}
		}
	}
	return false
}

func (d *Dictionary) place(tb *table, idx int, h uint64, key, value []byte) {
	tb.entries[idx] = entry{
		used:  true,
		hash:  h,
		key:   append([]byte(nil), key...),
		value: d.ownedValue(value),
		owned: d.clone != nil,
	}
}

// growAndInsert grows one table to the next prime-ladder size and
// reinserts its live entries plus the new one, preferring growth over
// appending a fresh table while ladder headroom remains.
func (d *Dictionary) growAndInsert(h uint64, key, value []byte) bool {
	for _, tb := range d.tables {
		next, ok := nextPrime(tb.size)
		if !ok {
			continue
		}
		old := tb.entries
		tb.size = next
		tb.entries = make([]entry, next)
		for _, e := range old {
			if e.used {
				d.reinsert(tb, e)
			}
		}
		d.place(tb, d.firstEmptySlot(tb, h), h, key, value)
		return true
	}
	return false
}

func (d *Dictionary) reinsert(tb *table, e entry) {
	idx := d.firstEmptySlot(tb, e.hash)
	tb.entries[idx] = e
}

func (d *Dictionary) firstEmptySlot(tb *table, h uint64) int {
	for _, idx := range probeSequence(h, tb.size) {
		if !tb.entries[idx].used {
			return idx
		}
	}
	for idx := range tb.entries {
		if !tb.entries[idx].used {
			return idx
		}
	}
	panic("dict: grown table has no empty slot")
}

// appendTableAndInsert appends a new table at the smallest ladder size
// and inserts the entry there.
func (d *Dictionary) appendTableAndInsert(h uint64, key, value []byte) {
	tb := newTable(primeLadder[0])
	d.tables = append(d.tables, tb)
	d.place(tb, d.firstEmptySlot(tb, h), h, key, value)
}
