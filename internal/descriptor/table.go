// Package descriptor implements a generic free-list-backed table used to
// allocate small dense integer handles (e.g. WASI file descriptors, bridge
// element descriptors) to arbitrary values without ever reusing a handle
// that is still in use.
package descriptor

import "math/bits"

// integer is the set of key types a Table may be indexed by.
type integer interface {
	~int32 | ~uint32 | ~int64 | ~uint64
}

// Table maps small dense keys of type K to values of type V. The zero value
// is an empty, ready to use table. Keys are allocated in 64-key blocks
// tracked by a bitmask, so Insert always returns the lowest currently-free
// key and Delete makes that key available for reuse by a later Insert.
type Table[K integer, V any] struct {
	masks []uint64
	items []V
}

// Len returns the number of values currently held in the table.
func (t *Table[K, V]) Len() (n int) {
	for _, m := range t.masks {
		n += bits.OnesCount64(m)
	}
	return n
}

// Insert adds v to the table and returns the key it was assigned, the
// lowest key not currently in use.
func (t *Table[K, V]) Insert(v V) K {
	index := t.nextFreeIndex()
	return t.insertAt(v, index)
}

// InsertAt inserts v at the explicit key, growing the table if needed. It is
// the caller's responsibility to ensure key is not already in use.
func (t *Table[K, V]) InsertAt(v V, key K) K {
	return t.insertAt(v, int(key))
}

func (t *Table[K, V]) insertAt(v V, index int) K {
	t.growFor(index)
	word, bit := index/64, uint(index%64)
	t.masks[word] |= uint64(1) << bit
	t.items[index] = v
	return K(index)
}

// Lookup returns the value associated with key, and whether it was found.
func (t *Table[K, V]) Lookup(key K) (v V, ok bool) {
	index := int(key)
	if index < 0 || index >= len(t.items) {
		return v, false
	}
	word, bit := index/64, uint(index%64)
	if t.masks[word]&(uint64(1)<<bit) == 0 {
		return v, false
	}
	return t.items[index], true
}

// Delete removes key from the table, freeing it for reuse. It is a no-op if
// key is not currently in use.
func (t *Table[K, V]) Delete(key K) {
	index := int(key)
	if index < 0 || index >= len(t.items) {
		return
	}
	word, bit := index/64, uint(index%64)
	t.masks[word] &^= uint64(1) << bit
	var zero V
	t.items[index] = zero
}

// Range calls f for every key/value pair currently in the table, in
// ascending key order, until f returns false.
func (t *Table[K, V]) Range(f func(K, V) bool) {
	for word, m := range t.masks {
		for m != 0 {
			bit := bits.TrailingZeros64(m)
			m &^= uint64(1) << uint(bit)
			index := word*64 + bit
			if !f(K(index), t.items[index]) {
				return
			}
		}
	}
}

// nextFreeIndex returns the lowest index not currently marked in use,
// growing the table (conceptually) by one 64-key block if every existing
// block is full.
func (t *Table[K, V]) nextFreeIndex() int {
	for word, m := range t.masks {
		if m != ^uint64(0) {
			return word*64 + bits.TrailingZeros64(^m)
		}
	}
	return len(t.masks) * 64
}

// growFor ensures the table has enough 64-key blocks to hold index.
func (t *Table[K, V]) growFor(index int) {
	wantWords := index/64 + 1
	for len(t.masks) < wantWords {
		t.masks = append(t.masks, 0)
		var zero [64]V
		t.items = append(t.items, zero[:]...)
	}
}
