package bridge

import (
	"fmt"

	"github.com/wahpkg/wah/api"
	"github.com/wahpkg/wah/internal/descriptor"
)

// DescriptorAllocator issues element descriptors starting at 1:
// monotonically increasing while the free list is empty, and reusing a
// released value before advancing the counter further. Liveness is
// tracked in the same generic arena internal/descriptor.Table uses for
// WASI file descriptors, adapted here to the bridge's ed namespace.
type DescriptorAllocator struct {
	table descriptor.Table[uint64, struct{}]
	free  []uint64
	next  uint64
}

// NewDescriptorAllocator returns an empty allocator.
func NewDescriptorAllocator() *DescriptorAllocator {
	return &DescriptorAllocator{}
}

// Alloc returns the next element descriptor: a reused, released value if
// one is available, otherwise the next value off the monotonic counter.
// Fails with ErrOutOfDescriptors once the counter would reach
// api.MaxElementDescriptor (2^52).
func (a *DescriptorAllocator) Alloc() (ElementDescriptor, error) {
	var key uint64
	fromFree := len(a.free) > 0
	if fromFree {
		key = a.free[len(a.free)-1]
	} else {
		key = a.next
	}

	ed := ElementDescriptor(key + 1)
	if ed >= api.MaxElementDescriptor {
		return 0, fmt.Errorf("bridge: element descriptor %d: %w", ed, api.ErrOutOfDescriptors)
	}

	if fromFree {
		a.free = a.free[:len(a.free)-1]
	} else {
		a.next++
	}
	a.table.InsertAt(struct{}{}, key)
	return ed, nil
}

// Release frees ed for reuse by a later Alloc. A no-op if ed is not
// currently allocated.
func (a *DescriptorAllocator) Release(ed ElementDescriptor) {
	if ed == 0 {
		return
	}
	key := uint64(ed) - 1
	if _, ok := a.table.Lookup(key); !ok {
		return
	}
	a.table.Delete(key)
	a.free = append(a.free, key)
}

// Live reports whether ed is currently allocated.
func (a *DescriptorAllocator) Live(ed ElementDescriptor) bool {
	if ed == 0 {
		return false
	}
	_, ok := a.table.Lookup(uint64(ed) - 1)
	return ok
}
