package nodel

import "golang.org/x/exp/slices"

// NullIndex is the sentinel marking an allocated element (an element is
// free iff its next_free field is not NullIndex). An empty freelist head
// is also NullIndex; the last free element holds an out-of-range
// terminator instead, so it never reads as allocated.
const NullIndex = ^uint64(0)

// slabItem overlays a hidden next_free slot on top of the payload, the
// same trick ndl_slab_item uses in the C source: an allocated element
// is distinguished from a free one purely by next_free == NullIndex, so
// Iterate can scan linearly without a side table.
type slabItem[T any] struct {
	nextFree uint64
	data     T
}

// Slab is a dynamically growing pool of fixed-size elements with a
// freelist, returning dense integer handles that stay valid for the
// lifetime of the element they name.
type Slab[T any] struct {
	items []slabItem[T]
	free  uint64 // head of the freelist; out of range (e.g. NullIndex) if empty
	count uint64 // number of currently allocated elements
}

// NewSlab returns an empty slab.
func NewSlab[T any]() *Slab[T] {
	return &Slab[T]{free: NullIndex}
}

// Alloc returns a previously freed handle if one exists, else grows the
// slab by one element. Returns NullIndex only if T's zero value cannot
// be stored, which never happens for in-module use — Alloc cannot fail
// in this implementation, but keeps the NullIndex-on-failure contract
// the source specifies so callers can treat it uniformly with Graph.
func (s *Slab[T]) Alloc() uint64 {
	if s.free == NullIndex || s.free >= uint64(len(s.items)) {
		idx := uint64(len(s.items))
		var zero T
		s.items = append(s.items, slabItem[T]{nextFree: NullIndex, data: zero})
		s.count++
		return idx
	}

	idx := s.free
	s.free = s.items[idx].nextFree
	s.items[idx].nextFree = NullIndex
	s.count++
	return idx
}

// Free returns a handle to the freelist; a subsequent Alloc may reuse
// it. Freeing an out-of-range or already-free handle is a no-op.
func (s *Slab[T]) Free(h uint64) {
	if h >= uint64(len(s.items)) {
		return
	}
	if s.items[h].nextFree != NullIndex {
		return // already free
	}
	var zero T
	s.items[h].data = zero
	next := s.free
	if next == NullIndex {
		// NullIndex marks allocation, so the freelist's last element
		// holds an out-of-range terminator; Alloc treats any
		// out-of-range head as an empty freelist.
		next = NullIndex - 1
	}
	s.items[h].nextFree = next
	s.free = h
	s.count--
}

// Get returns a pointer to the element's payload, or nil if h is
// out of range or currently free.
func (s *Slab[T]) Get(h uint64) *T {
	if h >= uint64(len(s.items)) {
		return nil
	}
	if s.items[h].nextFree != NullIndex {
		return nil
	}
	return &s.items[h].data
}

// Allocated reports whether h names a currently allocated element.
func (s *Slab[T]) Allocated(h uint64) bool {
	return s.Get(h) != nil
}

// Len returns the number of currently allocated elements.
func (s *Slab[T]) Len() uint64 { return s.count }

// Cap returns the total number of slots the slab has ever grown to,
// allocated or free.
func (s *Slab[T]) Cap() uint64 { return uint64(len(s.items)) }

// FreeCount returns the number of slots available for reuse before the
// slab must grow.
func (s *Slab[T]) FreeCount() uint64 { return s.Cap() - s.Len() }

// Iterate yields all currently allocated handles in ascending order.
// Valid only between mutations: freeing or allocating while iterating
// invalidates the snapshot the caller is walking.
func (s *Slab[T]) Iterate() []uint64 {
	handles := make([]uint64, 0, s.count)
	for i := range s.items {
		if s.items[i].nextFree == NullIndex {
			handles = append(handles, uint64(i))
		}
	}
	return slices.Clip(handles)
}
