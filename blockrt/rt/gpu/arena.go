package gpu

import (
	"errors"
	"fmt"
	"sort"
)

var ErrOutOfSpace = errors.New("gpu: arena out of space")

type span struct {
	off, size uint32
}

// Arena hands out ranges of a fixed capacity address space, measured in
// elements (vertices or indices). Allocation is first fit and freed ranges
// are merged with their free neighbours.
type Arena struct {
	capacity uint32
	free     []span // sorted by offset, never adjacent
	used     map[uint32]uint32
}

func NewArena(capacity uint32) *Arena {
	a := &Arena{capacity: capacity, used: make(map[uint32]uint32)}
	if capacity > 0 {
		a.free = []span{{0, capacity}}
	}
	return a
}

func (a *Arena) Capacity() uint32 { return a.capacity }

func (a *Arena) Allocations() int { return len(a.used) }

// Used is the number of allocated elements.
func (a *Arena) Used() uint32 {
	var n uint32
	for _, s := range a.used {
		n += s
	}
	return n
}

// Largest is the biggest single range Alloc could return right now.
func (a *Arena) Largest() uint32 {
	var m uint32
	for _, s := range a.free {
		m = max(m, s.size)
	}
	return m
}

func (a *Arena) Alloc(n uint32) (uint32, error) {
	if n == 0 {
		return 0, fmt.Errorf("gpu: zero sized allocation")
	}
	for i, s := range a.free {
		if s.size < n {
			continue
		}
		off := s.off
		if s.size == n {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = span{s.off + n, s.size - n}
		}
		a.used[off] = n
		return off, nil
	}
	return 0, fmt.Errorf("%w: need %d, largest free %d of %d", ErrOutOfSpace, n, a.Largest(), a.capacity)
}

// Free returns a range obtained from Alloc. Freeing an unknown offset is a
// bookkeeping bug and panics.
func (a *Arena) Free(off uint32) {
	n, ok := a.used[off]
	if !ok {
		panic(fmt.Sprintf("gpu: free of unallocated offset %d", off))
	}
	delete(a.used, off)
	a.insert(span{off, n})
}

// Grow extends the address space to capacity. Existing ranges keep their
// offsets.
func (a *Arena) Grow(capacity uint32) {
	if capacity <= a.capacity {
		return
	}
	a.insert(span{a.capacity, capacity - a.capacity})
	a.capacity = capacity
}

func (a *Arena) insert(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off > s.off })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	// Merge with the next range, then with the previous one.
	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// grownCapacity picks the next capacity able to hold need more elements
// in one range: doubling, but at least enough for need past the current end.
func grownCapacity(cur, need, limit uint32) (uint32, error) {
	next := uint64(cur) * 2
	if next < uint64(cur)+uint64(need) {
		next = uint64(cur) + uint64(need)
	}
	if next > uint64(limit) {
		if uint64(cur)+uint64(need) > uint64(limit) {
			return cur, fmt.Errorf("%w: %d + %d exceeds limit %d", ErrOutOfSpace, cur, need, limit)
		}
		next = uint64(limit)
	}
	return uint32(next), nil
}
