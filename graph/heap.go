// Package graph holds the bounded per-point candidate heaps and the k-NN graph
// assembled from them.
package graph

import (
	"math"
	"sort"
)

// Sentinel marks an empty heap slot.
const Sentinel = math.MaxUint32

// Entry is one slot of a candidate heap.
type Entry struct {
	Dist float32 // distance to the owning point, +Inf when empty
	Idx  uint32  // neighbor index, Sentinel when empty
	New  bool    // not yet used by a local join
}

// IsEmpty reports whether the slot holds no neighbor.
func (e Entry) IsEmpty() bool { return e.Idx == Sentinel }

// SortedNeighbors is a fixed-capacity max-heap keyed on distance. The root
// holds the worst retained candidate, so a push only has to beat it.
type SortedNeighbors struct {
	entries []Entry
}

// NewSortedNeighbors creates a heap of capacity k filled with empty slots.
func NewSortedNeighbors(k int) *SortedNeighbors {
	if k < 1 {
		panic("graph: heap capacity must be at least 1")
	}
	entries := make([]Entry, k)
	for i := range entries {
		entries[i] = Entry{Dist: float32(math.Inf(1)), Idx: Sentinel}
	}
	return &SortedNeighbors{entries: entries}
}

// Len returns the capacity of the heap.
func (h *SortedNeighbors) Len() int { return len(h.entries) }

// Count returns the number of filled slots.
func (h *SortedNeighbors) Count() int {
	c := 0
	for _, e := range h.entries {
		if !e.IsEmpty() {
			c++
		}
	}
	return c
}

// Furthest returns the root entry.
func (h *SortedNeighbors) Furthest() Entry { return h.entries[0] }

// Threshold returns the distance a candidate has to beat to be accepted.
func (h *SortedNeighbors) Threshold() float32 { return h.entries[0].Dist }

// Entry returns the entry at heap position i.
func (h *SortedNeighbors) Entry(i int) Entry { return h.entries[i] }

// SetNew sets the new flag of the entry at heap position i.
func (h *SortedNeighbors) SetNew(i int, isNew bool) { h.entries[i].New = isNew }

// Contains reports whether idx is one of the retained candidates.
func (h *SortedNeighbors) Contains(idx uint32) bool {
	for _, e := range h.entries {
		if e.Idx == idx {
			return true
		}
	}
	return false
}

// CheckedPush inserts idx unless it does not beat the root or is already present.
func (h *SortedNeighbors) CheckedPush(dist float32, idx uint32, isNew bool) bool {
	if dist >= h.entries[0].Dist {
		return false
	}
	if h.Contains(idx) {
		return false
	}
	h.replaceRoot(Entry{Dist: dist, Idx: idx, New: isNew})
	return true
}

// UncheckedPush inserts idx unless it does not beat the root. The caller
// guarantees idx is not already present.
func (h *SortedNeighbors) UncheckedPush(dist float32, idx uint32, isNew bool) bool {
	if dist >= h.entries[0].Dist {
		return false
	}
	h.replaceRoot(Entry{Dist: dist, Idx: idx, New: isNew})
	return true
}

// replaceRoot overwrites the root and sifts it down.
func (h *SortedNeighbors) replaceRoot(e Entry) {
	entries := h.entries
	n := len(entries)
	i := 0
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && entries[right].Dist > entries[left].Dist {
			child = right
		}
		if entries[child].Dist <= e.Dist {
			break
		}
		entries[i] = entries[child]
		i = child
	}
	entries[i] = e
}

// AppendIndices appends the filled neighbor indices in heap order to dst.
func (h *SortedNeighbors) AppendIndices(dst []uint32) []uint32 {
	for _, e := range h.entries {
		if !e.IsEmpty() {
			dst = append(dst, e.Idx)
		}
	}
	return dst
}

// Sorted returns the filled entries by increasing distance, ties broken by index.
func (h *SortedNeighbors) Sorted() []Entry {
	out := make([]Entry, 0, len(h.entries))
	for _, e := range h.entries {
		if !e.IsEmpty() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist == out[j].Dist {
			return out[i].Idx < out[j].Idx
		}
		return out[i].Dist < out[j].Dist
	})
	return out
}

// Snapshot returns a copy of the raw heap slots.
func (h *SortedNeighbors) Snapshot() []Entry {
	return append([]Entry(nil), h.entries...)
}
