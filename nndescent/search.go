package nndescent

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/internal/metrics"
)

// searchEpsilon widens the distance bound beyond the current worst result.
const searchEpsilon = 0.1

// scored is a point with its distance to the query.
type scored struct {
	idx  uint32
	dist float32
}

// scoredMinHeap pops the closest point first.
type scoredMinHeap []scored

func (h scoredMinHeap) Len() int { return len(h) }
func (h scoredMinHeap) Less(i, j int) bool {
	if h[i].dist == h[j].dist {
		return h[i].idx < h[j].idx
	}
	return h[i].dist < h[j].dist
}
func (h scoredMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredMinHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *scoredMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// scoredMaxHeap keeps the furthest point at the root.
type scoredMaxHeap []scored

func (h scoredMaxHeap) Len() int { return len(h) }
func (h scoredMaxHeap) Less(i, j int) bool {
	if h[i].dist == h[j].dist {
		return h[i].idx > h[j].idx
	}
	return h[i].dist > h[j].dist
}
func (h scoredMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredMaxHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *scoredMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Search returns the k approximate nearest neighbors of query by best-first
// traversal of the search graph. The traversal starts from the leaf of the
// first tree the query falls into.
func (idx *Index) Search(query []float32, k int) ([]core.Neighbor, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if len(idx.data) == 0 {
		return nil, errors.New("index is empty")
	}
	if dim := len(idx.data[0]); len(query) != dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), dim)
	}
	k = min(k, len(idx.data))

	// Copy the query to avoid modifying the original.
	q := make([]float32, len(query))
	copy(q, query)
	if idx.metric.RequiresNormalizing() {
		idx.ops.Normalize(q)
	}

	visited := bitset.New(uint(len(idx.data)))
	candidates := &scoredMinHeap{}
	results := &scoredMaxHeap{}
	evaluations := 0

	visit := func(p uint32) {
		visited.Set(uint(p))
		d := idx.metric.Distance(idx.ops, q, idx.data[p])
		evaluations++
		if results.Len() < k {
			heap.Push(results, scored{idx: p, dist: d})
			heap.Push(candidates, scored{idx: p, dist: d})
			return
		}
		bound := (*results)[0].dist
		if d < bound {
			heap.Push(results, scored{idx: p, dist: d})
			heap.Pop(results)
		}
		if d < bound*(1+searchEpsilon) {
			heap.Push(candidates, scored{idx: p, dist: d})
		}
	}

	for _, p := range idx.seeds(q, k) {
		if !visited.Test(uint(p)) {
			visit(p)
		}
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(scored)
		if results.Len() >= k && c.dist > (*results)[0].dist*(1+searchEpsilon) {
			break
		}
		for _, p := range idx.search[c.idx] {
			if !visited.Test(uint(p)) {
				visit(p)
			}
		}
	}

	metrics.SearchesTotal.Inc()
	metrics.SearchDistanceEvaluations.Observe(float64(evaluations))

	out := make([]core.Neighbor, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		s := heap.Pop(results).(scored)
		out[i] = core.Neighbor{ID: int(s.idx), Distance: float64(s.dist)}
	}
	return out, nil
}

// seeds returns the starting points of a search: the query's leaf in the
// first tree, extended through the search graph and then by index order
// until there are at least k.
func (idx *Index) seeds(q []float32, k int) []uint32 {
	var seeds []uint32
	seen := bitset.New(uint(len(idx.data)))
	add := func(p uint32) {
		if !seen.Test(uint(p)) {
			seen.Set(uint(p))
			seeds = append(seeds, p)
		}
	}

	if len(idx.forest) > 0 {
		for _, p := range idx.forest[0].SearchLeaf(idx.ops, q) {
			add(uint32(p))
		}
	}
	for i := 0; i < len(seeds) && len(seeds) < k; i++ {
		for _, p := range idx.search[seeds[i]] {
			add(p)
		}
	}
	for p := 0; p < len(idx.data) && len(seeds) < k; p++ {
		add(uint32(p))
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	return seeds
}
