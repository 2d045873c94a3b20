package nndescent

import (
	"math/rand"
	"sort"

	"github.com/patrikhermansson/rann/internal/helpers"
	"golang.org/x/sync/errgroup"
)

// edge is a weighted search graph edge.
type edge struct {
	idx  uint32
	dist float32
}

// link is an undirected search graph edge with p < q.
type link struct {
	p, q uint32
	dist float32
}

// searchGraph makes the k-NN graph undirected, drops edges occluded by a
// closer neighbor from either endpoint, and then admits the remaining edges
// nearest first while both endpoints are below maxDegree. The result is
// symmetric, so no point has more than maxDegree neighbors in either direction.
func (r *run) searchGraph() [][]uint32 {
	n := r.p.n
	adj := make([][]edge, n)
	for p := 0; p < n; p++ {
		for _, e := range r.graph.Point(p).Sorted() {
			adj[p] = append(adj[p], edge{idx: e.Idx, dist: e.Dist})
			adj[e.Idx] = append(adj[e.Idx], edge{idx: uint32(p), dist: e.Dist})
		}
	}

	chunks := helpers.Chunks(n, r.p.workers)
	seeds := make([]int64, len(chunks))
	for i := range seeds {
		seeds[i] = r.rnd.Int63()
	}

	var g errgroup.Group
	for ci, c := range chunks {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seeds[ci]))
			for p := c.Lo; p < c.Hi; p++ {
				edges := dedupeEdges(adj[p])
				if r.p.diversify > 0 {
					edges = r.diversify(edges, rnd)
				}
				adj[p] = edges
			}
			return nil
		})
	}
	_ = g.Wait()

	var links []link
	for p, edges := range adj {
		for _, e := range edges {
			if uint32(p) < e.idx && hasEdge(adj[e.idx], uint32(p)) {
				links = append(links, link{p: uint32(p), q: e.idx, dist: e.dist})
			}
		}
	}
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		switch {
		case a.dist != b.dist:
			return a.dist < b.dist
		case a.p != b.p:
			return a.p < b.p
		}
		return a.q < b.q
	})

	kept := make([][]edge, n)
	for _, l := range links {
		if len(kept[l.p]) >= r.p.maxDegree || len(kept[l.q]) >= r.p.maxDegree {
			continue
		}
		kept[l.p] = append(kept[l.p], edge{idx: l.q, dist: l.dist})
		kept[l.q] = append(kept[l.q], edge{idx: l.p, dist: l.dist})
	}

	// Links are admitted nearest first, so every list is already sorted.
	out := make([][]uint32, n)
	for p, edges := range kept {
		ids := make([]uint32, len(edges))
		for i, e := range edges {
			ids[i] = e.idx
		}
		out[p] = ids
	}
	return out
}

func hasEdge(edges []edge, q uint32) bool {
	for _, e := range edges {
		if e.idx == q {
			return true
		}
	}
	return false
}

// dedupeEdges removes repeated targets and sorts by distance, ties by index.
func dedupeEdges(edges []edge) []edge {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].idx == edges[j].idx {
			return edges[i].dist < edges[j].dist
		}
		return edges[i].idx < edges[j].idx
	})
	unique := edges[:0]
	for _, e := range edges {
		if len(unique) > 0 && unique[len(unique)-1].idx == e.idx {
			continue
		}
		unique = append(unique, e)
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].dist == unique[j].dist {
			return unique[i].idx < unique[j].idx
		}
		return unique[i].dist < unique[j].dist
	})
	return unique
}

// diversify scans edges by increasing distance. An edge to j is removable
// when a kept neighbor lies closer to j than the point itself; removable
// edges are dropped with probability diversify.
func (r *run) diversify(edges []edge, rnd *rand.Rand) []edge {
	kept := make([]edge, 0, len(edges))
	for _, e := range edges {
		removable := false
		for _, k := range kept {
			if r.dist(r.data[k.idx], r.data[e.idx]) < e.dist {
				removable = true
				break
			}
		}
		if removable && rnd.Float32() < r.p.diversify {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
