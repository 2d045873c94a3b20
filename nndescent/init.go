package nndescent

import (
	"github.com/patrikhermansson/rann/internal/helpers"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// leafBlockSize is the number of leaves whose pairs are proposed at once.
	leafBlockSize = 65536
	// vertexBlockSize is the number of vertices joined at once in low memory mode.
	vertexBlockSize = 16384
)

// update proposes q as a neighbor of p and p as a neighbor of q.
type update struct {
	p, q uint32
	d    float32
}

// propose splits [0, n) across the workers and runs gen on each range. gen
// must only read the graph. Proposals are concatenated in range order, so the
// result does not depend on scheduling.
func (r *run) propose(n int, gen func(lo, hi int) []update) []update {
	chunks := helpers.Chunks(n, r.p.workers)
	if len(chunks) <= 1 {
		if n == 0 {
			return nil
		}
		return gen(0, n)
	}

	parts := make([][]update, len(chunks))
	var g errgroup.Group
	for i, c := range chunks {
		g.Go(func() error {
			parts[i] = gen(c.Lo, c.Hi)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	updates := make([]update, 0, total)
	for _, part := range parts {
		updates = append(updates, part...)
	}
	return updates
}

// apply pushes every proposal onto both endpoints and returns the number of
// accepted pushes. Only the orchestrating goroutine mutates the graph.
func (r *run) apply(updates []update) int {
	c := 0
	for _, u := range updates {
		if r.graph.CheckedPush(int(u.p), int(u.q), u.d, true) {
			c++
		}
		if r.graph.CheckedPush(int(u.q), int(u.p), u.d, true) {
			c++
		}
	}
	return c
}

// seedFromLeaves proposes every pair of points sharing a leaf.
func (r *run) seedFromLeaves(leaves [][]int) int {
	c := 0
	for _, block := range helpers.Blocks(len(leaves), leafBlockSize) {
		leafBlock := leaves[block.Lo:block.Hi]
		updates := r.propose(len(leafBlock), func(lo, hi int) []update {
			var out []update
			for _, leaf := range leafBlock[lo:hi] {
				for i, p := range leaf {
					tp := r.graph.Threshold(p)
					for _, q := range leaf[i+1:] {
						d := r.dist(r.data[p], r.data[q])
						if d <= tp || d <= r.graph.Threshold(q) {
							out = append(out, update{p: uint32(p), q: uint32(q), d: d})
						}
					}
				}
			}
			return out
		})
		c += r.apply(updates)
	}
	log.Debug().Int("leaves", len(leaves)).Int("updates", c).Msg("Seeded graph from RP forest")
	return c
}

// randomFill tops up every heap that still has empty slots with random
// points. Small datasets are walked in a random order; larger ones are
// sampled until the heap is full or the attempt budget runs out.
func (r *run) randomFill() int {
	n, k := r.p.n, r.p.k
	unfilled := r.graph.Unfilled()
	c := 0
	for _, p := range unfilled {
		missing := k - r.graph.Point(p).Count()
		push := func(q int) {
			if r.graph.CheckedPush(p, q, r.dist(r.data[p], r.data[q]), true) {
				missing--
				c++
			}
		}

		if n <= 4*k {
			for _, q := range r.rnd.Perm(n) {
				if missing == 0 {
					break
				}
				push(q)
			}
			continue
		}
		for attempt := 0; attempt < 10*k+32 && missing > 0; attempt++ {
			push(r.rnd.Intn(n))
		}
	}
	if len(unfilled) > 0 {
		log.Debug().Int("points", len(unfilled)).Int("updates", c).Msg("Filled graph with random neighbors")
	}
	return c
}
