package nndescent

import (
	"math/rand"

	"github.com/patrikhermansson/rann/graph"
	"github.com/patrikhermansson/rann/internal/helpers"
	"github.com/patrikhermansson/rann/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// sample offers j to i's candidates, and i to j's, with a random priority.
type sample struct {
	i, j  uint32
	prio  float32
	isNew bool
}

// refine runs NN-descent rounds until the update count drops below
// delta * n * k or the round limit is reached.
func (r *run) refine() {
	n, k := r.p.n, r.p.k
	limit := r.p.delta * float64(n) * float64(k)
	blockSize := n
	if r.p.lowMemory {
		blockSize = vertexBlockSize
	}

	bar := r.newBar(r.p.nIters, "NN-descent")
	for iter := 0; iter < r.p.nIters; iter++ {
		newCands, oldCands := r.buildCandidates()

		c := 0
		for _, block := range helpers.Blocks(n, blockSize) {
			updates := r.propose(block.Len(), func(lo, hi int) []update {
				return r.localJoin(newCands, oldCands, block.Lo+lo, block.Lo+hi)
			})
			c += r.apply(updates)
		}

		r.stats.Iterations++
		r.stats.Updates = append(r.stats.Updates, c)
		metrics.NNDescentIterationsTotal.Inc()
		metrics.GraphUpdatesTotal.WithLabelValues(metrics.PhaseRefine).Add(float64(c))
		log.Debug().Int("iteration", iter).Int("updates", c).Msg("NN-descent round completed")
		if bar != nil {
			_ = bar.Add(1)
		}

		if float64(c) < limit {
			log.Info().Int("iterations", iter+1).Msg("NN-descent converged")
			break
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
}

// buildCandidates samples up to maxCandidates new and old candidates per
// point from the forward and reverse graph edges. Graph entries sampled as
// new candidates are flagged old.
func (r *run) buildCandidates() ([]*graph.SortedNeighbors, []*graph.SortedNeighbors) {
	n := r.p.n
	newCands := make([]*graph.SortedNeighbors, n)
	oldCands := make([]*graph.SortedNeighbors, n)
	for i := range newCands {
		newCands[i] = graph.NewSortedNeighbors(r.p.maxCands)
		oldCands[i] = graph.NewSortedNeighbors(r.p.maxCands)
	}

	chunks := helpers.Chunks(n, r.p.workers)
	seeds := make([]int64, len(chunks))
	for i := range seeds {
		seeds[i] = r.rnd.Int63()
	}

	parts := make([][]sample, len(chunks))
	var g errgroup.Group
	for ci, c := range chunks {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seeds[ci]))
			var out []sample
			for i := c.Lo; i < c.Hi; i++ {
				h := r.graph.Point(i)
				for s := 0; s < h.Len(); s++ {
					e := h.Entry(s)
					if e.IsEmpty() {
						continue
					}
					out = append(out, sample{i: uint32(i), j: e.Idx, prio: rnd.Float32(), isNew: e.New})
				}
			}
			parts[ci] = out
			return nil
		})
	}
	_ = g.Wait()

	for _, part := range parts {
		for _, s := range part {
			target := oldCands
			if s.isNew {
				target = newCands
			}
			target[s.i].CheckedPush(s.prio, s.j, s.isNew)
			target[s.j].CheckedPush(s.prio, s.i, s.isNew)
		}
	}

	// Every worker owns the heaps of its own range.
	var flag errgroup.Group
	for _, c := range chunks {
		flag.Go(func() error {
			for i := c.Lo; i < c.Hi; i++ {
				h := r.graph.Point(i)
				for s := 0; s < h.Len(); s++ {
					if e := h.Entry(s); e.New && newCands[i].Contains(e.Idx) {
						h.SetNew(s, false)
					}
				}
			}
			return nil
		})
	}
	_ = flag.Wait()

	return newCands, oldCands
}

// localJoin proposes the new-new and new-old candidate pairs of the points in
// [lo, hi). In high memory mode each call remembers the pairs it has already
// evaluated and skips them.
func (r *run) localJoin(newCands, oldCands []*graph.SortedNeighbors, lo, hi int) []update {
	var seen map[uint64]struct{}
	if !r.p.lowMemory {
		seen = make(map[uint64]struct{})
	}

	var out []update
	var newIdx, oldIdx []uint32
	for i := lo; i < hi; i++ {
		newIdx = newCands[i].AppendIndices(newIdx[:0])
		oldIdx = oldCands[i].AppendIndices(oldIdx[:0])
		for j, p := range newIdx {
			tp := r.graph.Threshold(int(p))
			for _, q := range newIdx[j+1:] {
				out = r.join(out, seen, p, q, tp)
			}
			for _, q := range oldIdx {
				if q != p {
					out = r.join(out, seen, p, q, tp)
				}
			}
		}
	}
	return out
}

func (r *run) join(out []update, seen map[uint64]struct{}, p, q uint32, tp float32) []update {
	if seen != nil {
		key := pairKey(p, q)
		if _, ok := seen[key]; ok {
			return out
		}
		seen[key] = struct{}{}
	}
	d := r.dist(r.data[p], r.data[q])
	if d <= tp || d <= r.graph.Threshold(int(q)) {
		out = append(out, update{p: p, q: q, d: d})
	}
	return out
}

// pairKey packs an unordered pair into one map key.
func pairKey(p, q uint32) uint64 {
	if p > q {
		p, q = q, p
	}
	return uint64(p)<<32 | uint64(q)
}
