package example

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/internal/helpers"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RandomDataset generates n uniform training vectors and nQueries query
// vectors in [0, 1)^dim, with exact ground truth for k neighbors under metric.
func RandomDataset(n, dim, nQueries, k int, metric core.Metric, seed int64, workers int) (*Dataset, error) {
	if n < 1 || dim < 1 || nQueries < 0 {
		return nil, fmt.Errorf("invalid synthetic dataset size n=%d dim=%d queries=%d", n, dim, nQueries)
	}
	rnd := rand.New(rand.NewSource(seed))
	gen := func(count int) [][]float32 {
		vecs := make([][]float32, count)
		for i := range vecs {
			vecs[i] = make([]float32, dim)
			for j := range vecs[i] {
				vecs[i][j] = rnd.Float32()
			}
		}
		return vecs
	}

	ds := &Dataset{
		Name:  fmt.Sprintf("random-%d-%d-%s", n, dim, metric),
		Train: gen(n),
		Test:  gen(nQueries),
	}
	ds.Neighbors, ds.Distances = BruteForce(core.DefaultOps(), metric, ds.Train, ds.Test, k, workers)
	log.Info().Msgf("Generated dataset %s with %d queries", ds.Name, nQueries)
	return ds, nil
}

// BruteForce computes the exact k nearest training vectors of every query.
// Vectors are normalized copies when the metric requires it.
func BruteForce(ops core.SpatialOps, metric core.Metric, train, queries [][]float32, k, workers int) ([][]int, [][]float64) {
	k = min(k, len(train))
	train = prepare(ops, metric, train, workers)
	queries = prepare(ops, metric, queries, workers)

	neighbors := make([][]int, len(queries))
	distances := make([][]float64, len(queries))

	type scoredID struct {
		id   int
		dist float32
	}
	var g errgroup.Group
	for _, r := range helpers.Chunks(len(queries), workers) {
		g.Go(func() error {
			scored := make([]scoredID, len(train))
			for qi := r.Lo; qi < r.Hi; qi++ {
				for id, vec := range train {
					scored[id] = scoredID{id: id, dist: metric.Distance(ops, queries[qi], vec)}
				}
				sort.Slice(scored, func(i, j int) bool {
					if scored[i].dist == scored[j].dist {
						return scored[i].id < scored[j].id
					}
					return scored[i].dist < scored[j].dist
				})
				neighbors[qi] = make([]int, k)
				distances[qi] = make([]float64, k)
				for i := 0; i < k; i++ {
					neighbors[qi][i] = scored[i].id
					distances[qi][i] = float64(scored[i].dist)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return neighbors, distances
}

// prepare returns normalized copies of vecs when the metric needs unit vectors.
func prepare(ops core.SpatialOps, metric core.Metric, vecs [][]float32, workers int) [][]float32 {
	if !metric.RequiresNormalizing() {
		return vecs
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = append([]float32(nil), v...)
	}
	core.NormalizeBatchWith(ops, out, workers)
	return out
}
