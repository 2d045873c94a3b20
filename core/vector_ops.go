package core

import (
	"github.com/patrikhermansson/rann/internal/helpers"
	"golang.org/x/sync/errgroup"
)

// NormalizeBatchWith normalizes vecs in place with ops using at most workers goroutines.
func NormalizeBatchWith(ops SpatialOps, vecs [][]float32, workers int) {
	if len(vecs) == 0 {
		return
	}

	var g errgroup.Group
	for _, r := range helpers.Chunks(len(vecs), workers) {
		g.Go(func() error {
			for _, vec := range vecs[r.Lo:r.Hi] {
				ops.Normalize(vec)
			}
			return nil
		})
	}
	// The workers never fail.
	_ = g.Wait()
}
