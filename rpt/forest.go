package rpt

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth bounds tree depth when ForestConfig.MaxDepth is unset.
const DefaultMaxDepth = 100

var negInf = float32(math.Inf(-1))

// ErrInvalidConfig is returned for forest configurations that cannot be built.
var ErrInvalidConfig = errors.New("rpt: invalid forest configuration")

// ForestConfig controls how a forest is built.
type ForestConfig struct {
	NTrees   int  // number of trees
	LeafSize int  // split nodes holding more points than this
	MaxDepth int  // depth limit, DefaultMaxDepth when zero
	Angular  bool // split with angular instead of Euclidean hyperplanes

	// OnTreeBuilt, if set, is called once per finished tree. It may be called
	// from several goroutines at once.
	OnTreeBuilt func(tree int)
}

// Validate reports whether the configuration can be built.
func (c ForestConfig) Validate() error {
	switch {
	case c.NTrees < 0:
		return fmt.Errorf("%w: number of trees must not be negative, got %d", ErrInvalidConfig, c.NTrees)
	case c.LeafSize < 1:
		return fmt.Errorf("%w: leaf size must be at least 1, got %d", ErrInvalidConfig, c.LeafSize)
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	return nil
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.LeafSize < 1 {
		c.LeafSize = 1
	}
	return c
}

// DefaultNTrees returns the forest size used for n points: max(32, 5 + round(n^0.25)).
func DefaultNTrees(n int) int {
	return max(32, 5+int(math.Round(math.Pow(float64(n), 0.25))))
}

// DefaultLeafSize returns the leaf size used for k neighbors: max(10, k).
func DefaultLeafSize(k int) int {
	return max(10, k)
}

// buildTree builds tree i with its own seeded generator and records metrics.
func buildTree(data [][]float32, ops core.SpatialOps, cfg ForestConfig, seed int64, i int) *Tree {
	start := time.Now()
	tree := MakeTree(data, ops, cfg, rand.New(rand.NewSource(seed+int64(i))))
	elapsed := time.Since(start)

	metrics.TreesBuiltTotal.Inc()
	metrics.TreeBuildDuration.Observe(elapsed.Seconds())
	metrics.TreeLeafSize.Observe(float64(tree.LeafSize))
	log.Debug().Int("tree", i).Int("nodes", tree.NumNodes()).Int("leaves", tree.NumLeaves).
		Int("max_leaf", tree.LeafSize).Dur("elapsed", elapsed).Msg("Built random projection tree")

	if cfg.OnTreeBuilt != nil {
		cfg.OnTreeBuilt(i)
	}
	return tree
}

// MakeForest builds cfg.NTrees trees one after another. Tree i draws from a
// generator seeded with seed+i, so the result matches MakeForestParallel.
func MakeForest(data [][]float32, ops core.SpatialOps, cfg ForestConfig, seed int64) ([]*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	forest := make([]*Tree, cfg.NTrees)
	for i := range forest {
		forest[i] = buildTree(data, ops, cfg, seed, i)
	}
	return forest, nil
}

// MakeForestParallel builds cfg.NTrees trees using at most workers goroutines.
func MakeForestParallel(data [][]float32, ops core.SpatialOps, cfg ForestConfig, seed int64, workers int) ([]*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 1 {
		return MakeForest(data, ops, cfg, seed)
	}

	forest := make([]*Tree, cfg.NTrees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range forest {
		g.Go(func() error {
			forest[i] = buildTree(data, ops, cfg, seed, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

// LeafArray collects the leaves of every tree, tree by tree.
func LeafArray(forest []*Tree) [][]int {
	total := 0
	for _, t := range forest {
		total += t.NumLeaves
	}
	leaves := make([][]int, 0, total)
	for _, t := range forest {
		leaves = append(leaves, t.Leaves()...)
	}
	return leaves
}
