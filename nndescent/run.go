package nndescent

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/graph"
	"github.com/patrikhermansson/rann/internal/metrics"
	"github.com/patrikhermansson/rann/rpt"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// BuildStats describes what a build did.
type BuildStats struct {
	Seed           int64                    // seed the build ran with
	NTrees         int                      // trees in the forest
	LeafSize       int                      // configured leaf size
	MaxLeafSize    int                      // largest leaf across the forest
	NIters         int                      // maximum refinement rounds
	Iterations     int                      // refinement rounds actually run
	SeedUpdates    int                      // heap pushes accepted while seeding from leaves
	FillUpdates    int                      // heap pushes accepted while filling randomly
	Updates        []int                    // heap pushes accepted per refinement round
	SearchEdges    int                      // edges in the search graph
	PhaseDurations map[string]time.Duration // wall time per build phase
}

// run holds the state of a single build.
type run struct {
	data   [][]float32
	metric core.Metric
	p      params
	dist   func(a, b []float32) float32
	rnd    *rand.Rand
	graph  *graph.DynamicGraph
	stats  BuildStats
}

func newRun(data [][]float32, metric core.Metric, p params) *run {
	ops := p.ops
	return &run{
		data:   data,
		metric: metric,
		p:      p,
		dist:   func(a, b []float32) float32 { return metric.Distance(ops, a, b) },
		// Offset past the per-tree seeds.
		rnd: rand.New(rand.NewSource(p.seed + int64(p.nTrees))),
		stats: BuildStats{
			Seed:           p.seed,
			NTrees:         p.nTrees,
			LeafSize:       p.leafSize,
			NIters:         p.nIters,
			PhaseDurations: make(map[string]time.Duration),
		},
	}
}

// phase runs fn and records its duration under name.
func (r *run) phase(name string, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	r.stats.PhaseDurations[name] += elapsed
	metrics.BuildPhaseDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	log.Debug().Str("phase", name).Dur("elapsed", elapsed).Msg("Finished build phase")
}

// newBar returns a progress bar on stderr, or nil when progress is disabled.
func (r *run) newBar(max int, description string) *progressbar.ProgressBar {
	if !r.p.progress {
		return nil
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
	)
}

func (r *run) execute() (*Index, error) {
	start := time.Now()

	if r.p.normalize {
		r.phase(metrics.PhaseNormalize, func() {
			core.NormalizeBatchWith(r.p.ops, r.data, r.p.workers)
		})
	}

	var forest []*rpt.Tree
	var err error
	r.phase(metrics.PhaseForest, func() {
		forest, err = r.buildForest()
	})
	if err != nil {
		return nil, err
	}
	for _, t := range forest {
		r.stats.MaxLeafSize = max(r.stats.MaxLeafSize, t.LeafSize)
	}
	log.Info().Int("n_trees", len(forest)).Int("max_leaf_size", r.stats.MaxLeafSize).
		Dur("elapsed", r.stats.PhaseDurations[metrics.PhaseForest]).Msg("Finished creating RP forest")

	r.graph = graph.NewDynamicGraph(r.p.n, r.p.k)
	r.phase(metrics.PhaseSeed, func() {
		r.stats.SeedUpdates = r.seedFromLeaves(rpt.LeafArray(forest))
	})
	metrics.GraphUpdatesTotal.WithLabelValues(metrics.PhaseSeed).Add(float64(r.stats.SeedUpdates))

	r.phase(metrics.PhaseFill, func() {
		r.stats.FillUpdates = r.randomFill()
	})
	metrics.GraphUpdatesTotal.WithLabelValues(metrics.PhaseFill).Add(float64(r.stats.FillUpdates))

	r.phase(metrics.PhaseRefine, r.refine)

	var search [][]uint32
	r.phase(metrics.PhasePrune, func() {
		search = r.searchGraph()
	})
	for _, adj := range search {
		r.stats.SearchEdges += len(adj)
	}

	log.Info().Int("iterations", r.stats.Iterations).Int("search_edges", r.stats.SearchEdges).
		Dur("elapsed", time.Since(start)).Msg("Finished NN-descent graph")

	return &Index{
		data:   r.data,
		metric: r.metric,
		ops:    r.p.ops,
		graph:  r.graph,
		search: search,
		forest: forest,
		stats:  r.stats,
	}, nil
}

func (r *run) buildForest() ([]*rpt.Tree, error) {
	cfg := rpt.ForestConfig{
		NTrees:   r.p.nTrees,
		LeafSize: r.p.leafSize,
		MaxDepth: r.p.maxDepth,
		Angular:  r.p.angular,
	}
	if bar := r.newBar(r.p.nTrees, "Building RP forest"); bar != nil {
		cfg.OnTreeBuilt = func(int) { _ = bar.Add(1) }
	}
	return rpt.MakeForestParallel(r.data, r.p.ops, cfg, r.p.seed, r.p.workers)
}
