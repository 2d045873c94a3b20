// Package nndescent builds approximate k-nearest-neighbor graphs. A random
// projection forest bootstraps the graph, which is then refined with
// NN-descent local joins and pruned into a searchable index.
package nndescent

import (
	"errors"
	"fmt"
	"math"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/graph"
	"github.com/patrikhermansson/rann/internal/metrics"
	"github.com/patrikhermansson/rann/rpt"
	"github.com/rs/zerolog/log"
)

// ErrInvalidConfig is returned by Build for configurations that cannot be built.
var ErrInvalidConfig = errors.New("nndescent: invalid configuration")

// auto marks a size that Build derives from the dataset.
const auto = -1

// Default builder settings.
const (
	DefaultNNeighbors              = 30
	DefaultPruningDegreeMultiplier = 1.5
	DefaultDiversifyProb           = 1.0
	DefaultMaxRPTreeDepth          = rpt.DefaultMaxDepth
	DefaultDelta                   = 0.001
	DefaultMaxCandidates           = 50
)

// Builder configures an NN-descent graph build. The zero value is not
// usable; start from NewBuilder.
type Builder struct {
	data                    [][]float32
	metric                  core.Metric
	nNeighbors              int
	nTrees                  int
	leafSize                int
	pruningDegreeMultiplier float32
	diversifyProb           float32
	lowMemory               bool
	maxRPTreeDepth          int
	nIters                  int
	delta                   float32
	skipNormalization       bool
	maxCandidates           int
	nThreads                int
	seed                    int64
	seedSet                 bool
	ops                     core.SpatialOps
	progress                bool
}

// NewBuilder returns a builder with the default settings.
func NewBuilder() *Builder {
	return &Builder{
		metric:                  core.SquaredEuclidean,
		nNeighbors:              DefaultNNeighbors,
		nTrees:                  auto,
		leafSize:                auto,
		pruningDegreeMultiplier: DefaultPruningDegreeMultiplier,
		diversifyProb:           DefaultDiversifyProb,
		lowMemory:               true,
		maxRPTreeDepth:          DefaultMaxRPTreeDepth,
		nIters:                  auto,
		delta:                   DefaultDelta,
		maxCandidates:           DefaultMaxCandidates,
		nThreads:                1,
	}
}

// WithData sets the points to index. The points are copied, so normalization
// never touches the caller's slices.
func (b *Builder) WithData(data [][]float32) *Builder {
	total := 0
	for _, v := range data {
		total += len(v)
	}
	backing := make([]float32, total)
	b.data = make([][]float32, len(data))
	off := 0
	for i, v := range data {
		n := copy(backing[off:], v)
		b.data[i] = backing[off : off+n : off+n]
		off += n
	}
	return b
}

// WithMetric sets the distance metric. Defaults to core.SquaredEuclidean.
func (b *Builder) WithMetric(metric core.Metric) *Builder {
	b.metric = metric
	return b
}

// WithNNeighbors sets the number of neighbors kept per point. Defaults to 30.
func (b *Builder) WithNNeighbors(k int) *Builder {
	b.nNeighbors = k
	return b
}

// WithNTrees sets the number of random projection trees. When unset it is
// derived from the dataset size. Zero trees leaves the initial graph to
// random sampling.
func (b *Builder) WithNTrees(n int) *Builder {
	b.nTrees = n
	return b
}

// WithLeafSize sets the maximum leaf size of the trees. Defaults to max(10, k).
func (b *Builder) WithLeafSize(n int) *Builder {
	b.leafSize = n
	return b
}

// WithPruningDegreeMultiplier bounds the search graph degree to
// floor(multiplier * k). Defaults to 1.5.
func (b *Builder) WithPruningDegreeMultiplier(multiplier float32) *Builder {
	b.pruningDegreeMultiplier = multiplier
	return b
}

// WithDiversifyProb sets the probability with which redundant search graph
// edges are dropped. Zero keeps every edge. Defaults to 1.
func (b *Builder) WithDiversifyProb(prob float32) *Builder {
	b.diversifyProb = prob
	return b
}

// WithLowMemory selects block-wise refinement. Defaults to true.
func (b *Builder) WithLowMemory(enabled bool) *Builder {
	b.lowMemory = enabled
	return b
}

// WithMaxRPTreeDepth bounds the depth of the random projection trees. Defaults to 100.
func (b *Builder) WithMaxRPTreeDepth(depth int) *Builder {
	b.maxRPTreeDepth = depth
	return b
}

// WithNIters sets the maximum number of refinement rounds. Defaults to
// 5 + round(log2 n).
func (b *Builder) WithNIters(n int) *Builder {
	b.nIters = n
	return b
}

// WithDelta sets the early termination ratio. Refinement stops once a round
// makes fewer than delta * n * k updates. Defaults to 0.001.
func (b *Builder) WithDelta(delta float32) *Builder {
	b.delta = delta
	return b
}

// WithSkipNormalization skips normalizing the data for metrics that need it.
// Only use it when the data is already unit length.
func (b *Builder) WithSkipNormalization(skip bool) *Builder {
	b.skipNormalization = skip
	return b
}

// WithMaxCandidates caps the number of candidates per point in each local
// join. Defaults to 50.
func (b *Builder) WithMaxCandidates(n int) *Builder {
	b.maxCandidates = n
	return b
}

// WithNThreads sets the number of worker goroutines. Values <= 1 build serially.
func (b *Builder) WithNThreads(n int) *Builder {
	b.nThreads = n
	return b
}

// WithSeed fixes the random seed. Defaults to core.GetSeed().
func (b *Builder) WithSeed(seed int64) *Builder {
	b.seed = seed
	b.seedSet = true
	return b
}

// WithOps sets the vector math implementation. Defaults to core.DefaultOps().
func (b *Builder) WithOps(ops core.SpatialOps) *Builder {
	b.ops = ops
	return b
}

// WithProgress shows progress bars on stderr while building.
func (b *Builder) WithProgress(enabled bool) *Builder {
	b.progress = enabled
	return b
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// checkPointCount rejects datasets whose indices do not fit below graph.Sentinel.
func checkPointCount(n int) error {
	switch {
	case n == 0:
		return invalid("dataset is empty")
	case uint64(n) >= graph.Sentinel:
		return invalid("dataset has %d points, at most %d are supported", n, uint64(graph.Sentinel)-1)
	}
	return nil
}

// validate checks the configuration against the data.
func (b *Builder) validate() error {
	n := len(b.data)
	if err := checkPointCount(n); err != nil {
		return err
	}
	switch {
	case b.nNeighbors < 1:
		return invalid("n_neighbors must be at least 1, got %d", b.nNeighbors)
	case b.nNeighbors >= n:
		return invalid("n_neighbors (%d) must be smaller than the number of points (%d)", b.nNeighbors, n)
	case b.leafSize == 0 || b.leafSize < auto:
		return invalid("leaf_size must be positive, got %d", b.leafSize)
	case b.nTrees < auto:
		return invalid("n_trees must not be negative, got %d", b.nTrees)
	case b.nIters < auto:
		return invalid("n_iters must not be negative, got %d", b.nIters)
	case b.nThreads < 0:
		return invalid("n_threads must not be negative, got %d", b.nThreads)
	case b.delta < 0 || math.IsNaN(float64(b.delta)):
		return invalid("delta must not be negative, got %v", b.delta)
	case !(b.diversifyProb >= 0 && b.diversifyProb <= 1):
		return invalid("diversify_prob must be within [0, 1], got %v", b.diversifyProb)
	case !(b.pruningDegreeMultiplier >= 1):
		return invalid("pruning_degree_multiplier must be at least 1, got %v", b.pruningDegreeMultiplier)
	case b.maxCandidates < 1:
		return invalid("max_candidates must be at least 1, got %d", b.maxCandidates)
	case b.maxRPTreeDepth < 1:
		return invalid("max_rptree_depth must be at least 1, got %d", b.maxRPTreeDepth)
	}

	dim := len(b.data[0])
	if dim == 0 {
		return invalid("points must have at least one dimension")
	}
	for i, v := range b.data {
		if len(v) != dim {
			return invalid("point %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}

// params holds the resolved settings of one build.
type params struct {
	n, dim     int
	k          int
	nTrees     int
	leafSize   int
	nIters     int
	maxDegree  int
	workers    int
	seed       int64
	ops        core.SpatialOps
	angular    bool
	normalize  bool
	lowMemory  bool
	maxCands   int
	delta      float64
	diversify  float32
	maxDepth   int
	progress   bool
	metricName string
}

func (b *Builder) resolve() params {
	n := len(b.data)
	p := params{
		n:          n,
		dim:        len(b.data[0]),
		k:          b.nNeighbors,
		nTrees:     b.nTrees,
		leafSize:   b.leafSize,
		nIters:     b.nIters,
		maxDegree:  int(math.Floor(float64(b.pruningDegreeMultiplier) * float64(b.nNeighbors))),
		workers:    max(1, b.nThreads),
		seed:       b.seed,
		ops:        b.ops,
		angular:    b.metric.RequiresAngularTrees(),
		normalize:  b.metric.RequiresNormalizing() && !b.skipNormalization,
		lowMemory:  b.lowMemory,
		maxCands:   b.maxCandidates,
		delta:      float64(b.delta),
		diversify:  b.diversifyProb,
		maxDepth:   b.maxRPTreeDepth,
		progress:   b.progress,
		metricName: b.metric.String(),
	}
	if p.nTrees == auto {
		p.nTrees = rpt.DefaultNTrees(n)
	}
	if p.leafSize == auto {
		p.leafSize = rpt.DefaultLeafSize(b.nNeighbors)
	}
	if p.nIters == auto {
		p.nIters = 5 + int(math.Round(math.Log2(float64(n))))
	}
	if !b.seedSet {
		p.seed = core.GetSeed()
	}
	if p.ops == nil {
		p.ops = core.DefaultOps()
	}
	return p
}

// Build validates the configuration and constructs the graph. Configuration
// errors wrap ErrInvalidConfig and are returned before any work starts.
func (b *Builder) Build() (*Index, error) {
	if err := b.validate(); err != nil {
		metrics.ConfigErrorsTotal.Inc()
		log.Error().Err(err).Msg("Rejected NN-descent configuration")
		return nil, err
	}
	p := b.resolve()

	log.Info().Int("n", p.n).Int("dim", p.dim).Int("k", p.k).Str("metric", p.metricName).
		Int("n_trees", p.nTrees).Int("leaf_size", p.leafSize).Int("n_iters", p.nIters).
		Int("workers", p.workers).Bool("low_memory", p.lowMemory).Int64("seed", p.seed).
		Msg("Building NN-descent graph")

	idx, err := newRun(b.data, b.metric, p).execute()
	if err != nil {
		return nil, err
	}
	metrics.BuildsTotal.WithLabelValues(p.metricName).Inc()
	return idx, nil
}
