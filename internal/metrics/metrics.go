// Package metrics holds the Prometheus collectors updated while graphs are
// built and searched.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TreesBuiltTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rann_rptree_trees_built_total",
		Help: "Total number of random projection trees built",
	})
	TreeBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rann_rptree_build_duration_seconds",
		Help:    "Time spent building a single random projection tree",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	TreeLeafSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rann_rptree_max_leaf_size",
		Help:    "Largest leaf observed per random projection tree",
		Buckets: prometheus.ExponentialBuckets(4, 2, 8),
	})

	NNDescentIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rann_nndescent_iterations_total",
		Help: "Total number of NN-descent refinement rounds run",
	})
	GraphUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rann_graph_updates_total",
		Help: "Accepted neighbor heap pushes by build phase",
	}, []string{"phase"})
	BuildPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rann_build_phase_duration_seconds",
		Help:    "Duration of each graph build phase",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	}, []string{"phase"})
	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rann_builds_total",
		Help: "Completed graph builds by distance metric",
	}, []string{"metric"})
	ConfigErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rann_config_errors_total",
		Help: "Builds rejected because of invalid configuration",
	})

	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rann_searches_total",
		Help: "Total number of graph searches",
	})
	SearchDistanceEvaluations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rann_search_distance_evaluations",
		Help:    "Distance computations performed per graph search",
		Buckets: prometheus.ExponentialBuckets(8, 2, 12),
	})
)

// Build phase label values.
const (
	PhaseNormalize = "normalize"
	PhaseForest    = "forest"
	PhaseSeed      = "seed"
	PhaseFill      = "random_fill"
	PhaseRefine    = "refine"
	PhasePrune     = "prune"
)
