// Package config loads the settings of the rann command from a YAML file and
// RANN_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/nndescent"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RANN_GRAPH_N_NEIGHBORS.
const EnvPrefix = "RANN"

// Config is the complete command configuration.
type Config struct {
	Dataset     DatasetConfig `yaml:"dataset" envconfig:"DATASET"`
	Graph       GraphConfig   `yaml:"graph" envconfig:"GRAPH"`
	Eval        EvalConfig    `yaml:"eval" envconfig:"EVAL"`
	MetricsAddr string        `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

// DatasetConfig selects the data to index. A named dataset is read from
// Root/Name; otherwise a synthetic one is generated.
type DatasetConfig struct {
	Root      string          `yaml:"root" envconfig:"ROOT"`
	Name      string          `yaml:"name" envconfig:"NAME"`
	Synthetic SyntheticConfig `yaml:"synthetic" envconfig:"SYNTHETIC"`
}

// SyntheticConfig sizes a generated uniform dataset.
type SyntheticConfig struct {
	N       int   `yaml:"n" envconfig:"N"`
	Dim     int   `yaml:"dim" envconfig:"DIM"`
	Queries int   `yaml:"queries" envconfig:"QUERIES"`
	Seed    int64 `yaml:"seed" envconfig:"SEED"`
}

// GraphConfig mirrors the NN-descent builder options. Nil pointers keep the
// builder's automatic choice.
type GraphConfig struct {
	Metric                  core.Metric `yaml:"metric" envconfig:"METRIC"`
	NNeighbors              int         `yaml:"n_neighbors" envconfig:"N_NEIGHBORS"`
	NTrees                  *int        `yaml:"n_trees" envconfig:"N_TREES"`
	LeafSize                *int        `yaml:"leaf_size" envconfig:"LEAF_SIZE"`
	NIters                  *int        `yaml:"n_iters" envconfig:"N_ITERS"`
	PruningDegreeMultiplier float32     `yaml:"pruning_degree_multiplier" envconfig:"PRUNING_DEGREE_MULTIPLIER"`
	DiversifyProb           float32     `yaml:"diversify_prob" envconfig:"DIVERSIFY_PROB"`
	LowMemory               bool        `yaml:"low_memory" envconfig:"LOW_MEMORY"`
	MaxRPTreeDepth          int         `yaml:"max_rptree_depth" envconfig:"MAX_RPTREE_DEPTH"`
	Delta                   float32     `yaml:"delta" envconfig:"DELTA"`
	SkipNormalization       bool        `yaml:"skip_normalization" envconfig:"SKIP_NORMALIZATION"`
	MaxCandidates           int         `yaml:"max_candidates" envconfig:"MAX_CANDIDATES"`
	Threads                 int         `yaml:"threads" envconfig:"THREADS"`
	Seed                    *int64      `yaml:"seed" envconfig:"SEED"`
	Progress                bool        `yaml:"progress" envconfig:"PROGRESS"`
}

// EvalConfig controls the recall evaluation.
type EvalConfig struct {
	K          int `yaml:"k" envconfig:"K"`
	Queries    int `yaml:"queries" envconfig:"QUERIES"`
	MaxResults int `yaml:"max_results" envconfig:"MAX_RESULTS"`
	Threads    int `yaml:"threads" envconfig:"THREADS"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{
			Root: "example/data/nearest-neighbors-datasets",
			Synthetic: SyntheticConfig{
				N:       10000,
				Dim:     32,
				Queries: 100,
				Seed:    1,
			},
		},
		Graph: GraphConfig{
			Metric:                  core.SquaredEuclidean,
			NNeighbors:              nndescent.DefaultNNeighbors,
			PruningDegreeMultiplier: nndescent.DefaultPruningDegreeMultiplier,
			DiversifyProb:           nndescent.DefaultDiversifyProb,
			LowMemory:               true,
			MaxRPTreeDepth:          nndescent.DefaultMaxRPTreeDepth,
			Delta:                   nndescent.DefaultDelta,
			MaxCandidates:           nndescent.DefaultMaxCandidates,
			Threads:                 1,
		},
		Eval: EvalConfig{
			K:          10,
			Queries:    -1,
			MaxResults: 5,
			Threads:    1,
		},
	}
}

// Load starts from Default, applies the YAML file at path if path is not
// empty and then the environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the graph builder does not check itself.
func (c Config) Validate() error {
	if c.Dataset.Name == "" {
		s := c.Dataset.Synthetic
		if s.N < 1 || s.Dim < 1 || s.Queries < 0 {
			return fmt.Errorf("invalid synthetic dataset n=%d dim=%d queries=%d", s.N, s.Dim, s.Queries)
		}
	}
	if c.Eval.K < 1 {
		return errors.New("eval.k must be at least 1")
	}
	return nil
}

// Apply copies the graph settings onto b.
func (g GraphConfig) Apply(b *nndescent.Builder) *nndescent.Builder {
	b = b.WithMetric(g.Metric).
		WithNNeighbors(g.NNeighbors).
		WithPruningDegreeMultiplier(g.PruningDegreeMultiplier).
		WithDiversifyProb(g.DiversifyProb).
		WithLowMemory(g.LowMemory).
		WithMaxRPTreeDepth(g.MaxRPTreeDepth).
		WithDelta(g.Delta).
		WithSkipNormalization(g.SkipNormalization).
		WithMaxCandidates(g.MaxCandidates).
		WithNThreads(g.Threads).
		WithProgress(g.Progress)
	if g.NTrees != nil {
		b = b.WithNTrees(*g.NTrees)
	}
	if g.LeafSize != nil {
		b = b.WithLeafSize(*g.LeafSize)
	}
	if g.NIters != nil {
		b = b.WithNIters(*g.NIters)
	}
	if g.Seed != nil {
		b = b.WithSeed(*g.Seed)
	}
	return b
}
