package cmd

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"path/filepath"

	"github.com/patrikhermansson/rann/example"
	"github.com/patrikhermansson/rann/internal/config"
	"github.com/patrikhermansson/rann/nndescent"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Execute runs the CLI: it builds an NN-descent graph for the configured
// dataset and reports its search recall.
func Execute(args []string) error {
	fs := flag.NewFlagSet("rann", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	dataset := fs.String("dataset", "", "Dataset directory name under the dataset root (overrides the config)")
	metricsAddr := fs.String("metrics", "", "Address to serve Prometheus metrics and pprof on (overrides the config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataset != "" {
		cfg.Dataset.Name = *dataset
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		go func() {
			log.Info().Msgf("Serving metrics and pprof on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	factory := example.NNDescentFactory(func(b *nndescent.Builder) *nndescent.Builder {
		return cfg.Graph.Apply(b)
	})
	report, err := example.BuildAndEvaluate(factory, ds, cfg.Eval.K, cfg.Eval.Queries, cfg.Eval.MaxResults, cfg.Eval.Threads)
	if err != nil {
		return err
	}

	fmt.Printf("%s: Recall@%d %.3f over %d queries (build %v, avg query %v)\n",
		ds.Name, report.K, report.Recall, report.Queries, report.BuildTime, report.AvgResponseTime)
	return nil
}

// loadDataset reads the named dataset or generates a synthetic one.
func loadDataset(cfg config.Config) (*example.Dataset, error) {
	if cfg.Dataset.Name != "" {
		return example.LoadDataset(filepath.Join(cfg.Dataset.Root, cfg.Dataset.Name))
	}
	s := cfg.Dataset.Synthetic
	return example.RandomDataset(s.N, s.Dim, s.Queries, cfg.Eval.K, cfg.Graph.Metric, s.Seed, max(cfg.Eval.Threads, cfg.Graph.Threads))
}
