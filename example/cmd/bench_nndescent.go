//go:build ignore
// +build ignore

package main

import (
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/example"
	"github.com/patrikhermansson/rann/nndescent"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set the logger to output to the console.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Start the pprof HTTP server on port 6060.
	// This will expose profiling endpoints at /debug/pprof/ and build metrics at /metrics
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info().Msg("Starting pprof server on :6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			log.Error().Err(err).Msg("pprof server failed")
		}
	}()

	// Benchmarking NN-descent graphs with FashionMNIST and SIFT datasets
	BenchNNDescentFashionMNIST()
	BenchNNDescentSIFT()
}

func factory(metric core.Metric) example.IndexFactory {
	return example.NNDescentFactory(func(b *nndescent.Builder) *nndescent.Builder {
		return b.WithMetric(metric).
			WithNNeighbors(30).
			WithLowMemory(false).
			WithNThreads(8).
			WithProgress(true)
	})
}

func BenchNNDescentFashionMNIST() {
	if _, err := example.RunDataset(factory(core.SquaredEuclidean), "fashion-mnist-784-euclidean",
		"example/data/nearest-neighbors-datasets", 100, -1, 5); err != nil {
		log.Fatal().Err(err).Msg("FashionMNIST benchmark failed")
	}
}

func BenchNNDescentSIFT() {
	if _, err := example.RunDataset(factory(core.SquaredEuclidean), "sift-128-euclidean",
		"example/data/nearest-neighbors-datasets", 100, -1, 5); err != nil {
		log.Fatal().Err(err).Msg("SIFT benchmark failed")
	}
}
