//go:build ignore
// +build ignore

package main

import (
	"os"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/example"
	"github.com/patrikhermansson/rann/nndescent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set the logger to output to the console.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Using NN-descent graphs with FashionMNIST and SIFT datasets
	NNDescentFashionMNIST()
	NNDescentSIFT()
}

func NNDescentFashionMNIST() {
	factory := example.NNDescentFactory(func(b *nndescent.Builder) *nndescent.Builder {
		return b.WithMetric(core.SquaredEuclidean).
			WithNNeighbors(30).
			WithNThreads(8).
			WithProgress(true)
	})

	if _, err := example.RunDataset(factory, "fashion-mnist-784-euclidean",
		"example/data/nearest-neighbors-datasets", 100, 5, 5); err != nil {
		log.Fatal().Err(err).Msg("FashionMNIST run failed")
	}
}

func NNDescentSIFT() {
	factory := example.NNDescentFactory(func(b *nndescent.Builder) *nndescent.Builder {
		return b.WithMetric(core.SquaredEuclidean).
			WithNNeighbors(30).
			WithNThreads(8).
			WithProgress(true)
	})

	if _, err := example.RunDataset(factory, "sift-128-euclidean",
		"example/data/nearest-neighbors-datasets", 100, 5, 5); err != nil {
		log.Fatal().Err(err).Msg("SIFT run failed")
	}
}
