package example

import (
	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/nndescent"
)

// NNDescentFactory returns an IndexFactory that builds NN-descent graphs.
// configure, if set, adjusts the builder after the data has been set.
func NNDescentFactory(configure func(*nndescent.Builder) *nndescent.Builder) IndexFactory {
	return func(train [][]float32) (core.Searcher, error) {
		b := nndescent.NewBuilder().WithData(train)
		if configure != nil {
			b = configure(b)
		}
		index, err := b.Build()
		if err != nil {
			return nil, err
		}
		return index, nil
	}
}
