package nndescent

import (
	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/graph"
	"github.com/patrikhermansson/rann/rpt"
)

// Index is a finished NN-descent graph together with the forest and search
// graph built alongside it. It is read-only and safe for concurrent use.
type Index struct {
	data   [][]float32
	metric core.Metric
	ops    core.SpatialOps
	graph  *graph.DynamicGraph
	search [][]uint32
	forest []*rpt.Tree
	stats  BuildStats
}

// Graph returns the k-NN graph.
func (idx *Index) Graph() *graph.DynamicGraph { return idx.graph }

// Neighbors returns the neighbors of point p by increasing distance.
func (idx *Index) Neighbors(p int) []graph.Entry { return idx.graph.Point(p).Sorted() }

// NeighborLists returns the sorted neighbor indices and distances of every point.
func (idx *Index) NeighborLists() ([][]uint32, [][]float32) { return idx.graph.NeighborLists() }

// SearchGraph returns the pruned, undirected adjacency used by Search.
func (idx *Index) SearchGraph() [][]uint32 { return idx.search }

// Forest returns the random projection forest used to seed the graph.
func (idx *Index) Forest() []*rpt.Tree { return idx.forest }

// Metric returns the distance metric of the index.
func (idx *Index) Metric() core.Metric { return idx.metric }

// Data returns the indexed points, normalized if the metric requires it.
func (idx *Index) Data() [][]float32 { return idx.data }

// BuildStats returns statistics collected while building.
func (idx *Index) BuildStats() BuildStats { return idx.stats }

// Stats returns basic statistics about the index.
func (idx *Index) Stats() core.IndexStats {
	dim := 0
	if len(idx.data) > 0 {
		dim = len(idx.data[0])
	}
	return core.IndexStats{
		Count:     len(idx.data),
		Dimension: dim,
		Distance:  idx.metric.String(),
	}
}

var _ core.Searcher = (*Index)(nil)
