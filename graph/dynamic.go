package graph

// DynamicGraph is the k-NN graph under construction: one SortedNeighbors per
// point, index-aligned with the dataset.
type DynamicGraph struct {
	points     []*SortedNeighbors
	nNeighbors int
}

// NewDynamicGraph allocates a graph of nPoints empty heaps of capacity nNeighbors.
func NewDynamicGraph(nPoints, nNeighbors int) *DynamicGraph {
	points := make([]*SortedNeighbors, nPoints)
	for i := range points {
		points[i] = NewSortedNeighbors(nNeighbors)
	}
	return &DynamicGraph{points: points, nNeighbors: nNeighbors}
}

// NumVertices returns the number of points.
func (g *DynamicGraph) NumVertices() int { return len(g.points) }

// NumNeighbors returns the heap capacity of every point.
func (g *DynamicGraph) NumNeighbors() int { return g.nNeighbors }

// Point returns the heap of point p.
func (g *DynamicGraph) Point(p int) *SortedNeighbors { return g.points[p] }

// Threshold returns the current worst retained distance of point p.
func (g *DynamicGraph) Threshold(p int) float32 { return g.points[p].Threshold() }

// CheckedPush offers q as a neighbor of p. Self loops are refused.
func (g *DynamicGraph) CheckedPush(p, q int, dist float32, isNew bool) bool {
	if p == q {
		return false
	}
	return g.points[p].CheckedPush(dist, uint32(q), isNew)
}

// Unfilled returns the points whose heaps still have empty slots.
func (g *DynamicGraph) Unfilled() []int {
	var out []int
	for p, h := range g.points {
		if h.Count() < h.Len() {
			out = append(out, p)
		}
	}
	return out
}

// NeighborLists returns every point's neighbors sorted by increasing distance.
func (g *DynamicGraph) NeighborLists() ([][]uint32, [][]float32) {
	indices := make([][]uint32, len(g.points))
	dists := make([][]float32, len(g.points))
	for p, h := range g.points {
		sorted := h.Sorted()
		indices[p] = make([]uint32, len(sorted))
		dists[p] = make([]float32, len(sorted))
		for i, e := range sorted {
			indices[p][i] = e.Idx
			dists[p][i] = e.Dist
		}
	}
	return indices, dists
}
