package core

// Searcher is an approximate nearest neighbor index that can be queried.
type Searcher interface {

	// Search returns the ids and distances of the k nearest neighbors for a query vector.
	Search(query []float32, k int) ([]Neighbor, error)

	// Stats returns metadata about the index, such as count and dimensionality.
	Stats() IndexStats
}

// Neighbor holds a neighbor's id and its computed distance.
type Neighbor struct {
	ID       int
	Distance float64
}

// IndexStats contains metadata about the index.
type IndexStats struct {
	Count     int    // total number of indexed vectors
	Dimension int    // dimensionality of vectors
	Distance  string // name of the distance metric
}
