package example

import (
	"fmt"
	"strings"

	"github.com/patrikhermansson/rann/core"
)

// FormatNeighbors renders the first limit neighbors as "id=<id> (dist=<d>)" pairs.
func FormatNeighbors(neighbors []core.Neighbor, limit int) string {
	limit = max(0, min(limit, len(neighbors)))
	var sb strings.Builder
	for _, n := range neighbors[:limit] {
		fmt.Fprintf(&sb, "id=%d (dist=%.3f) ", n.ID, n.Distance)
	}
	return sb.String()
}

// TruthNeighbors pairs ground-truth ids with their distances.
func TruthNeighbors(ids []int, distances []float64) []core.Neighbor {
	out := make([]core.Neighbor, min(len(ids), len(distances)))
	for i := range out {
		out[i] = core.Neighbor{ID: ids[i], Distance: distances[i]}
	}
	return out
}

// RecallAtK returns the fraction of groundTruth found among the first k predictions.
func RecallAtK(predicted []core.Neighbor, groundTruth []int, k int) float64 {
	if k <= 0 || len(groundTruth) == 0 {
		return 0
	}
	found := make(map[int]bool, k)
	for _, n := range predicted[:min(k, len(predicted))] {
		found[n.ID] = true
	}
	hits := 0
	for _, id := range groundTruth {
		if found[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}

// PointTruth returns the exact k nearest neighbors of data[p] for every p in
// points, excluding p itself.
func PointTruth(ops core.SpatialOps, metric core.Metric, data [][]float32, points []int, k, workers int) [][]int {
	queries := make([][]float32, len(points))
	for i, p := range points {
		queries[i] = data[p]
	}
	ids, _ := BruteForce(ops, metric, data, queries, k+1, workers)

	truth := make([][]int, len(points))
	for i, p := range points {
		row := make([]int, 0, k)
		for _, q := range ids[i] {
			if q != p && len(row) < k {
				row = append(row, q)
			}
		}
		truth[i] = row
	}
	return truth
}

// GraphRecall scores the k-NN lists of points against their exact neighbors,
// as the fraction of true neighbors present in the lists.
func GraphRecall(lists [][]uint32, points []int, truth [][]int) float64 {
	hits, total := 0, 0
	for i, p := range points {
		listed := make(map[int]bool, len(lists[p]))
		for _, q := range lists[p] {
			listed[int(q)] = true
		}
		for _, q := range truth[i] {
			if listed[q] {
				hits++
			}
		}
		total += len(truth[i])
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
