package nndescent

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomData(n, dim int, seed int64) [][]float32 {
	rnd := rand.New(rand.NewSource(seed))
	data := make([][]float32, n)
	for i := range data {
		data[i] = make([]float32, dim)
		for j := range data[i] {
			data[i][j] = rnd.Float32()
		}
	}
	return data
}

// assertGraphInvariants checks that every heap is full, free of self loops
// and duplicates, and holds true distances.
func assertGraphInvariants(t *testing.T, idx *Index, k int) {
	t.Helper()
	g := idx.Graph()
	ops := core.FallbackOps{}
	for p := 0; p < g.NumVertices(); p++ {
		neighbors := idx.Neighbors(p)
		require.Len(t, neighbors, k, "point %d is not full", p)
		seen := make(map[uint32]bool)
		for i, e := range neighbors {
			require.NotEqual(t, uint32(p), e.Idx, "self loop at %d", p)
			require.False(t, seen[e.Idx], "duplicate neighbor %d at %d", e.Idx, p)
			seen[e.Idx] = true
			if i > 0 {
				require.LessOrEqual(t, neighbors[i-1].Dist, e.Dist)
			}
			want := idx.Metric().Distance(ops, idx.Data()[p], idx.Data()[e.Idx])
			require.InDelta(t, float64(want), float64(e.Dist), 1e-4)
		}
	}
}

func TestBuildGraphInvariants(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		k       int
	}{
		{"low memory", NewBuilder().WithData(randomData(1000, 64, 42)).WithNNeighbors(10).
			WithNTrees(16).WithLeafSize(20).WithNThreads(4).WithSeed(42), 10},
		{"high memory", NewBuilder().WithData(randomData(600, 16, 7)).WithNNeighbors(8).
			WithLowMemory(false).WithNThreads(3).WithSeed(7), 8},
		{"cosine", NewBuilder().WithData(randomData(500, 16, 8)).WithMetric(core.Cosine).
			WithNNeighbors(8).WithNThreads(2).WithSeed(8), 8},
		{"dot", NewBuilder().WithData(randomData(500, 16, 8)).WithMetric(core.Dot).
			WithNNeighbors(8).WithNThreads(2).WithSeed(8), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := tt.builder.Build()
			require.NoError(t, err)
			assertGraphInvariants(t, idx, tt.k)
		})
	}
}

func TestBuildIdenticalPoints(t *testing.T) {
	for _, point := range [][]float32{{1, 0, 0, 0}, {0.1, 0.2, 0.3, 0.7, 0.11}} {
		data := make([][]float32, 100)
		for i := range data {
			data[i] = append([]float32(nil), point...)
		}
		for _, ops := range []core.SpatialOps{core.BlasOps{}, core.FallbackOps{}} {
			for _, metric := range []core.Metric{core.SquaredEuclidean, core.Cosine, core.Dot} {
				t.Run(fmt.Sprintf("%v/%s/%s", point, ops.Name(), metric), func(t *testing.T) {
					idx, err := NewBuilder().WithData(data).WithMetric(metric).WithOps(ops).
						WithNNeighbors(5).WithNTrees(4).WithSeed(9).Build()
					require.NoError(t, err)

					assertGraphInvariants(t, idx, 5)
					for p := range data {
						for _, e := range idx.Neighbors(p) {
							assert.Equal(t, float32(0), e.Dist)
						}
					}
				})
			}
		}
	}
}

func TestBuildWithoutTrees(t *testing.T) {
	data := randomData(300, 8, 10)
	idx, err := NewBuilder().WithData(data).WithNNeighbors(6).WithNTrees(0).WithSeed(10).Build()
	require.NoError(t, err)

	assert.Empty(t, idx.Forest())
	assert.Equal(t, 0, idx.BuildStats().SeedUpdates)
	assert.Greater(t, idx.BuildStats().FillUpdates, 0)
	assertGraphInvariants(t, idx, 6)
}

func TestBuildSmallDatasetFill(t *testing.T) {
	// Shallow trees leave most heaps short of k neighbors.
	data := randomData(12, 3, 11)
	idx, err := NewBuilder().WithData(data).WithNNeighbors(10).WithNTrees(2).
		WithLeafSize(1).WithMaxRPTreeDepth(1).WithSeed(11).Build()
	require.NoError(t, err)
	assertGraphInvariants(t, idx, 10)
}

func TestRefinementConverges(t *testing.T) {
	data := randomData(800, 12, 12)
	idx, err := NewBuilder().WithData(data).WithNNeighbors(10).WithNTrees(2).
		WithNIters(10).WithDelta(0).WithSeed(12).Build()
	require.NoError(t, err)

	updates := idx.BuildStats().Updates
	require.NotEmpty(t, updates)
	assert.GreaterOrEqual(t, updates[0], updates[len(updates)-1])
	assert.Greater(t, updates[0], 0)
}

func TestDeltaStopsEarly(t *testing.T) {
	data := randomData(400, 8, 13)
	idx, err := NewBuilder().WithData(data).WithNNeighbors(5).WithNIters(50).
		WithDelta(0.5).WithSeed(13).Build()
	require.NoError(t, err)

	stats := idx.BuildStats()
	assert.Less(t, stats.Iterations, 50)
	last := stats.Updates[len(stats.Updates)-1]
	assert.Less(t, float64(last), 0.5*400*5)
}

// undirectedDegrees counts the distinct in- and out-neighbors of every point.
func undirectedDegrees(adj [][]uint32) []int {
	nbrs := make([]map[uint32]bool, len(adj))
	for p := range nbrs {
		nbrs[p] = make(map[uint32]bool)
	}
	for p, list := range adj {
		for _, q := range list {
			nbrs[p][q] = true
			nbrs[q][uint32(p)] = true
		}
	}
	degrees := make([]int, len(adj))
	for p, m := range nbrs {
		degrees[p] = len(m)
	}
	return degrees
}

func TestSearchGraphDegreeBound(t *testing.T) {
	data := randomData(500, 8, 14)
	for _, prob := range []float32{0, 0.5, 1} {
		idx, err := NewBuilder().WithData(data).WithNNeighbors(6).
			WithPruningDegreeMultiplier(1.5).WithDiversifyProb(prob).WithNThreads(2).WithSeed(14).Build()
		require.NoError(t, err)

		adj := idx.SearchGraph()
		edges := 0
		for p, list := range adj {
			edges += len(list)
			seen := make(map[uint32]bool)
			for i, q := range list {
				assert.NotEqual(t, uint32(p), q)
				assert.False(t, seen[q])
				seen[q] = true
				assert.Contains(t, adj[q], uint32(p), "edge %d-%d is one-sided", p, q)
				if i > 0 {
					prev := idx.Metric().Distance(core.FallbackOps{}, data[p], data[list[i-1]])
					cur := idx.Metric().Distance(core.FallbackOps{}, data[p], data[q])
					assert.LessOrEqual(t, prev, cur+1e-5)
				}
			}
		}
		for p, d := range undirectedDegrees(adj) {
			assert.LessOrEqual(t, d, 9, "point %d exceeds the degree bound with diversify %v", p, prob)
		}
		assert.Greater(t, edges, len(data))
	}
}

func TestDiversifyRemovesOnlyRedundantEdges(t *testing.T) {
	data := randomData(400, 8, 15)
	build := func(prob float32) *Index {
		idx, err := NewBuilder().WithData(data).WithNNeighbors(8).WithDiversifyProb(prob).
			WithSeed(15).Build()
		require.NoError(t, err)
		return idx
	}
	full := build(0)
	diverse := build(1)

	// Both builds share the seed, so their k-NN graphs are identical.
	lists, _ := diverse.NeighborLists()
	knn := make(map[uint64]bool)
	for p, list := range lists {
		for _, q := range list {
			knn[pairKey(uint32(p), q)] = true
		}
	}

	fullEdges, diverseEdges := 0, 0
	for p := range data {
		for _, q := range diverse.SearchGraph()[p] {
			assert.True(t, knn[pairKey(uint32(p), q)], "edge %d-%d is not in the k-NN graph", p, q)
		}
		fullEdges += len(full.SearchGraph()[p])
		diverseEdges += len(diverse.SearchGraph()[p])
	}
	assert.Less(t, diverseEdges, fullEdges)
}

func TestBuildUpdatesMetrics(t *testing.T) {
	builds := metrics.BuildsTotal.WithLabelValues("cosine")
	buildsBefore := testutil.ToFloat64(builds)
	itersBefore := testutil.ToFloat64(metrics.NNDescentIterationsTotal)
	treesBefore := testutil.ToFloat64(metrics.TreesBuiltTotal)

	idx, err := NewBuilder().WithData(randomData(100, 4, 16)).WithMetric(core.Cosine).
		WithNNeighbors(5).WithNTrees(3).WithSeed(16).Build()
	require.NoError(t, err)

	assert.Equal(t, buildsBefore+1, testutil.ToFloat64(builds))
	assert.Equal(t, treesBefore+3, testutil.ToFloat64(metrics.TreesBuiltTotal))
	assert.Equal(t, itersBefore+float64(idx.BuildStats().Iterations), testutil.ToFloat64(metrics.NNDescentIterationsTotal))
}

func TestPairKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, pairKey(3, 9), pairKey(9, 3))
	assert.NotEqual(t, pairKey(3, 9), pairKey(3, 10))
	assert.Equal(t, uint64(3)<<32|9, pairKey(9, 3))
}
