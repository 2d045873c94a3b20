package nndescent

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/patrikhermansson/rann/core"
	"github.com/patrikhermansson/rann/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func buildSearchIndex(t *testing.T, metric core.Metric) (*Index, [][]float32) {
	t.Helper()
	data := randomData(2000, 8, 21)
	idx, err := NewBuilder().WithData(data).WithMetric(metric).WithNNeighbors(10).
		WithNThreads(4).WithSeed(21).Build()
	require.NoError(t, err)
	return idx, data
}

func TestSearchFindsDatasetPoints(t *testing.T) {
	idx, data := buildSearchIndex(t, core.SquaredEuclidean)
	found := 0
	for p := 0; p < 100; p++ {
		results, err := idx.Search(data[p], 5)
		require.NoError(t, err)
		require.Len(t, results, 5)
		assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
			return results[i].Distance < results[j].Distance
		}))
		if results[0].ID == p && results[0].Distance == 0 {
			found++
		}
	}
	assert.GreaterOrEqual(t, found, 98)
}

func TestSearchRecall(t *testing.T) {
	idx, data := buildSearchIndex(t, core.SquaredEuclidean)
	rnd := rand.New(rand.NewSource(22))
	const k = 10
	const nQueries = 100

	ops := core.FallbackOps{}
	hits := 0
	for i := 0; i < nQueries; i++ {
		query := make([]float32, 8)
		for j := range query {
			query[j] = rnd.Float32()
		}

		dists := make([]float32, len(data))
		order := make([]int, len(data))
		for p := range data {
			dists[p] = ops.DistSquaredEuclidean(query, data[p])
			order[p] = p
		}
		sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
		truth := make(map[int]bool, k)
		for _, p := range order[:k] {
			truth[p] = true
		}

		results, err := idx.Search(query, k)
		require.NoError(t, err)
		for _, r := range results {
			if truth[r.ID] {
				hits++
			}
		}
	}
	recall := float64(hits) / float64(k*nQueries)
	t.Logf("search recall@%d: %.3f", k, recall)
	assert.GreaterOrEqual(t, recall, 0.8)
}

func TestSearchNormalizesQuery(t *testing.T) {
	data := randomData(300, 6, 23)
	idx, err := NewBuilder().WithData(data).WithMetric(core.Dot).WithNNeighbors(5).WithSeed(23).Build()
	require.NoError(t, err)

	query := make([]float32, 6)
	for i, v := range data[17] {
		query[i] = v * 4
	}
	original := append([]float32(nil), query...)

	results, err := idx.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, original, query, "the query must not be modified")
	require.NotEmpty(t, results)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-5)
}

func TestSearchErrors(t *testing.T) {
	idx, _ := buildSearchIndex(t, core.SquaredEuclidean)

	_, err := idx.Search(make([]float32, 3), 5)
	assert.Error(t, err)
	_, err = idx.Search(make([]float32, 8), 0)
	assert.Error(t, err)
}

func TestSearchClampsK(t *testing.T) {
	data := randomData(30, 4, 24)
	idx, err := NewBuilder().WithData(data).WithNNeighbors(5).WithSeed(24).Build()
	require.NoError(t, err)

	results, err := idx.Search(data[0], 100)
	require.NoError(t, err)
	assert.Len(t, results, 30)
}

func TestSearchConcurrent(t *testing.T) {
	idx, data := buildSearchIndex(t, core.SquaredEuclidean)
	before := testutil.ToFloat64(metrics.SearchesTotal)

	want := make([][]core.Neighbor, 64)
	for i := range want {
		res, err := idx.Search(data[i], 10)
		require.NoError(t, err)
		want[i] = res
	}

	got := make([][]core.Neighbor, len(want))
	var g errgroup.Group
	g.SetLimit(8)
	for i := range got {
		g.Go(func() error {
			res, err := idx.Search(data[i], 10)
			got[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, want, got)
	assert.Equal(t, before+128, testutil.ToFloat64(metrics.SearchesTotal))
}
