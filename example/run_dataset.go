package example

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/patrikhermansson/rann/core"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// IndexFactory builds an index over the given training vectors.
type IndexFactory func(train [][]float32) (core.Searcher, error)

// QueryResult holds the results for a single query.
type QueryResult struct {
	idx         int
	recall      float64
	duration    time.Duration
	predicted   string
	groundTruth string
	err         error
}

// Report summarizes an evaluation run.
type Report struct {
	Queries         int           // number of queries run
	K               int           // neighbors requested per query
	Recall          float64       // average Recall@K
	AvgResponseTime time.Duration // average query time
	BuildTime       time.Duration // time spent building the index
	Runtime         time.Duration // overall runtime
}

// benchThreads reads the number of query workers from RANN_BENCH_NTRD.
func benchThreads() int {
	threads := 1
	if env := os.Getenv("RANN_BENCH_NTRD"); env != "" {
		if t, err := strconv.Atoi(env); err == nil && t > 0 {
			threads = t
			log.Info().Msgf("Using %d threads used for benchmarking", threads)
		}
	}
	return threads
}

// RunDataset loads the dataset under root, builds the index using the provided
// factory and evaluates it. See Evaluate for numQueries and maxResults.
// The number of query workers is read from the RANN_BENCH_NTRD environment variable.
func RunDataset(factory IndexFactory, dataset, root string, k, numQueries, maxResults int) (Report, error) {
	fmt.Printf("Loading dataset: %s\n", dataset)
	ds, err := LoadDataset(filepath.Join(root, dataset))
	if err != nil {
		return Report{}, err
	}
	return BuildAndEvaluate(factory, ds, k, numQueries, maxResults, benchThreads())
}

// BuildAndEvaluate builds an index over ds.Train and evaluates it on ds.Test.
func BuildAndEvaluate(factory IndexFactory, ds *Dataset, k, numQueries, maxResults, threads int) (Report, error) {
	start := time.Now()
	index, err := factory(ds.Train)
	if err != nil {
		return Report{}, fmt.Errorf("build index: %w", err)
	}
	buildTime := time.Since(start)

	stats := index.Stats()
	fmt.Printf("Indexed %d vectors (%d dimensions) in %.2fs; distance: %s\n",
		stats.Count, stats.Dimension, buildTime.Seconds(), stats.Distance)

	report, err := Evaluate(index, ds, k, numQueries, maxResults, threads)
	if err != nil {
		return report, err
	}
	report.BuildTime = buildTime
	report.Runtime = time.Since(start)
	fmt.Printf("Overall runtime: %v\n", report.Runtime)
	return report, nil
}

// Evaluate runs kNN queries on a subset of the test queries and computes
// Recall@k along with per-query response times. If numQueries is negative or
// exceeds the number of available test vectors, all test vectors are used and
// a progress bar is displayed instead of per-query details.
func Evaluate(index core.Searcher, ds *Dataset, k, numQueries, maxResults, threads int) (Report, error) {
	start := time.Now()

	// Activate benchmark mode if numQueries is negative or too high.
	benchmarkMode := false
	if numQueries < 0 || numQueries > len(ds.Test) {
		numQueries = len(ds.Test)
		benchmarkMode = true
	}
	if numQueries == 0 {
		return Report{K: k}, nil
	}
	if threads < 1 {
		threads = 1
	}

	fmt.Printf("Running kNN queries (k=%d) on %d test vectors using %d threads\n", k, numQueries, threads)

	// Pre-allocate a slice to hold query results.
	resultsSlice := make([]QueryResult, numQueries)

	// Set up a progress bar if in benchmark mode.
	var bar *progressbar.ProgressBar
	if benchmarkMode {
		bar = progressbar.Default(int64(numQueries))
	}

	// Create a channel to feed query indices.
	tasks := make(chan int, numQueries)
	var wg sync.WaitGroup

	// Worker function: processes queries from the task channel.
	worker := func() {
		defer wg.Done()
		for idx := range tasks {
			startQuery := time.Now()
			res, err := index.Search(ds.Test[idx], k)
			if err != nil {
				resultsSlice[idx] = QueryResult{idx: idx, err: fmt.Errorf("search error on query %d: %w", idx, err)}
				continue
			}
			duration := time.Since(startQuery)

			var predicted, groundTruth string
			if !benchmarkMode {
				predicted = FormatNeighbors(res, maxResults)
				groundTruth = FormatNeighbors(TruthNeighbors(ds.Neighbors[idx], ds.Distances[idx]), maxResults)
			}

			resultsSlice[idx] = QueryResult{
				idx:         idx,
				recall:      RecallAtK(res, truncate(ds.Neighbors[idx], k), k),
				duration:    duration,
				predicted:   predicted,
				groundTruth: groundTruth,
			}

			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}

	// Start worker goroutines.
	wg.Add(threads)
	for i := 0; i < threads; i++ {
		go worker()
	}

	// Feed query indices into the task channel.
	for i := 0; i < numQueries; i++ {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	// Aggregate the results.
	var totalRecall float64
	var totalQueryTime time.Duration
	for _, res := range resultsSlice {
		if res.err != nil {
			return Report{}, res.err
		}
		totalRecall += res.recall
		totalQueryTime += res.duration
	}

	report := Report{
		Queries:         numQueries,
		K:               k,
		Recall:          totalRecall / float64(numQueries),
		AvgResponseTime: totalQueryTime / time.Duration(numQueries),
		Runtime:         time.Since(start),
	}

	// If not benchmarking, print each query's details.
	if !benchmarkMode {
		for i, res := range resultsSlice {
			fmt.Printf("Query #%d:\n", i+1)
			fmt.Printf(" -> Predicted:     %s\n", res.predicted)
			fmt.Printf(" -> Ground-truth:  %s\n", res.groundTruth)
			fmt.Printf(" -> Recall@%d:     %.2f, Response time: %v\n", k, res.recall, res.duration)
		}
	}

	fmt.Printf("Average Recall@%d over %d queries: %.2f\n", k, numQueries, report.Recall)
	fmt.Printf("Average query response time: %v\n", report.AvgResponseTime)
	return report, nil
}

// truncate returns the first k ids of the ground truth.
func truncate(ids []int, k int) []int {
	if len(ids) > k {
		return ids[:k]
	}
	return ids
}
