package example

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Dataset is a nearest neighbor benchmark: vectors to index, queries and the
// exact neighbors of every query.
type Dataset struct {
	Name      string      // dataset name
	Train     [][]float32 // vectors to index
	Test      [][]float32 // query vectors, not indexed
	Neighbors [][]int     // ground-truth neighbor ids per query
	Distances [][]float64 // ground-truth distances per query
}

// LoadDataset loads a dataset from a directory.
// The directory must contain the following files:
//   - train.csv       (vectors to index)
//   - test.csv        (query vectors, not added to the index)
//   - neighbors.csv   (expected neighbor IDs per query)
//   - distances.csv   (expected distances per query)
func LoadDataset(dir string) (*Dataset, error) {
	log.Info().Msgf("Loading dataset from directory: %s", dir)

	train, err := LoadTrainingVectors(dir)
	if err != nil {
		return nil, err
	}
	test, neighbors, distances, err := LoadTestDataset(dir)
	if err != nil {
		return nil, err
	}
	if len(neighbors) < len(test) || len(distances) < len(test) {
		return nil, fmt.Errorf("ground truth covers %d queries, expected %d", min(len(neighbors), len(distances)), len(test))
	}

	log.Info().Msg("Dataset loaded successfully")
	return &Dataset{
		Name:      filepath.Base(dir),
		Train:     train,
		Test:      test,
		Neighbors: neighbors,
		Distances: distances,
	}, nil
}

// readCSV is a generic CSV reader for types: int, float32, and float64.
func readCSV[T int | float32 | float64](path string, skipHeader bool) ([][]T, error) {
	log.Debug().Msgf("Opening CSV file: %s", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var result [][]T

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read error in %s: %w", path, err)
		}
		if skipHeader {
			skipHeader = false
			continue
		}
		row := make([]T, len(record))
		for i, val := range record {
			parsed, err := parseValue[T](val)
			if err != nil {
				return nil, fmt.Errorf("parse error at col %d in %s: %w", i, path, err)
			}
			row[i] = parsed
		}
		result = append(result, row)
	}

	log.Debug().Msgf("Parsed %d rows from %s", len(result), path)
	return result, nil
}

// parseValue converts a string to T (int, float32, or float64).
func parseValue[T int | float32 | float64](s string) (T, error) {
	s = strings.TrimSpace(s)
	var zero T
	switch any(zero).(type) {
	case int:
		v, err := strconv.Atoi(s)
		return any(v).(T), err
	case float32:
		v, err := strconv.ParseFloat(s, 32)
		return any(float32(v)).(T), err
	case float64:
		v, err := strconv.ParseFloat(s, 64)
		return any(v).(T), err
	default:
		return zero, fmt.Errorf("unsupported type %T", zero)
	}
}

// LoadTrainingVectors loads training vectors from "train.csv" in the specified directory.
// Row numbers (0-indexed) are the vector ids.
func LoadTrainingVectors(dir string) ([][]float32, error) {
	trainPath := filepath.Join(dir, "train.csv")
	log.Info().Msgf("Loading training vectors from: %s", trainPath)
	// reuse generic CSV reader (no header in these CSV files)
	vectors, err := readCSV[float32](trainPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load train.csv: %w", err)
	}
	log.Info().Msgf("Loaded %d training vectors from %s", len(vectors), trainPath)
	return vectors, nil
}

// LoadTestDataset loads the test vectors and ground-truth data from the specified directory.
// It returns the test vectors, true neighbor IDs, and true distances (ground-truth).
func LoadTestDataset(dir string) ([][]float32, [][]int, [][]float64, error) {
	testPath := filepath.Join(dir, "test.csv")
	neighborsPath := filepath.Join(dir, "neighbors.csv")
	distancesPath := filepath.Join(dir, "distances.csv")

	log.Info().Msgf("Loading test vectors from: %s", testPath)
	testVectors, err := readCSV[float32](testPath, false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load test.csv: %w", err)
	}

	log.Info().Msgf("Loading ground-truth neighbors from: %s", neighborsPath)
	trueNeighbors, err := readCSV[int](neighborsPath, false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load neighbors.csv: %w", err)
	}

	log.Info().Msgf("Loading ground-truth distances from: %s", distancesPath)
	trueDistances, err := readCSV[float64](distancesPath, false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load distances.csv: %w", err)
	}

	return testVectors, trueNeighbors, trueDistances, nil
}
