package core

import (
	"fmt"
	"strings"
)

// Metric selects the distance function used to build and search the graph.
type Metric int

const (
	// SquaredEuclidean is the squared L2 distance. It orders points the same
	// way as the Euclidean distance.
	SquaredEuclidean Metric = iota
	// Dot is the dot product distance. Points are normalized before use.
	Dot
	// Cosine is the cosine distance.
	Cosine
)

// metricNames maps human-readable names to metrics.
var metricNames = map[string]Metric{
	"squared_euclidean": SquaredEuclidean,
	"sqeuclidean":       SquaredEuclidean,
	"euclidean":         SquaredEuclidean,
	"dot":               Dot,
	"cosine":            Cosine,
}

// ParseMetric returns the metric with the given name.
func ParseMetric(name string) (Metric, error) {
	m, ok := metricNames[strings.TrimSpace(strings.ToLower(name))]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}

// Distance computes the metric's distance between a and b.
func (m Metric) Distance(ops SpatialOps, a, b []float32) float32 {
	switch m {
	case Dot:
		return ops.DistDot(a, b)
	case Cosine:
		return ops.DistCosine(a, b)
	default:
		return ops.DistSquaredEuclidean(a, b)
	}
}

// RequiresNormalizing reports whether points must be unit length before
// distances are meaningful.
func (m Metric) RequiresNormalizing() bool {
	return m == Dot
}

// RequiresAngularTrees reports whether random projection trees must split
// with angular hyperplanes.
func (m Metric) RequiresAngularTrees() bool {
	return m == Dot || m == Cosine
}

func (m Metric) String() string {
	switch m {
	case SquaredEuclidean:
		return "squared_euclidean"
	case Dot:
		return "dot"
	case Cosine:
		return "cosine"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
