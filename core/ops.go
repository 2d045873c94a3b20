package core

import "math"

// epsilon is the float32 machine epsilon. Norms and margins below it are treated as zero.
const epsilon = 1.1920929e-07

// SpatialOps is the vector math surface the graph builder consumes.
// Implementations must be safe for concurrent use.
type SpatialOps interface {
	// Name returns a short human-readable name of the implementation.
	Name() string

	// Dot returns the dot product of a and b.
	Dot(a, b []float32) float32

	// SquaredNorm returns the squared L2 norm of a.
	SquaredNorm(a []float32) float32

	// Normalize scales a to unit length in place. Zero vectors are left untouched.
	Normalize(a []float32)

	// DistDot returns the dot product distance (1 - a·b, or 1 when a·b <= 0).
	DistDot(a, b []float32) float32

	// DistCosine returns the cosine distance of a and b.
	DistCosine(a, b []float32) float32

	// DistSquaredEuclidean returns the squared Euclidean distance of a and b.
	DistSquaredEuclidean(a, b []float32) float32

	// AngularHyperplane returns the normalized difference of the normalized inputs.
	AngularHyperplane(a, b []float32) []float32

	// EuclideanHyperplane returns a - b and the offset placing the hyperplane
	// at the midpoint of a and b.
	EuclideanHyperplane(a, b []float32) ([]float32, float32)
}

// checkLengths panics when two vectors cannot be combined.
func checkLengths(a, b []float32) {
	if len(a) == 0 || len(b) == 0 {
		panic("vectors must not be empty")
	}
	if len(a) != len(b) {
		panic("vectors must have the same length")
	}
}

// angularTolerance absorbs rounding in angular distances, so a vector is at
// distance 0 from itself after normalization.
const angularTolerance = 16 * epsilon

// dotDistance maps a dot product of unit vectors to a distance.
func dotDistance(product float32) float32 {
	if product <= 0 {
		return 1
	}
	return clampAngular(1 - product)
}

// cosineDistance computes 1 - cos(a, b) from the dot product and squared norms.
func cosineDistance(product, normA, normB float32) float32 {
	switch {
	case normA == 0 && normB == 0:
		return 0
	case normA == 0 || normB == 0:
		return 1
	}
	return clampAngular(1 - product/float32(math.Sqrt(float64(normA*normB))))
}

func clampAngular(d float32) float32 {
	if d < angularTolerance {
		return 0
	}
	return d
}

// safeNorm returns the L2 norm for a squared norm, substituting 1 for near-zero values.
func safeNorm(squared float32) float32 {
	norm := float32(math.Sqrt(float64(squared)))
	if norm < epsilon {
		return 1
	}
	return norm
}
