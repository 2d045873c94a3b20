package core

import "math"

// FallbackOps implements SpatialOps in pure Go. The loops are unrolled by
// four so the compiler can keep independent accumulators in registers.
type FallbackOps struct{}

// Name returns "fallback".
func (FallbackOps) Name() string { return "fallback" }

func dot(a, b []float32) float32 {
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

func squaredEuclidean(a, b []float32) float32 {
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < len(a); i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return (s0 + s1) + (s2 + s3)
}

// Dot returns the dot product of a and b.
func (FallbackOps) Dot(a, b []float32) float32 {
	checkLengths(a, b)
	return dot(a, b)
}

// SquaredNorm returns a·a.
func (FallbackOps) SquaredNorm(a []float32) float32 {
	return dot(a, a)
}

// Normalize scales a to unit length in place.
func (FallbackOps) Normalize(a []float32) {
	norm := float32(math.Sqrt(float64(dot(a, a))))
	if norm < epsilon {
		return
	}
	inv := 1 / norm
	for i := range a {
		a[i] *= inv
	}
}

// DistDot returns the dot product distance of two unit vectors.
func (FallbackOps) DistDot(a, b []float32) float32 {
	checkLengths(a, b)
	return dotDistance(dot(a, b))
}

// DistCosine returns the cosine distance of a and b.
func (FallbackOps) DistCosine(a, b []float32) float32 {
	checkLengths(a, b)
	return cosineDistance(dot(a, b), dot(a, a), dot(b, b))
}

// DistSquaredEuclidean returns |a-b|².
func (FallbackOps) DistSquaredEuclidean(a, b []float32) float32 {
	checkLengths(a, b)
	return squaredEuclidean(a, b)
}

// AngularHyperplane returns normalize(normalize(a) - normalize(b)).
func (FallbackOps) AngularHyperplane(a, b []float32) []float32 {
	checkLengths(a, b)
	invA := 1 / safeNorm(dot(a, a))
	invB := 1 / safeNorm(dot(b, b))

	hyperplane := make([]float32, len(a))
	for i := range a {
		hyperplane[i] = a[i]*invA - b[i]*invB
	}

	inv := 1 / safeNorm(dot(hyperplane, hyperplane))
	for i := range hyperplane {
		hyperplane[i] *= inv
	}
	return hyperplane
}

// EuclideanHyperplane returns a - b and -(h · (a+b)/2).
func (FallbackOps) EuclideanHyperplane(a, b []float32) ([]float32, float32) {
	checkLengths(a, b)
	hyperplane := make([]float32, len(a))
	var offset float32
	for i := range a {
		h := a[i] - b[i]
		hyperplane[i] = h
		offset -= h * (a[i] + b[i]) * 0.5
	}
	return hyperplane, offset
}

var _ SpatialOps = FallbackOps{}
