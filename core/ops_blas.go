package core

import (
	"sync"

	"gonum.org/v1/gonum/blas/gonum"
)

// blasEngine dispatches to gonum's assembly kernels where the platform has them.
var blasEngine = gonum.Implementation{}

// diffWorkspace pools scratch buffers for difference vectors so that
// squared Euclidean distances do not allocate in the hot loop.
var diffWorkspace = sync.Pool{
	New: func() interface{} {
		s := make([]float32, 0, 1024)
		return &s
	},
}

// BlasOps implements SpatialOps on top of gonum's float32 BLAS level 1 routines.
type BlasOps struct{}

// Name returns "blas".
func (BlasOps) Name() string { return "blas" }

// Dot returns the dot product of a and b.
func (BlasOps) Dot(a, b []float32) float32 {
	checkLengths(a, b)
	return blasEngine.Sdot(len(a), a, 1, b, 1)
}

// SquaredNorm returns a·a.
func (BlasOps) SquaredNorm(a []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return blasEngine.Sdot(len(a), a, 1, a, 1)
}

// Normalize scales a to unit length in place.
func (BlasOps) Normalize(a []float32) {
	if len(a) == 0 {
		return
	}
	norm := blasEngine.Snrm2(len(a), a, 1)
	if norm < epsilon {
		return
	}
	blasEngine.Sscal(len(a), 1/norm, a, 1)
}

// DistDot returns the dot product distance of two unit vectors.
func (o BlasOps) DistDot(a, b []float32) float32 {
	return dotDistance(o.Dot(a, b))
}

// DistCosine returns the cosine distance of a and b.
func (o BlasOps) DistCosine(a, b []float32) float32 {
	checkLengths(a, b)
	n := len(a)
	return cosineDistance(
		blasEngine.Sdot(n, a, 1, b, 1),
		blasEngine.Sdot(n, a, 1, a, 1),
		blasEngine.Sdot(n, b, 1, b, 1),
	)
}

// DistSquaredEuclidean returns |a-b|².
func (BlasOps) DistSquaredEuclidean(a, b []float32) float32 {
	checkLengths(a, b)
	n := len(a)

	bufPtr := diffWorkspace.Get().(*[]float32)
	if cap(*bufPtr) < n {
		*bufPtr = make([]float32, n)
	}
	diff := (*bufPtr)[:n]
	copy(diff, a)
	blasEngine.Saxpy(n, -1, b, 1, diff, 1)
	dist := blasEngine.Sdot(n, diff, 1, diff, 1)
	diffWorkspace.Put(bufPtr)

	return dist
}

// AngularHyperplane returns normalize(normalize(a) - normalize(b)).
func (BlasOps) AngularHyperplane(a, b []float32) []float32 {
	checkLengths(a, b)
	n := len(a)
	normA := safeNorm(blasEngine.Sdot(n, a, 1, a, 1))
	normB := safeNorm(blasEngine.Sdot(n, b, 1, b, 1))

	hyperplane := make([]float32, n)
	blasEngine.Saxpy(n, 1/normA, a, 1, hyperplane, 1)
	blasEngine.Saxpy(n, -1/normB, b, 1, hyperplane, 1)

	norm := safeNorm(blasEngine.Sdot(n, hyperplane, 1, hyperplane, 1))
	blasEngine.Sscal(n, 1/norm, hyperplane, 1)
	return hyperplane
}

// EuclideanHyperplane returns a - b and -(h · (a+b)/2).
func (BlasOps) EuclideanHyperplane(a, b []float32) ([]float32, float32) {
	checkLengths(a, b)
	n := len(a)

	hyperplane := make([]float32, n)
	copy(hyperplane, a)
	blasEngine.Saxpy(n, -1, b, 1, hyperplane, 1)

	// h·mid = (h·a + h·b) / 2
	offset := -0.5 * (blasEngine.Sdot(n, hyperplane, 1, a, 1) + blasEngine.Sdot(n, hyperplane, 1, b, 1))
	return hyperplane, offset
}

var _ SpatialOps = BlasOps{}
