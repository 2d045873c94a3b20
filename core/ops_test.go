package core

import (
	"math"
	"math/rand"
	"testing"
)

// almostEqual compares two floating-point values with a tolerance.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

var allOps = []SpatialOps{BlasOps{}, FallbackOps{}}

func TestDistanceFunctions(t *testing.T) {
	tests := []struct {
		name                     string
		a, b                     []float32
		expectedSquaredEuclidean float64
		expectedCosineDistance   float64
		expectedDot              float64
	}{
		{
			name:                     "Identical Vectors",
			a:                        []float32{1, 2, 3, 4, 5, 6},
			b:                        []float32{1, 2, 3, 4, 5, 6},
			expectedSquaredEuclidean: 0,
			expectedCosineDistance:   0,
			expectedDot:              91,
		},
		{
			name:                     "Opposite Order",
			a:                        []float32{1, 2, 3, 4, 5, 6},
			b:                        []float32{6, 5, 4, 3, 2, 1},
			expectedSquaredEuclidean: 70,
			// Cosine: similarity = 56/91, so cosine distance = 1 - (56/91).
			expectedCosineDistance: 1 - (56.0 / 91.0),
			expectedDot:            56,
		},
		{
			name:                     "Binary Opposites",
			a:                        []float32{1, 0, 0, 1, 0, 1},
			b:                        []float32{0, 1, 1, 0, 1, 0},
			expectedSquaredEuclidean: 6,
			expectedCosineDistance:   1,
			expectedDot:              0,
		},
		{
			name:                     "Zero Vector",
			a:                        []float32{0, 0, 0, 0, 0, 0, 0, 0, 0},
			b:                        []float32{1, 0, 0, 0, 0, 0, 0, 0, 0},
			expectedSquaredEuclidean: 1,
			expectedCosineDistance:   1,
			expectedDot:              0,
		},
	}

	for _, ops := range allOps {
		for _, tt := range tests {
			t.Run(ops.Name()+"/"+tt.name, func(t *testing.T) {
				sqEuclid := ops.DistSquaredEuclidean(tt.a, tt.b)
				cosine := ops.DistCosine(tt.a, tt.b)
				dot := ops.Dot(tt.a, tt.b)

				if !almostEqual(float64(sqEuclid), tt.expectedSquaredEuclidean, 1e-5) {
					t.Errorf("DistSquaredEuclidean(%v, %v) = %v; want %v", tt.a, tt.b, sqEuclid, tt.expectedSquaredEuclidean)
				}
				if !almostEqual(float64(cosine), tt.expectedCosineDistance, 1e-5) {
					t.Errorf("DistCosine(%v, %v) = %v; want %v", tt.a, tt.b, cosine, tt.expectedCosineDistance)
				}
				if !almostEqual(float64(dot), tt.expectedDot, 1e-5) {
					t.Errorf("Dot(%v, %v) = %v; want %v", tt.a, tt.b, dot, tt.expectedDot)
				}
			})
		}
	}
}

func TestDistDot(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0.6, 0.8, 0, 0}
	c := []float32{-1, 0, 0, 0}
	for _, ops := range allOps {
		if d := ops.DistDot(a, b); !almostEqual(float64(d), 0.4, 1e-6) {
			t.Errorf("%s: DistDot(a, b) = %v; want 0.4", ops.Name(), d)
		}
		if d := ops.DistDot(a, a); d != 0 {
			t.Errorf("%s: DistDot(a, a) = %v; want 0", ops.Name(), d)
		}
		if d := ops.DistDot(a, c); d != 1 {
			t.Errorf("%s: DistDot(a, -a) = %v; want 1", ops.Name(), d)
		}
	}
}

func TestAngularSelfDistanceIsZero(t *testing.T) {
	for _, ops := range allOps {
		for _, v := range [][]float32{
			{0.1, 0.2, 0.3, 0.7, 0.11},
			{3, -1, 0.25, 9, 4, 4, 0.5, -2, 1},
		} {
			a := append([]float32(nil), v...)
			b := append([]float32(nil), v...)
			ops.Normalize(a)
			ops.Normalize(b)
			if d := ops.DistDot(a, b); d != 0 {
				t.Errorf("%s: DistDot of normalized %v with itself = %v; want 0", ops.Name(), v, d)
			}
			if d := ops.DistCosine(v, v); d != 0 {
				t.Errorf("%s: DistCosine(%v, %v) = %v; want 0", ops.Name(), v, v, d)
			}
		}
	}
}

func TestCosineBothZero(t *testing.T) {
	zero := []float32{0, 0, 0}
	for _, ops := range allOps {
		if d := ops.DistCosine(zero, zero); d != 0 {
			t.Errorf("%s: DistCosine(0, 0) = %v; want 0", ops.Name(), d)
		}
	}
}

func TestEuclideanHyperplane(t *testing.T) {
	a := []float32{2, 0, 0, 0, 0}
	b := []float32{0, 0, 0, 0, 0}
	for _, ops := range allOps {
		h, offset := ops.EuclideanHyperplane(a, b)
		if !almostEqual(float64(h[0]), 2, 1e-6) || h[1] != 0 {
			t.Errorf("%s: hyperplane = %v; want [2 0 0 0 0]", ops.Name(), h)
		}
		// Midpoint is (1, 0, ...), so offset = -(2*1).
		if !almostEqual(float64(offset), -2, 1e-6) {
			t.Errorf("%s: offset = %v; want -2", ops.Name(), offset)
		}
		// a lies on the positive side and b on the negative side.
		if m := offset + ops.Dot(h, a); m <= 0 {
			t.Errorf("%s: margin(a) = %v; want > 0", ops.Name(), m)
		}
		if m := offset + ops.Dot(h, b); m >= 0 {
			t.Errorf("%s: margin(b) = %v; want < 0", ops.Name(), m)
		}
	}
}

func TestAngularHyperplane(t *testing.T) {
	a := []float32{3, 0, 0}
	b := []float32{0, 5, 0}
	for _, ops := range allOps {
		h := ops.AngularHyperplane(a, b)
		want := []float32{1 / float32(math.Sqrt2), -1 / float32(math.Sqrt2), 0}
		for i := range h {
			if !almostEqual(float64(h[i]), float64(want[i]), 1e-6) {
				t.Fatalf("%s: AngularHyperplane = %v; want %v", ops.Name(), h, want)
			}
		}
		if !almostEqual(float64(ops.SquaredNorm(h)), 1, 1e-6) {
			t.Errorf("%s: hyperplane is not unit length: %v", ops.Name(), h)
		}
	}
}

func TestAngularHyperplaneIdenticalInputs(t *testing.T) {
	a := []float32{1, 1, 1, 1}
	for _, ops := range allOps {
		h := ops.AngularHyperplane(a, a)
		for _, v := range h {
			if v != 0 || math.IsNaN(float64(v)) {
				t.Fatalf("%s: AngularHyperplane(a, a) = %v; want zero vector", ops.Name(), h)
			}
		}
	}
}

func TestOpsAgree(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for dim := 1; dim <= 67; dim += 11 {
		a := make([]float32, dim)
		b := make([]float32, dim)
		for i := range a {
			a[i] = rnd.Float32()*2 - 1
			b[i] = rnd.Float32()*2 - 1
		}
		blas, fallback := BlasOps{}, FallbackOps{}
		pairs := [][2]float32{
			{blas.Dot(a, b), fallback.Dot(a, b)},
			{blas.DistCosine(a, b), fallback.DistCosine(a, b)},
			{blas.DistSquaredEuclidean(a, b), fallback.DistSquaredEuclidean(a, b)},
		}
		for i, p := range pairs {
			if !almostEqual(float64(p[0]), float64(p[1]), 1e-4) {
				t.Errorf("dim=%d op=%d: blas=%v fallback=%v", dim, i, p[0], p[1])
			}
		}
		hb, ob := blas.EuclideanHyperplane(a, b)
		hf, of := fallback.EuclideanHyperplane(a, b)
		if !almostEqual(float64(ob), float64(of), 1e-4) {
			t.Errorf("dim=%d: offsets differ: %v vs %v", dim, ob, of)
		}
		ab := blas.AngularHyperplane(a, b)
		af := fallback.AngularHyperplane(a, b)
		for i := range hb {
			if !almostEqual(float64(hb[i]), float64(hf[i]), 1e-5) || !almostEqual(float64(ab[i]), float64(af[i]), 1e-4) {
				t.Fatalf("dim=%d: hyperplanes differ at %d", dim, i)
			}
		}
	}
}

func TestMismatchedLengthsPanic(t *testing.T) {
	for _, ops := range allOps {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%s: expected panic for mismatched lengths", ops.Name())
				}
			}()
			ops.DistSquaredEuclidean([]float32{1, 2}, []float32{1})
		}()
	}
}
