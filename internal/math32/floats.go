// Package math32 provides the float32 vector kernels used by the distance
// package and the index hot paths. Dot products and in-place scaling are
// SIMD-accelerated via vek32; the remaining kernels are plain loops.
package math32

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return vek32.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	var d float32
	for i := range a {
		d += (a[i] - b[i]) * (a[i] - b[i])
	}
	return d
}

// L1 calculates the Manhattan (L1) distance between two vectors.
func L1(a, b []float32) float32 {
	var d float32
	for i := range a {
		d += Abs(a[i] - b[i])
	}
	return d
}

// Abs returns the absolute value of x.
func Abs(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

// Sqrt returns the square root of x as a float32.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return Sqrt(vek32.Dot(v, v))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	vek32.MulNumber_Inplace(a, scalar)
}

// Normalize L2-normalizes v in place. A zero-norm input yields NaN
// coordinates (division by a zero norm); callers that care must check the
// norm first.
func Normalize(v []float32) {
	ScaleInPlace(v, 1/Norm(v))
}
