// Package guda tolerance-based verification for floating-point comparisons
package guda

import (
	"fmt"
	"math"
)

// Tolerance bounds the difference accepted between a computed value and its
// reference. A pair is accepted as soon as one bound holds.
type Tolerance struct {
	// Abs is the absolute tolerance for values near zero
	Abs float64

	// Rel is the relative tolerance as a fraction of the larger magnitude
	Rel float64

	// ULP is the maximum allowed distance in float32 units in the last place
	ULP int
}

// DefaultTolerance suits a handful of float32 operations.
func DefaultTolerance() Tolerance {
	return Tolerance{Abs: 1e-7, Rel: 1e-5, ULP: 4}
}

// ReductionTolerance suits a float32 reduction folding n values of the same
// sign. Each level of the reduction tree may round, so the bound grows with
// the number of folded values.
func ReductionTolerance(n int64) Tolerance {
	const eps = 0x1p-24 // float32 unit roundoff
	return Tolerance{
		Abs: 1e-6,
		Rel: math.Max(1e-5, float64(n)*eps),
		ULP: 4,
	}
}

// NearEqual reports whether a and b agree within tol. NaNs match NaNs and
// infinities match infinities of the same sign.
func NearEqual(a, b float64, tol Tolerance) bool {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return math.IsNaN(a) && math.IsNaN(b)
	case a == b:
		return true
	case math.IsInf(a, 0) || math.IsInf(b, 0):
		return false
	}
	diff := math.Abs(a - b)
	if diff <= tol.Abs || diff <= tol.Rel*math.Max(math.Abs(a), math.Abs(b)) {
		return true
	}
	return tol.ULP > 0 && Float32ULPDiff(float32(a), float32(b)) <= int64(tol.ULP)
}

// Float32ULPDiff returns the number of representable float32 values between
// a and b. Zeros of both signs are the same point.
func Float32ULPDiff(a, b float32) int64 {
	d := ordered(a) - ordered(b)
	if d < 0 {
		return -d
	}
	return d
}

// ordered maps float32 bit patterns onto a line where adjacent values differ
// by one.
func ordered(f float32) int64 {
	bits := math.Float32bits(f)
	if bits&0x80000000 != 0 {
		return -int64(bits &^ 0x80000000)
	}
	return int64(bits)
}

// VerificationResult summarizes the comparison of two float32 arrays.
type VerificationResult struct {
	MaxAbsError float64
	MaxULPError int64
	NumErrors   int
	TotalItems  int
	FirstError  int // Index of first error, -1 if none
}

// VerifyFloat32 compares actual against expected element by element.
func VerifyFloat32(expected, actual []float32, tol Tolerance) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
	}
	if len(expected) != len(actual) {
		result.NumErrors = max(len(expected), len(actual))
		result.FirstError = min(len(expected), len(actual))
		return result
	}

	for i := range expected {
		want, got := float64(expected[i]), float64(actual[i])
		if NearEqual(want, got, tol) {
			continue
		}
		result.NumErrors++
		if result.FirstError == -1 {
			result.FirstError = i
		}
		result.MaxAbsError = math.Max(result.MaxAbsError, math.Abs(want-got))
		result.MaxULPError = max(result.MaxULPError, Float32ULPDiff(expected[i], actual[i]))
	}
	return result
}

// String formats the verification result for display
func (r VerificationResult) String() string {
	if r.NumErrors == 0 {
		return "PASS: All values match within tolerance"
	}
	return fmt.Sprintf("FAIL: %d/%d values differ, first at index %d "+
		"(max absolute error %e, max ULP difference %d)",
		r.NumErrors, r.TotalItems, r.FirstError, r.MaxAbsError, r.MaxULPError)
}
