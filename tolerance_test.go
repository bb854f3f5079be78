package guda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearEqual(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name     string
		a, b     float64
		tol      Tolerance
		expected bool
	}{
		{"Exact_Equal", 1, 1, DefaultTolerance(), true},
		{"Within_AbsTol", 1e-8, 2e-8, DefaultTolerance(), true},
		{"Outside_AbsTol", 1e-6, 2e-6, DefaultTolerance(), false},
		{"Within_RelTol", 1000, 1000.005, DefaultTolerance(), true},
		{"Outside_RelTol", 1000, 1000.1, DefaultTolerance(), false},
		{"Within_ULP", 1e-3, float64(math.Nextafter32(1e-3, 1)), Tolerance{ULP: 1}, true},
		{"Signed_Zeros", 0, math.Copysign(0, -1), Tolerance{}, true},
		{"Both_NaN", nan, nan, DefaultTolerance(), true},
		{"One_NaN", nan, 1, DefaultTolerance(), false},
		{"Same_Inf", inf, inf, DefaultTolerance(), true},
		{"Opposite_Inf", inf, -inf, DefaultTolerance(), false},
		{"Inf_And_Max", inf, math.MaxFloat32, DefaultTolerance(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NearEqual(tt.a, tt.b, tt.tol))
			assert.Equal(t, tt.expected, NearEqual(tt.b, tt.a, tt.tol))
		})
	}
}

func TestFloat32ULPDiff(t *testing.T) {
	assert.Equal(t, int64(0), Float32ULPDiff(1, 1))
	assert.Equal(t, int64(1), Float32ULPDiff(1, math.Nextafter32(1, 2)))
	assert.Equal(t, int64(0), Float32ULPDiff(0, float32(math.Copysign(0, -1))))
	// Across zero: one step to the smallest denormal on each side.
	tiny := math.Float32frombits(1)
	assert.Equal(t, int64(2), Float32ULPDiff(-tiny, tiny))
	assert.Equal(t, int64(1<<23), Float32ULPDiff(1, 2))
}

func TestReductionTolerance(t *testing.T) {
	assert.Equal(t, 1e-5, ReductionTolerance(10).Rel)
	assert.InDelta(t, 1e6*0x1p-24, ReductionTolerance(1e6).Rel, 1e-12)
}

func TestVerifyFloat32(t *testing.T) {
	expected := []float32{1, 2, 3, 4}
	res := VerifyFloat32(expected, []float32{1, 2, 3, 4}, DefaultTolerance())
	require.Zero(t, res.NumErrors)
	require.Equal(t, -1, res.FirstError)
	require.Contains(t, res.String(), "PASS")

	res = VerifyFloat32(expected, []float32{1, 2.5, 3, 5}, DefaultTolerance())
	require.Equal(t, 2, res.NumErrors)
	require.Equal(t, 1, res.FirstError)
	require.Equal(t, 1.0, res.MaxAbsError)
	require.Contains(t, res.String(), "2/4 values differ")

	res = VerifyFloat32(expected, expected[:3], DefaultTolerance())
	require.Equal(t, 4, res.NumErrors)
	require.Equal(t, 3, res.FirstError)
}
