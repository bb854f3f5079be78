package guda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// checkRoundTripNear checks that d survives a trip through Float16 within
// tol, absolute or relative. d must not be NaN.
func checkRoundTripNear(t *testing.T, d, tol float64) {
	t.Helper()
	h := FromFloat64(d)
	f := h.ToFloat32()
	back := h.ToFloat64()
	require.False(t, h.IsNaN(), "%g", d)
	require.False(t, math.IsNaN(back))
	require.Equal(t, float64(f), back)
	if math.IsInf(d, 0) {
		require.Equal(t, d, back)
		return
	}
	tol = math.Max(tol, tol*math.Abs(d))
	require.InDelta(t, d, back, tol, "%g", d)
	require.InDelta(t, d, float64(f), tol, "%g", d)
}

// checkExactRoundTrip checks that a non-NaN Float16 converts to float32 and
// float64 and back without change.
func checkExactRoundTrip(t *testing.T, h Float16) {
	t.Helper()
	require.False(t, h.IsNaN())
	f, d := h.ToFloat32(), h.ToFloat64()
	require.Equal(t, float64(f), d)
	require.Equal(t, h.Bits(), FromFloat32(f).Bits(), "bits %#04x", h.Bits())
	require.Equal(t, h.Bits(), FromFloat64(d).Bits(), "bits %#04x", h.Bits())
}

// sameFloat16 reports whether a and b have the same bits or are both NaN.
func sameFloat16(a, b Float16) bool {
	return a == b || (a.IsNaN() && b.IsNaN())
}

// float16Samples returns every value whose low byte is 0x00 or 0x55: all
// special values plus a spread of normals, denormals and NaNs.
func float16Samples() []Float16 {
	var out []Float16
	for bits := uint32(0); bits <= 0xffff; bits += 0x0100 {
		out = append(out, Float16FromBits(uint16(bits)), Float16FromBits(uint16(bits|0x0055)))
	}
	return out
}

func TestFloat16Zero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	require.Equal(t, uint16(0x0000), FromFloat32(0).Bits())
	require.Equal(t, uint16(0x8000), FromFloat32(float32(negZero)).Bits())
	require.Equal(t, uint16(0x0000), FromFloat64(0).Bits())
	require.Equal(t, uint16(0x8000), FromFloat64(negZero).Bits())

	require.Equal(t, math.Inf(1), 1/Float16FromBits(0x0000).ToFloat64())
	require.Equal(t, math.Inf(-1), 1/Float16FromBits(0x8000).ToFloat64())
	require.True(t, math.Signbit(float64(Float16FromBits(0x8000).ToFloat32())))
	require.False(t, math.Signbit(float64(Float16FromBits(0x0000).ToFloat32())))
}

func TestFloat16Normalized(t *testing.T) {
	for x := 1e-3; x < 1e3; x *= 1.01 {
		require.NotZero(t, FromFloat64(x).Bits()&float16ExponentMask, "%g", x)
		checkRoundTripNear(t, x, 1e-3)
		checkRoundTripNear(t, -x, 1e-3)
	}
	for bits := uint16(0x0400); bits < 0x7c00; bits++ {
		checkExactRoundTrip(t, Float16FromBits(bits))
		checkExactRoundTrip(t, Float16FromBits(bits|0x8000))
	}
}

func TestFloat16Denormalized(t *testing.T) {
	for x := 1e-7; x < 1e-5; x += 1e-7 {
		h := FromFloat64(x)
		require.Zero(t, h.Bits()&float16ExponentMask, "%g", x)
		require.NotZero(t, h.Bits()&float16MantissaMask, "%g", x)
		checkRoundTripNear(t, x, 1e-7)
		checkRoundTripNear(t, -x, 1e-7)
	}
	for bits := uint16(0x0000); bits < 0x0400; bits++ {
		checkExactRoundTrip(t, Float16FromBits(bits))
		checkExactRoundTrip(t, Float16FromBits(bits|0x8000))
	}
}

func TestFloat16Inf(t *testing.T) {
	require.Equal(t, uint16(0x7c00), FromFloat32(float32(math.Inf(1))).Bits())
	require.Equal(t, uint16(0xfc00), FromFloat32(float32(math.Inf(-1))).Bits())
	require.Equal(t, uint16(0x7c00), FromFloat64(math.Inf(1)).Bits())
	require.Equal(t, uint16(0xfc00), FromFloat64(math.Inf(-1)).Bits())
	require.Equal(t, math.Inf(1), Float16FromBits(0x7c00).ToFloat64())
	require.Equal(t, math.Inf(-1), Float16FromBits(0xfc00).ToFloat64())
	require.True(t, Float16FromBits(0x7c00).IsInf(1))
	require.True(t, Float16FromBits(0xfc00).IsInf(-1))
	require.False(t, Float16FromBits(0xfc00).IsInf(1))
	require.True(t, Float16FromBits(0xfc00).IsInf(0))

	// Overflow rounds to infinity.
	require.Equal(t, uint16(0x7c00), FromFloat64(1e6).Bits())
	require.Equal(t, uint16(0x7bff), FromFloat64(65504).Bits())
}

func TestFloat16NaN(t *testing.T) {
	for bits := uint16(0x7c01); bits < 0x8000; bits++ {
		for _, h := range []Float16{Float16FromBits(bits), Float16FromBits(bits | 0x8000)} {
			require.True(t, h.IsNaN())
			require.True(t, math.IsNaN(float64(h.ToFloat32())), "bits %#04x", h.Bits())
			require.True(t, math.IsNaN(h.ToFloat64()), "bits %#04x", h.Bits())
		}
	}
	require.True(t, FromFloat32(float32(math.NaN())).IsNaN())
	require.True(t, FromFloat64(math.NaN()).IsNaN())
}

func TestFloat16Neg(t *testing.T) {
	for bits := uint32(0); bits <= 0xffff; bits++ {
		x := Float16FromBits(uint16(bits))
		want := FromFloat64(-x.ToFloat64())
		require.True(t, sameFloat16(want, x.Neg()), "bits %#04x", bits)
	}
}

func TestFloat16Arithmetic(t *testing.T) {
	samples := float16Samples()
	for _, x := range samples {
		for _, y := range samples {
			xd, yd := x.ToFloat64(), y.ToFloat64()

			sum := FromFloat64(xd + yd)
			require.True(t, sameFloat16(sum, x.Add(y)))
			require.True(t, sameFloat16(sum, y.Add(x)))
			require.True(t, sameFloat16(FromFloat64(xd-yd), x.Sub(y)))
			prod := FromFloat64(xd * yd)
			require.True(t, sameFloat16(prod, x.Mul(y)))
			require.True(t, sameFloat16(prod, y.Mul(x)))
			require.True(t, sameFloat16(FromFloat64(xd/yd), x.Div(y)))
		}
	}
}

func TestFloat16Assign(t *testing.T) {
	samples := float16Samples()
	for _, x := range samples {
		for _, y0 := range samples {
			xd, yd := x.ToFloat64(), y0.ToFloat64()
			tests := []struct {
				name   string
				assign func(y *Float16) Float16
				want   Float16
			}{
				{"add", func(y *Float16) Float16 { return y.AddAssign(x) }, FromFloat64(yd + xd)},
				{"sub", func(y *Float16) Float16 { return y.SubAssign(x) }, FromFloat64(yd - xd)},
				{"mul", func(y *Float16) Float16 { return y.MulAssign(x) }, FromFloat64(yd * xd)},
				{"div", func(y *Float16) Float16 { return y.DivAssign(x) }, FromFloat64(yd / xd)},
			}
			for _, tt := range tests {
				y := y0
				z := tt.assign(&y)
				if !sameFloat16(tt.want, y) || !sameFloat16(tt.want, z) {
					t.Fatalf("%s: %v op %v = %v (returned %v), want %v", tt.name, y0, x, y, z, tt.want)
				}
			}
		}
	}
}

func TestFloat16KnownValues(t *testing.T) {
	one := FromFloat32(1)
	two := FromFloat32(2)
	require.Equal(t, uint16(0x3c00), one.Bits())
	require.Equal(t, uint16(0x4200), one.Add(two).Bits())
	require.Equal(t, "1.5", FromFloat32(1.5).String())

	maxHalf := Float16FromBits(0x7bff)
	require.True(t, maxHalf.Add(maxHalf).IsInf(1))
	require.True(t, one.Div(FromFloat32(0)).IsInf(1))
	require.True(t, FromFloat32(0).Div(FromFloat32(0)).IsNaN())
	require.True(t, Float16FromBits(0x7e00).Add(one).IsNaN())

	// Half of the smallest denormal is a tie and rounds to even, zero.
	tiny := Float16FromBits(0x0001)
	require.Equal(t, uint16(0x0000), tiny.Mul(FromFloat32(0.5)).Bits())
	// 1 + 2^-11 is a tie between 1 and the next value: even wins.
	require.Equal(t, uint16(0x3c00), FromFloat64(1+math.Ldexp(1, -11)).Bits())
	// Just above the tie rounds up, even when float32 would round the
	// input down onto the tie.
	require.Equal(t, uint16(0x3c01), FromFloat64(1+math.Ldexp(1, -11)+math.Ldexp(1, -40)).Bits())
}

func TestBFloat16(t *testing.T) {
	require.Equal(t, uint16(0x3f80), ToBFloat16(1).Bits())
	require.Equal(t, float32(1), ToBFloat16(1).ToFloat32())
	// Ties round to even.
	require.Equal(t, uint16(0x3f80), ToBFloat16(1+1.0/256).Bits())
	require.Equal(t, uint16(0x3f82), ToBFloat16(1+3.0/256).Bits())
	require.Equal(t, uint16(0x3f81), ToBFloat16(1+1.0/256+1.0/65536).Bits())

	require.Equal(t, uint16(0x7f80), ToBFloat16(float32(math.Inf(1))).Bits())
	require.Equal(t, uint16(0x7f80), ToBFloat16(math.MaxFloat32).Bits())
	nan := ToBFloat16(math.Float32frombits(0x7f800001))
	require.True(t, math.IsNaN(float64(nan.ToFloat32())))
}
