package guda

import (
	"math"
	"strconv"

	"github.com/x448/float16"
)

// Float16 represents an IEEE 754 binary16 number: 1 sign bit, 5 exponent
// bits and 10 fraction bits. It is a plain value type so it can live in
// device memory and in reduction accumulators.
//
// Arithmetic is evaluated exactly in float64 and rounded once to the
// nearest Float16, ties to even. NaN operands propagate.
type Float16 uint16

// Float16 bit layout
const (
	float16SignMask     = 0x8000
	float16ExponentMask = 0x7C00
	float16MantissaMask = 0x03FF
)

// Float16FromBits reinterprets raw binary16 bits.
func Float16FromBits(bits uint16) Float16 {
	return Float16(bits)
}

// FromFloat32 converts float32 to Float16, rounding to nearest even.
// Values below the normal range become denormals, values beyond the
// finite range become signed infinities.
func FromFloat32(f float32) Float16 {
	return Float16(float16.Fromfloat32(f).Bits())
}

// FromFloat64 converts float64 to Float16 with a single rounding.
//
// The value is first narrowed to float32 using round-to-odd, which keeps
// enough information for the final float32 to Float16 rounding to give
// the same result as rounding the float64 directly.
func FromFloat64(d float64) Float16 {
	f := float32(d)
	if !math.IsNaN(d) && !math.IsInf(float64(f), 0) && float64(f) != d {
		bits := math.Float32bits(f)
		if bits&1 == 0 {
			if math.Abs(float64(f)) > math.Abs(d) {
				bits--
			} else {
				bits++
			}
		}
		f = math.Float32frombits(bits)
	}
	return FromFloat32(f)
}

// Bits returns the raw binary16 encoding.
func (f Float16) Bits() uint16 {
	return uint16(f)
}

// ToFloat32 converts Float16 to float32. The conversion is exact.
func (f Float16) ToFloat32() float32 {
	return float16.Frombits(uint16(f)).Float32()
}

// ToFloat64 converts Float16 to float64. The conversion is exact.
func (f Float16) ToFloat64() float64 {
	return float64(f.ToFloat32())
}

// IsNaN reports whether f is a NaN.
func (f Float16) IsNaN() bool {
	return f&float16ExponentMask == float16ExponentMask && f&float16MantissaMask != 0
}

// IsInf reports whether f is an infinity, according to sign.
// If sign > 0, IsInf reports whether f is positive infinity.
// If sign < 0, IsInf reports whether f is negative infinity.
// If sign == 0, IsInf reports whether f is either infinity.
func (f Float16) IsInf(sign int) bool {
	if f&^float16SignMask != float16ExponentMask {
		return false
	}
	neg := f&float16SignMask != 0
	return sign == 0 || (sign > 0 && !neg) || (sign < 0 && neg)
}

// Neg returns -f. Only the sign bit changes, so NaN payloads survive.
func (f Float16) Neg() Float16 {
	return f ^ float16SignMask
}

// Add returns f + x.
func (f Float16) Add(x Float16) Float16 {
	return FromFloat64(f.ToFloat64() + x.ToFloat64())
}

// Sub returns f - x.
func (f Float16) Sub(x Float16) Float16 {
	return FromFloat64(f.ToFloat64() - x.ToFloat64())
}

// Mul returns f * x.
func (f Float16) Mul(x Float16) Float16 {
	return FromFloat64(f.ToFloat64() * x.ToFloat64())
}

// Div returns f / x.
func (f Float16) Div(x Float16) Float16 {
	return FromFloat64(f.ToFloat64() / x.ToFloat64())
}

// AddAssign sets *f = *f + x and returns the new value.
func (f *Float16) AddAssign(x Float16) Float16 {
	*f = f.Add(x)
	return *f
}

// SubAssign sets *f = *f - x and returns the new value.
func (f *Float16) SubAssign(x Float16) Float16 {
	*f = f.Sub(x)
	return *f
}

// MulAssign sets *f = *f * x and returns the new value.
func (f *Float16) MulAssign(x Float16) Float16 {
	*f = f.Mul(x)
	return *f
}

// DivAssign sets *f = *f / x and returns the new value.
func (f *Float16) DivAssign(x Float16) Float16 {
	*f = f.Div(x)
	return *f
}

// String formats the value like a float32.
func (f Float16) String() string {
	return strconv.FormatFloat(float64(f.ToFloat32()), 'g', -1, 32)
}
