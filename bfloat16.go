package guda

import (
	"math"
)

// BFloat16 represents a 16-bit brain floating point number
// Format: 1 sign bit, 8 exponent bits, 7 mantissa bits
type BFloat16 uint16

// ToBFloat16 converts float32 to BFloat16, rounding to nearest even.
// NaNs stay NaN even when the surviving mantissa bits are zero.
func ToBFloat16(f float32) BFloat16 {
	bits := math.Float32bits(f)
	if f != f {
		return BFloat16(bits>>16 | 0x0040)
	}

	// Round to nearest even on the 16 discarded bits
	rounding := (bits >> 16) & 1
	bits += 0x7FFF + rounding

	return BFloat16(bits >> 16)
}

// ToFloat32 converts BFloat16 to float32
func (b BFloat16) ToFloat32() float32 {
	// Just shift back to float32 position
	return math.Float32frombits(uint32(b) << 16)
}

// Bits returns the raw encoding.
func (b BFloat16) Bits() uint16 {
	return uint16(b)
}
