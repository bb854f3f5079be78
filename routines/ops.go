package routines

import (
	"math"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/chewxy/math32"
)

// Number lists the element types the numeric routines accept. The 16-bit
// float types are deliberately absent: their arithmetic is not Go's, see
// Sum16 and Mean16.
type Number interface {
	int8 | int16 | int32 | int64 | int |
		uint8 | uint16 | uint32 | uint64 | uint |
		float32 | float64
}

// Float lists the floating point element types.
type Float interface {
	float32 | float64
}

// Half lists the 16-bit floating point element types.
type Half interface {
	guda.Float16 | guda.BFloat16
	ToFloat32() float32
}

func isNaN[T Number](x T) bool { return x != x }

// lowest returns the smallest value of T, -Inf for floats.
func lowest[T Number]() T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(math32.Inf(-1)).(T)
	case float64:
		return any(math.Inf(-1)).(T)
	case int8:
		return any(int8(math.MinInt8)).(T)
	case int16:
		return any(int16(math.MinInt16)).(T)
	case int32:
		return any(int32(math.MinInt32)).(T)
	case int64:
		return any(int64(math.MinInt64)).(T)
	case int:
		return any(int(math.MinInt)).(T)
	}
	return zero // unsigned
}

// highest returns the largest value of T, +Inf for floats.
func highest[T Number]() T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(math32.Inf(1)).(T)
	case float64:
		return any(math.Inf(1)).(T)
	}
	return maxMagnitude[T]()
}

// maxMagnitude returns the largest value of an integer type T.
func maxMagnitude[T Number]() T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(int8(math.MaxInt8)).(T)
	case int16:
		return any(int16(math.MaxInt16)).(T)
	case int32:
		return any(int32(math.MaxInt32)).(T)
	case int64:
		return any(int64(math.MaxInt64)).(T)
	case int:
		return any(int(math.MaxInt)).(T)
	case uint8:
		return any(uint8(math.MaxUint8)).(T)
	case uint16:
		return any(uint16(math.MaxUint16)).(T)
	case uint32:
		return any(uint32(math.MaxUint32)).(T)
	case uint64:
		return any(uint64(math.MaxUint64)).(T)
	case uint:
		return any(uint(math.MaxUint)).(T)
	}
	return zero
}

func halfFromFloat32[T Half](f float32) T {
	var zero T
	switch any(zero).(type) {
	case guda.Float16:
		return any(guda.FromFloat32(f)).(T)
	case guda.BFloat16:
		return any(guda.ToBFloat16(f)).(T)
	}
	panic("unreachable")
}

// SumOp adds the elements in their own type.
type SumOp[T Number] struct{}

func (SumOp[T]) Identity() T { return 0 }
func (SumOp[T]) MapIn(x T, _ int64) T { return x }
func (SumOp[T]) Reduce(next T, accum *T) { *accum += next }
func (SumOp[T]) MapOut(accum T) T { return accum }

// ProdOp multiplies the elements in their own type.
type ProdOp[T Number] struct{}

func (ProdOp[T]) Identity() T { return 1 }
func (ProdOp[T]) MapIn(x T, _ int64) T { return x }
func (ProdOp[T]) Reduce(next T, accum *T) { *accum *= next }
func (ProdOp[T]) MapOut(accum T) T { return accum }

// MaxOp keeps the largest element. NaN wins over every number.
type MaxOp[T Number] struct{}

func (MaxOp[T]) Identity() T { return lowest[T]() }
func (MaxOp[T]) MapIn(x T, _ int64) T { return x }
func (MaxOp[T]) Reduce(next T, accum *T) {
	if next > *accum || isNaN(next) {
		*accum = next
	}
}
func (MaxOp[T]) MapOut(accum T) T { return accum }

// MinOp keeps the smallest element. NaN wins over every number.
type MinOp[T Number] struct{}

func (MinOp[T]) Identity() T { return highest[T]() }
func (MinOp[T]) MapIn(x T, _ int64) T { return x }
func (MinOp[T]) Reduce(next T, accum *T) {
	if next < *accum || isNaN(next) {
		*accum = next
	}
}
func (MinOp[T]) MapOut(accum T) T { return accum }

// ArgAcc is the accumulator of ArgMaxOp and ArgMinOp: the best value seen
// and its position in the reduced axes, -1 while empty.
type ArgAcc[T Number] struct {
	Value T
	Index int64
}

// ArgMaxOp finds the position of the largest element. Ties go to the lowest
// position and NaN counts as the largest value, so the first NaN wins.
type ArgMaxOp[T Number] struct{}

func (ArgMaxOp[T]) Identity() ArgAcc[T] { return ArgAcc[T]{Index: -1} }
func (ArgMaxOp[T]) MapIn(x T, index int64) ArgAcc[T] {
	return ArgAcc[T]{Value: x, Index: index}
}
func (ArgMaxOp[T]) Reduce(next ArgAcc[T], accum *ArgAcc[T]) {
	if prefer(next, *accum, func(a, b T) bool { return a > b }) {
		*accum = next
	}
}
func (ArgMaxOp[T]) MapOut(accum ArgAcc[T]) int64 { return accum.Index }

// ArgMinOp finds the position of the smallest element, with the same tie and
// NaN rules as ArgMaxOp.
type ArgMinOp[T Number] struct{}

func (ArgMinOp[T]) Identity() ArgAcc[T] { return ArgAcc[T]{Index: -1} }
func (ArgMinOp[T]) MapIn(x T, index int64) ArgAcc[T] {
	return ArgAcc[T]{Value: x, Index: index}
}
func (ArgMinOp[T]) Reduce(next ArgAcc[T], accum *ArgAcc[T]) {
	if prefer(next, *accum, func(a, b T) bool { return a < b }) {
		*accum = next
	}
}
func (ArgMinOp[T]) MapOut(accum ArgAcc[T]) int64 { return accum.Index }

// prefer reports whether a should replace b. The decision only depends on
// the pair, never on which one is the accumulator.
func prefer[T Number](a, b ArgAcc[T], better func(a, b T) bool) bool {
	switch {
	case a.Index < 0:
		return false
	case b.Index < 0:
		return true
	}
	aNaN, bNaN := isNaN(a.Value), isNaN(b.Value)
	switch {
	case aNaN && bNaN:
		return a.Index < b.Index
	case aNaN != bNaN:
		return aNaN
	case better(a.Value, b.Value):
		return true
	case better(b.Value, a.Value):
		return false
	}
	return a.Index < b.Index
}

// MeanOp averages count elements in float64.
type MeanOp[T Number] struct {
	count int64
}

func (MeanOp[T]) Identity() float64 { return 0 }
func (MeanOp[T]) MapIn(x T, _ int64) float64 { return float64(x) }
func (MeanOp[T]) Reduce(next float64, accum *float64) { *accum += next }
func (op MeanOp[T]) MapOut(accum float64) T { return T(accum / float64(op.count)) }

// Moments is the accumulator of VarOp: element count, mean and the sum of
// squared deviations from the mean.
type Moments struct {
	N    float64
	Mean float64
	M2   float64
}

// merge combines two partial moments (Chan, Golub and LeVeque).
func (m Moments) merge(o Moments) Moments {
	switch {
	case m.N == 0:
		return o
	case o.N == 0:
		return m
	}
	n := m.N + o.N
	delta := o.Mean - m.Mean
	return Moments{
		N:    n,
		Mean: m.Mean + delta*o.N/n,
		M2:   m.M2 + o.M2 + delta*delta*m.N*o.N/n,
	}
}

// VarOp computes the variance with ddof delta degrees of freedom in a
// single pass.
type VarOp[T Float] struct {
	ddof int
}

func (VarOp[T]) Identity() Moments { return Moments{} }
func (VarOp[T]) MapIn(x T, _ int64) Moments {
	return Moments{N: 1, Mean: float64(x)}
}
func (VarOp[T]) Reduce(next Moments, accum *Moments) { *accum = accum.merge(next) }
func (op VarOp[T]) MapOut(accum Moments) T {
	return T(accum.M2 / (accum.N - float64(op.ddof)))
}

// NormOp computes the Euclidean norm, accumulating squares in float64.
type NormOp[T Float] struct{}

func (NormOp[T]) Identity() float64 { return 0 }
func (NormOp[T]) MapIn(x T, _ int64) float64 {
	f := float64(x)
	return f * f
}
func (NormOp[T]) Reduce(next float64, accum *float64) { *accum += next }
func (NormOp[T]) MapOut(accum float64) T { return T(math.Sqrt(accum)) }

// CountNonzeroOp counts the elements different from zero. NaN counts.
type CountNonzeroOp[T Number] struct{}

func (CountNonzeroOp[T]) Identity() int64 { return 0 }
func (CountNonzeroOp[T]) MapIn(x T, _ int64) int64 {
	if x != 0 {
		return 1
	}
	return 0
}
func (CountNonzeroOp[T]) Reduce(next int64, accum *int64) { *accum += next }
func (CountNonzeroOp[T]) MapOut(accum int64) int64 { return accum }

// AnyOp reports whether some element is true.
type AnyOp struct{}

func (AnyOp) Identity() bool { return false }
func (AnyOp) MapIn(x bool, _ int64) bool { return x }
func (AnyOp) Reduce(next bool, accum *bool) { *accum = *accum || next }
func (AnyOp) MapOut(accum bool) bool { return accum }

// AllOp reports whether every element is true.
type AllOp struct{}

func (AllOp) Identity() bool { return true }
func (AllOp) MapIn(x bool, _ int64) bool { return x }
func (AllOp) Reduce(next bool, accum *bool) { *accum = *accum && next }
func (AllOp) MapOut(accum bool) bool { return accum }

// Sum16Op adds 16-bit floats in a float32 accumulator and rounds once.
type Sum16Op[T Half] struct{}

func (Sum16Op[T]) Identity() float32 { return 0 }
func (Sum16Op[T]) MapIn(x T, _ int64) float32 { return x.ToFloat32() }
func (Sum16Op[T]) Reduce(next float32, accum *float32) { *accum += next }
func (Sum16Op[T]) MapOut(accum float32) T { return halfFromFloat32[T](accum) }

// Mean16Op averages 16-bit floats in a float32 accumulator.
type Mean16Op[T Half] struct {
	count int64
}

func (Mean16Op[T]) Identity() float32 { return 0 }
func (Mean16Op[T]) MapIn(x T, _ int64) float32 { return x.ToFloat32() }
func (Mean16Op[T]) Reduce(next float32, accum *float32) { *accum += next }
func (op Mean16Op[T]) MapOut(accum float32) T {
	if op.count == 0 {
		return halfFromFloat32[T](math32.NaN())
	}
	return halfFromFloat32[T](accum / float32(op.count))
}

// NewMeanOp returns a MeanOp averaging over count elements.
func NewMeanOp[T Number](count int64) MeanOp[T] { return MeanOp[T]{count: count} }

// NewVarOp returns a VarOp dividing by N-ddof.
func NewVarOp[T Float](ddof int) VarOp[T] { return VarOp[T]{ddof: ddof} }

// NewMean16Op returns a Mean16Op averaging over count elements.
func NewMean16Op[T Half](count int64) Mean16Op[T] { return Mean16Op[T]{count: count} }
