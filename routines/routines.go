// Package routines implements the usual array reductions on top of the
// reduce engine.
//
// Every routine takes the Reducer to launch on (nil means reduce.Default()),
// the input view, the axes to reduce and the output view. Axes may be
// negative and count from the end; an empty list reduces nothing. The output
// has the input shape without the reduced axes, or with them kept at size 1.
//
// Like the engine, routines are asynchronous: synchronize the Reducer before
// reading the output.
package routines

import (
	guda "github.com/LynnColeArt/gudareduce"
	"github.com/LynnColeArt/gudareduce/array"
	"github.com/LynnColeArt/gudareduce/reduce"
	"github.com/pkg/errors"
)

func prepare[T any](r *reduce.Reducer, in array.View[T], axes []int) (*reduce.Reducer, []int, error) {
	if r == nil {
		r = reduce.Default()
	}
	norm, err := array.NormalizeAxes(axes, in.Ndim())
	if err != nil {
		return nil, nil, err
	}
	return r, norm, nil
}

// reducedCount returns the number of elements folded into each output.
func reducedCount(shape []int64, axes []int) int64 {
	n := int64(1)
	for _, axis := range axes {
		n *= shape[axis]
	}
	return n
}

// Sum adds the elements over axes.
func Sum[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Sum")
	}
	return errors.WithMessage(reduce.Run[T](r, in, axes, out, SumOp[T]{}), "Sum")
}

// Prod multiplies the elements over axes.
func Prod[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Prod")
	}
	return errors.WithMessage(reduce.Run[T](r, in, axes, out, ProdOp[T]{}), "Prod")
}

// Max returns the largest element over axes. An empty reduction gives the
// lowest value of T.
func Max[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Max")
	}
	return errors.WithMessage(reduce.Run[T](r, in, axes, out, MaxOp[T]{}), "Max")
}

// Min returns the smallest element over axes. An empty reduction gives the
// highest value of T.
func Min[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Min")
	}
	return errors.WithMessage(reduce.Run[T](r, in, axes, out, MinOp[T]{}), "Min")
}

// checkNonEmpty rejects arg reductions of empty domains with outputs to
// fill.
func checkNonEmpty[T, Out any](op string, in array.View[T], axes []int, out array.View[Out]) error {
	if out.TotalSize() > 0 && reducedCount(in.Shape(), axes) == 0 {
		return guda.NewInvalidArgErrorf(op, "empty reduction of shape %v over %v", in.Shape(), axes)
	}
	return nil
}

// ArgMax returns the position of the largest element within the reduced
// axes, flattened in row-major order.
func ArgMax[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[int64]) error {
	r, axes, err := prepare(r, in, axes)
	if err == nil {
		err = checkNonEmpty("ArgMax", in, axes, out)
	}
	if err != nil {
		return errors.WithMessage(err, "ArgMax")
	}
	return errors.WithMessage(reduce.Run[ArgAcc[T]](r, in, axes, out, ArgMaxOp[T]{}), "ArgMax")
}

// ArgMin returns the position of the smallest element within the reduced
// axes, flattened in row-major order.
func ArgMin[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[int64]) error {
	r, axes, err := prepare(r, in, axes)
	if err == nil {
		err = checkNonEmpty("ArgMin", in, axes, out)
	}
	if err != nil {
		return errors.WithMessage(err, "ArgMin")
	}
	return errors.WithMessage(reduce.Run[ArgAcc[T]](r, in, axes, out, ArgMinOp[T]{}), "ArgMin")
}

// Mean averages the elements over axes. An empty reduction gives NaN.
func Mean[T Float](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Mean")
	}
	op := NewMeanOp[T](reducedCount(in.Shape(), axes))
	return errors.WithMessage(reduce.Run[float64](r, in, axes, out, op), "Mean")
}

// Var computes the variance over axes, dividing by N-ddof.
func Var[T Float](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T], ddof int) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Var")
	}
	if ddof < 0 {
		return guda.NewInvalidArgErrorf("Var", "negative ddof %d", ddof)
	}
	return errors.WithMessage(reduce.Run[Moments](r, in, axes, out, NewVarOp[T](ddof)), "Var")
}

// Norm computes the Euclidean norm over axes.
func Norm[T Float](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Norm")
	}
	return errors.WithMessage(reduce.Run[float64](r, in, axes, out, NormOp[T]{}), "Norm")
}

// CountNonzero counts the elements different from zero over axes.
func CountNonzero[T Number](r *reduce.Reducer, in array.View[T], axes []int, out array.View[int64]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "CountNonzero")
	}
	return errors.WithMessage(reduce.Run[int64](r, in, axes, out, CountNonzeroOp[T]{}), "CountNonzero")
}

// Any reports whether some element over axes is true.
func Any(r *reduce.Reducer, in array.View[bool], axes []int, out array.View[bool]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Any")
	}
	return errors.WithMessage(reduce.Run[bool](r, in, axes, out, AnyOp{}), "Any")
}

// All reports whether every element over axes is true.
func All(r *reduce.Reducer, in array.View[bool], axes []int, out array.View[bool]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "All")
	}
	return errors.WithMessage(reduce.Run[bool](r, in, axes, out, AllOp{}), "All")
}

// Sum16 adds 16-bit floats over axes with a float32 accumulator.
func Sum16[T Half](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Sum16")
	}
	return errors.WithMessage(reduce.Run[float32](r, in, axes, out, Sum16Op[T]{}), "Sum16")
}

// Mean16 averages 16-bit floats over axes with a float32 accumulator.
func Mean16[T Half](r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
	r, axes, err := prepare(r, in, axes)
	if err != nil {
		return errors.WithMessage(err, "Mean16")
	}
	op := NewMean16Op[T](reducedCount(in.Shape(), axes))
	return errors.WithMessage(reduce.Run[float32](r, in, axes, out, op), "Mean16")
}
