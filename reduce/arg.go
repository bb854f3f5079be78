package reduce

import (
	"fmt"
	"slices"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/LynnColeArt/gudareduce/array"
	"github.com/LynnColeArt/gudareduce/indexer"
	"github.com/pkg/errors"
)

// Arg is the validated input of one reduction: the two views and the
// iteration domains derived from them.
//
// The kept domain spans the output; its operand 0 carries the input strides
// of the kept axes and operand 1 the output strides. The reduce domain spans
// the reduced axes in ascending order with the input strides as operand 0.
// Both domains are squashed, which keeps every row-major position.
type Arg[In, Out any] struct {
	in  array.View[In]
	out array.View[Out]

	keptIx   *indexer.Indexer
	reduceIx *indexer.Indexer
}

// NewArg partitions the axes of in into the reduced axes and the kept ones
// and checks that out has the matching shape: either the input shape with
// the reduced axes removed or, keepdims style, with the reduced axes set to
// size 1. Axes must be in [0, in.Ndim()) and distinct, in any order.
func NewArg[In, Out any](in array.View[In], axes []int, out array.View[Out]) (*Arg[In, Out], error) {
	ndim := in.Ndim()
	reduced := make([]bool, ndim)
	for _, axis := range axes {
		if axis < 0 || axis >= ndim {
			return nil, errors.WithMessagef(guda.ErrInvalidAxis, "reduce: axis %d out of range for rank %d", axis, ndim)
		}
		if reduced[axis] {
			return nil, errors.WithMessagef(guda.ErrInvalidAxis, "reduce: axis %d repeated in %v", axis, axes)
		}
		reduced[axis] = true
	}

	inShape, inStrides := in.Shape(), in.Strides()
	outShape, outStrides := out.Shape(), out.Strides()
	keepdims := len(outShape) == ndim && len(axes) > 0
	if !keepdims && len(outShape) != ndim-len(axes) {
		return nil, shapeMismatch(inShape, axes, outShape)
	}

	var (
		keptShape, keptIn, keptOut []int64
		reduceShape, reduceIn      []int64
	)
	outAxis := 0
	for axis := 0; axis < ndim; axis++ {
		if reduced[axis] {
			reduceShape = append(reduceShape, inShape[axis])
			reduceIn = append(reduceIn, inStrides[axis])
			if keepdims {
				if outShape[axis] != 1 {
					return nil, shapeMismatch(inShape, axes, outShape)
				}
				outAxis++
			}
			continue
		}
		if outShape[outAxis] != inShape[axis] {
			return nil, shapeMismatch(inShape, axes, outShape)
		}
		keptShape = append(keptShape, inShape[axis])
		keptIn = append(keptIn, inStrides[axis])
		keptOut = append(keptOut, outStrides[outAxis])
		outAxis++
	}

	keptShape, keptStrides := indexer.Squash(keptShape, keptIn, keptOut)
	reduceShape, reduceStrides := indexer.Squash(reduceShape, reduceIn)
	return &Arg[In, Out]{
		in:       in,
		out:      out,
		keptIx:   indexer.New(keptShape, keptStrides...),
		reduceIx: indexer.New(reduceShape, reduceStrides...),
	}, nil
}

func shapeMismatch(inShape []int64, axes []int, outShape []int64) error {
	sorted := slices.Clone(axes)
	slices.Sort(sorted)
	return errors.WithMessagef(guda.ErrInvalidShape,
		"reduce: output shape %v does not match input %v reduced over %v", outShape, inShape, sorted)
}

// In returns the input view.
func (a *Arg[In, Out]) In() array.View[In] { return a.in }

// Out returns the output view.
func (a *Arg[In, Out]) Out() array.View[Out] { return a.out }

// KeptIndexer returns the domain of the output elements.
func (a *Arg[In, Out]) KeptIndexer() *indexer.Indexer { return a.keptIx }

// ReduceIndexer returns the domain folded into each output element.
func (a *Arg[In, Out]) ReduceIndexer() *indexer.Indexer { return a.reduceIx }

// InTotal returns the number of input elements.
func (a *Arg[In, Out]) InTotal() int64 { return a.in.TotalSize() }

// OutTotal returns the number of output elements.
func (a *Arg[In, Out]) OutTotal() int64 { return a.keptIx.TotalSize() }

func (a *Arg[In, Out]) String() string {
	return fmt.Sprintf("reduce.Arg(in=%v, out=%v, kept=%v, reduce=%v)", a.in, a.out, a.keptIx, a.reduceIx)
}
