package array

import (
	"slices"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/pkg/errors"
)

// NormalizeAxes resolves negative axes against ndim, checks that each axis
// is in range and appears once, and returns them sorted.
func NormalizeAxes(axes []int, ndim int) ([]int, error) {
	out := make([]int, len(axes))
	for i, axis := range axes {
		a := axis
		if a < 0 {
			a += ndim
		}
		if a < 0 || a >= ndim {
			return nil, errors.WithMessagef(guda.ErrInvalidAxis, "axis %d out of range for rank %d", axis, ndim)
		}
		out[i] = a
	}
	slices.Sort(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, errors.WithMessagef(guda.ErrInvalidAxis, "axis %d repeated in %v", out[i], axes)
		}
	}
	return out, nil
}

// AllAxes returns 0, 1, ..., ndim-1.
func AllAxes(ndim int) []int {
	axes := make([]int, ndim)
	for i := range axes {
		axes[i] = i
	}
	return axes
}

// ReducedShape returns the shape left after reducing axes of shape. With
// keepdims the reduced axes stay with size 1. axes must be normalized.
func ReducedShape(shape []int64, axes []int, keepdims bool) []int64 {
	out := make([]int64, 0, len(shape))
	for axis, d := range shape {
		if slices.Contains(axes, axis) {
			if keepdims {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, d)
	}
	return out
}
