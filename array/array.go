// Package array provides strided N-dimensional views over flat element
// storage, either plain Go slices or guda device memory.
//
// A View is a value: copying it copies the metadata, not the elements.
// Strides are counted in elements, may be zero (broadcast) or negative, and
// are applied on top of an element offset into the backing slice.
package array

import (
	"fmt"
	"slices"
	"strings"
	"unsafe"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/pkg/errors"
)

// View is a strided N-dimensional window over a slice of T.
type View[T any] struct {
	data    []T
	shape   []int64
	strides []int64
	offset  int64

	// ptr is set when the elements live in memory allocated by Alloc.
	ptr guda.DevicePtr
}

// RowMajorStrides returns the element strides of a contiguous array of the
// given shape.
func RowMajorStrides(shape []int64) []int64 {
	strides := make([]int64, len(shape))
	stride := int64(1)
	for axis := len(shape) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= shape[axis]
	}
	return strides
}

// Size returns the number of elements of shape.
func Size(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

func checkShape(op string, shape []int64) error {
	for axis, d := range shape {
		if d < 0 {
			return errors.WithMessagef(guda.ErrInvalidShape, "%s: axis %d has negative size %d", op, axis, d)
		}
	}
	return nil
}

// FromSlice returns a contiguous view of data with the given shape. The view
// aliases data.
func FromSlice[T any](data []T, shape ...int64) (View[T], error) {
	if err := checkShape("FromSlice", shape); err != nil {
		return View[T]{}, err
	}
	if n := Size(shape); n != int64(len(data)) {
		return View[T]{}, errors.WithMessagef(guda.ErrInvalidShape,
			"FromSlice: shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return View[T]{
		data:    data,
		shape:   slices.Clone(shape),
		strides: RowMajorStrides(shape),
	}, nil
}

// Zeros returns a new contiguous zero-filled view.
func Zeros[T any](shape ...int64) (View[T], error) {
	if err := checkShape("Zeros", shape); err != nil {
		return View[T]{}, err
	}
	return FromSlice(make([]T, Size(shape)), shape...)
}

// Alloc returns a contiguous zero-filled view backed by device memory of
// ctx. Release it with Free. T must not contain Go pointers.
func Alloc[T any](ctx *guda.Context, shape ...int64) (View[T], error) {
	if err := checkShape("Alloc", shape); err != nil {
		return View[T]{}, err
	}
	n := Size(shape)
	if n == 0 {
		return FromSlice([]T{}, shape...)
	}
	var zero T
	ptr, err := ctx.Malloc(int(n) * int(unsafe.Sizeof(zero)))
	if err != nil {
		return View[T]{}, errors.WithMessagef(err, "Alloc %v", shape)
	}
	v, err := FromSlice(guda.Slice[T](ptr)[:n], shape...)
	if err != nil {
		_ = ctx.Free(ptr)
		return View[T]{}, err
	}
	v.ptr = ptr
	return v, nil
}

// Free releases the device memory of a view created by Alloc. It is a no-op
// for views over Go slices.
func (v View[T]) Free(ctx *guda.Context) error {
	if v.ptr.IsNil() {
		return nil
	}
	return ctx.Free(v.ptr)
}

// Shape returns the view's shape. The slice must not be modified.
func (v View[T]) Shape() []int64 { return v.shape }

// Strides returns the element strides. The slice must not be modified.
func (v View[T]) Strides() []int64 { return v.strides }

// Offset returns the element offset of the first element into Data.
func (v View[T]) Offset() int64 { return v.offset }

// Data returns the backing slice, including elements outside the view.
func (v View[T]) Data() []T { return v.data }

// Ndim returns the rank of the view.
func (v View[T]) Ndim() int { return len(v.shape) }

// TotalSize returns the number of elements in the view.
func (v View[T]) TotalSize() int64 { return Size(v.shape) }

// IsContiguous reports whether the view is row-major with no gaps. Axes of
// size 1 are ignored.
func (v View[T]) IsContiguous() bool {
	want := RowMajorStrides(v.shape)
	for axis, d := range v.shape {
		if d != 1 && v.strides[axis] != want[axis] {
			return false
		}
	}
	return true
}

func (v View[T]) index(idx []int64) int64 {
	if len(idx) != len(v.shape) {
		panic(fmt.Sprintf("array: %d indices for rank %d", len(idx), len(v.shape)))
	}
	pos := v.offset
	for axis, i := range idx {
		if i < 0 || i >= v.shape[axis] {
			panic(fmt.Sprintf("array: index %d out of range for axis %d of size %d", i, axis, v.shape[axis]))
		}
		pos += i * v.strides[axis]
	}
	return pos
}

// At returns the element at the given multi-index.
func (v View[T]) At(idx ...int64) T {
	return v.data[v.index(idx)]
}

// Set stores x at the given multi-index.
func (v View[T]) Set(x T, idx ...int64) {
	v.data[v.index(idx)] = x
}

// Transpose returns a view with the axes permuted: axis i of the result is
// axis perm[i] of v. With no arguments the axes are reversed.
func (v View[T]) Transpose(perm ...int) (View[T], error) {
	n := len(v.shape)
	if len(perm) == 0 {
		perm = make([]int, n)
		for i := range perm {
			perm[i] = n - 1 - i
		}
	}
	if len(perm) != n {
		return View[T]{}, errors.WithMessagef(guda.ErrInvalidAxis, "Transpose: %d axes for rank %d", len(perm), n)
	}
	seen := make([]bool, n)
	out := v
	out.shape = make([]int64, n)
	out.strides = make([]int64, n)
	for i, axis := range perm {
		if axis < 0 || axis >= n || seen[axis] {
			return View[T]{}, errors.WithMessagef(guda.ErrInvalidAxis, "Transpose: bad permutation %v", perm)
		}
		seen[axis] = true
		out.shape[i] = v.shape[axis]
		out.strides[i] = v.strides[axis]
	}
	return out, nil
}

// Slice restricts axis to the elements start, start+step, ... below stop.
// A negative step walks the axis backwards from start down to stop,
// exclusive.
func (v View[T]) Slice(axis int, start, stop, step int64) (View[T], error) {
	if axis < 0 || axis >= len(v.shape) {
		return View[T]{}, errors.WithMessagef(guda.ErrInvalidAxis, "Slice: axis %d for rank %d", axis, len(v.shape))
	}
	d := v.shape[axis]
	var n int64
	switch {
	case step == 0:
		return View[T]{}, guda.NewInvalidArgError("Slice", "step must not be zero")
	case step > 0:
		if start < 0 || start > d || stop < start || stop > d {
			return View[T]{}, guda.NewInvalidArgErrorf("Slice", "range [%d:%d] out of bounds for size %d", start, stop, d)
		}
		n = (stop - start + step - 1) / step
	default:
		if start >= d || stop < -1 || start < stop {
			return View[T]{}, guda.NewInvalidArgErrorf("Slice", "range [%d:%d:%d] out of bounds for size %d", start, stop, step, d)
		}
		n = (start - stop - step - 1) / -step
	}
	out := v
	out.shape = slices.Clone(v.shape)
	out.strides = slices.Clone(v.strides)
	if n > 0 {
		out.offset += start * v.strides[axis]
	}
	out.shape[axis] = n
	out.strides[axis] *= step
	return out, nil
}

// Contiguous returns a row-major copy of the view in fresh Go memory.
func (v View[T]) Contiguous() View[T] {
	return View[T]{
		data:    v.ToSlice(),
		shape:   slices.Clone(v.shape),
		strides: RowMajorStrides(v.shape),
	}
}

// ToSlice returns the elements of the view in row-major order.
func (v View[T]) ToSlice() []T {
	n := v.TotalSize()
	out := make([]T, 0, n)
	if n == 0 {
		return out
	}
	idx := make([]int64, len(v.shape))
	for k := int64(0); k < n; k++ {
		out = append(out, v.data[v.index(idx)])
		for axis := len(idx) - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < v.shape[axis] {
				break
			}
			idx[axis] = 0
		}
	}
	return out
}

// String prints the metadata of the view.
func (v View[T]) String() string {
	var zero T
	var sb strings.Builder
	fmt.Fprintf(&sb, "View[%T](shape=%v, strides=%v, offset=%d", zero, v.shape, v.strides, v.offset)
	if !v.ptr.IsNil() {
		sb.WriteString(", device")
	}
	sb.WriteByte(')')
	return sb.String()
}
