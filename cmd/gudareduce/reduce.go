package main

import (
	"fmt"
	"strings"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/LynnColeArt/gudareduce/array"
	"github.com/LynnColeArt/gudareduce/reduce"
	"github.com/LynnColeArt/gudareduce/routines"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var reduceOps = []string{"sum", "prod", "max", "min", "argmax", "argmin", "count-nonzero", "mean", "var", "norm"}

func newReduceCmd() *cobra.Command {
	reduceCmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce a generated array",
		Long: `Reduce an array holding 0, 1, 2, ... in row-major order over the given axes
and print the result. With --transpose the input is a transposed view, so
the reduction runs over a non-contiguous layout.`,
		Args: cobra.NoArgs,
		RunE: ReduceHandler,
	}
	reduceCmd.Flags().String("op", "sum", "Reduction: "+strings.Join(reduceOps, ", "))
	reduceCmd.Flags().String("dtype", "float64", "Element type: float64, float32, int64, int32, float16")
	reduceCmd.Flags().IntSlice("shape", []int{2, 3}, "Input shape")
	reduceCmd.Flags().IntSlice("axes", nil, "Axes to reduce, negative counts from the end (default: all)")
	reduceCmd.Flags().Bool("keepdims", false, "Keep reduced axes with size 1")
	reduceCmd.Flags().Bool("transpose", false, "Reduce the transposed view of the input")
	reduceCmd.Flags().Int("ddof", 0, "Delta degrees of freedom for var")
	return reduceCmd
}

// reduceRequest is a parsed reduce command line.
type reduceRequest struct {
	op       string
	axes     []int
	keepdims bool
	ddof     int
}

// ReduceHandler runs one reduction and prints the input and the result.
func ReduceHandler(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	req := reduceRequest{
		op:       must.M1(flags.GetString("op")),
		keepdims: must.M1(flags.GetBool("keepdims")),
		ddof:     must.M1(flags.GetInt("ddof")),
	}
	dims := must.M1(flags.GetIntSlice("shape"))
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}
	if flags.Changed("axes") {
		req.axes = must.M1(flags.GetIntSlice("axes"))
	} else {
		req.axes = array.AllAxes(len(shape))
	}
	transpose := must.M1(flags.GetBool("transpose"))

	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	defer ctx.Destroy()
	r := reduce.New(ctx)

	var in, out string
	switch dtype := must.M1(flags.GetString("dtype")); dtype {
	case "float64":
		in, out, err = reduceFloat[float64](r, req, shape, transpose)
	case "float32":
		in, out, err = reduceFloat[float32](r, req, shape, transpose)
	case "int64":
		in, out, err = reduceInts[int64](r, req, shape, transpose)
	case "int32":
		in, out, err = reduceInts[int32](r, req, shape, transpose)
	case "float16":
		in, out, err = reduceHalf(r, req, shape, transpose)
	default:
		return guda.NewInvalidArgErrorf("reduce", "unknown dtype %q", dtype)
	}
	if err != nil {
		return errors.WithMessagef(err, "%s over %v", req.op, req.axes)
	}

	inUse, peak := ctx.MemoryStats()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "input: %s\n", in)
	fmt.Fprintf(w, "%s over axes %v: %s\n", req.op, req.axes, out)
	fmt.Fprintf(w, "device memory: %d B peak, %d B in use\n", peak, inUse)
	return nil
}

// generate returns 0, 1, 2, ... in the given shape in device memory of ctx,
// transposed when asked. Release it with release.
func generate[T any](ctx *guda.Context, shape []int64, transpose bool, convert func(int64) T) (array.View[T], error) {
	v, err := array.Alloc[T](ctx, shape...)
	if err != nil {
		return v, err
	}
	data := v.Data()
	for i := range data {
		data[i] = convert(int64(i))
	}
	if !transpose {
		return v, nil
	}
	t, err := v.Transpose()
	if err != nil {
		release(ctx, v)
	}
	return t, err
}

// release frees device memory of v. There is nothing to do about a failure
// but report it.
func release[T any](ctx *guda.Context, v array.View[T]) {
	if err := v.Free(ctx); err != nil {
		klog.Warningf("gudareduce: free %v: %v", v.Shape(), err)
	}
}

// output allocates the result of reducing in over req.axes in device memory.
func output[T, Out any](ctx *guda.Context, in array.View[T], req reduceRequest) (array.View[Out], error) {
	axes, err := array.NormalizeAxes(req.axes, in.Ndim())
	if err != nil {
		return array.View[Out]{}, err
	}
	return array.Alloc[Out](ctx, array.ReducedShape(in.Shape(), axes, req.keepdims)...)
}

// runInto allocates the output, runs reduction on it and waits for it.
func runInto[T, Out any](r *reduce.Reducer, in array.View[T], req reduceRequest,
	reduction func(*reduce.Reducer, array.View[T], []int, array.View[Out]) error) (string, error) {
	ctx := r.Context()
	out, err := output[T, Out](ctx, in, req)
	if err != nil {
		return "", err
	}
	defer release(ctx, out)
	if err := reduction(r, in, req.axes, out); err != nil {
		return "", err
	}
	if err := r.Synchronize(); err != nil {
		return "", err
	}
	return describe(out), nil
}

// describe prints the shape and the elements of v in row-major order.
func describe[T any](v array.View[T]) string {
	return fmt.Sprintf("shape %v %v", v.Shape(), v.ToSlice())
}

// reduceNumber runs the reductions defined for every numeric type.
func reduceNumber[T routines.Number](r *reduce.Reducer, in array.View[T], req reduceRequest) (string, error) {
	switch req.op {
	case "sum":
		return runInto(r, in, req, routines.Sum[T])
	case "prod":
		return runInto(r, in, req, routines.Prod[T])
	case "max":
		return runInto(r, in, req, routines.Max[T])
	case "min":
		return runInto(r, in, req, routines.Min[T])
	case "argmax":
		return runInto(r, in, req, routines.ArgMax[T])
	case "argmin":
		return runInto(r, in, req, routines.ArgMin[T])
	case "count-nonzero":
		return runInto(r, in, req, routines.CountNonzero[T])
	}
	return "", guda.NewInvalidArgErrorf("reduce", "op %q is not defined for %T", req.op, *new(T))
}

func reduceInts[T int64 | int32](r *reduce.Reducer, req reduceRequest, shape []int64, transpose bool) (string, string, error) {
	in, err := generate(r.Context(), shape, transpose, func(i int64) T { return T(i) })
	if err != nil {
		return "", "", err
	}
	defer release(r.Context(), in)
	out, err := reduceNumber(r, in, req)
	return describe(in), out, err
}

func reduceFloat[T routines.Float](r *reduce.Reducer, req reduceRequest, shape []int64, transpose bool) (string, string, error) {
	in, err := generate(r.Context(), shape, transpose, func(i int64) T { return T(i) })
	if err != nil {
		return "", "", err
	}
	defer release(r.Context(), in)
	var out string
	switch req.op {
	case "mean":
		out, err = runInto(r, in, req, routines.Mean[T])
	case "norm":
		out, err = runInto(r, in, req, routines.Norm[T])
	case "var":
		out, err = runInto(r, in, req, func(r *reduce.Reducer, in array.View[T], axes []int, out array.View[T]) error {
			return routines.Var(r, in, axes, out, req.ddof)
		})
	default:
		out, err = reduceNumber(r, in, req)
	}
	return describe(in), out, err
}

func reduceHalf(r *reduce.Reducer, req reduceRequest, shape []int64, transpose bool) (string, string, error) {
	in, err := generate(r.Context(), shape, transpose, func(i int64) guda.Float16 { return guda.FromFloat64(float64(i)) })
	if err != nil {
		return "", "", err
	}
	defer release(r.Context(), in)
	var out string
	switch req.op {
	case "sum":
		out, err = runInto(r, in, req, routines.Sum16[guda.Float16])
	case "mean":
		out, err = runInto(r, in, req, routines.Mean16[guda.Float16])
	default:
		err = guda.NewInvalidArgErrorf("reduce", "op %q is not defined for float16", req.op)
	}
	return describe(in), out, err
}
