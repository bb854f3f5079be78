// Package reduce implements generic strided reductions on a guda device.
//
// A reduction is described by an Op: an identity element, a per-element
// input transform, an in-place combine, and an output transform. Run splits
// the input axes into reduced and kept groups, picks a block geometry from
// the device occupancy (cached per Op type), and launches a kernel in which
// the threads of a block first fold interleaved slices of the reduced domain
// and then combine their partial results with a binary tree in shared
// memory. Each block handles one or more output elements and the grid
// strides over the rest, so outputs of any size are covered.
//
// Example:
//
//	r := reduce.New(ctx)
//	err := reduce.Run[float32](r, in, []int{1}, out, routines.SumOp[float32]{})
//	...
//	err = r.Synchronize()
package reduce

// Op is the capability a reduction operation provides. In is the input
// element type, Acc the accumulator carried through the fold and Out the
// output element type.
//
// Reduce must be associative and commutative: the order in which partial
// results are combined depends on the block geometry. Acc is stored in block
// shared memory and must not contain Go pointers.
type Op[In, Acc, Out any] interface {
	// Identity returns the neutral element of Reduce.
	Identity() Acc
	// MapIn transforms an input element. index is the element's row-major
	// position within the reduced axes.
	MapIn(in In, index int64) Acc
	// Reduce folds next into *accum.
	Reduce(next Acc, accum *Acc)
	// MapOut produces the output element from the final accumulator.
	MapOut(accum Acc) Out
}
