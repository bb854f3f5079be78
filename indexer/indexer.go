// Package indexer provides the iteration descriptors used by kernels to walk
// strided N-dimensional domains.
//
// An Indexer describes a domain (its shape) and the element strides of up to
// MaxOperands arrays laid over it. A cursor created from an Indexer starts at
// a flat row-major position, advances by a fixed step, and reports, for each
// operand, the element offset of its current position. Cursors are value
// types meant to live on a thread's stack; the rank-specialized ones (Iter0
// to Iter4) avoid loops over the rank in the hot path, IterN handles any rank.
package indexer

import (
	"fmt"
	"slices"
)

// MaxOperands is the number of arrays an Indexer can describe at once.
const MaxOperands = 2

// MaxStaticRank is the highest rank with a specialized cursor.
const MaxStaticRank = 4

// Indexer is an immutable description of an iteration domain.
type Indexer struct {
	shape    []int64
	strides  [MaxOperands][]int64
	operands int
	total    int64
}

// New returns an Indexer over shape for the given per-operand strides.
// Each strides slice must have len(shape) entries.
func New(shape []int64, strides ...[]int64) *Indexer {
	if len(strides) > MaxOperands {
		panic(fmt.Sprintf("indexer: %d operands, at most %d supported", len(strides), MaxOperands))
	}
	ix := &Indexer{
		shape:    slices.Clone(shape),
		operands: len(strides),
		total:    1,
	}
	for op, s := range strides {
		if len(s) != len(shape) {
			panic(fmt.Sprintf("indexer: operand %d has %d strides for rank %d", op, len(s), len(shape)))
		}
		ix.strides[op] = slices.Clone(s)
	}
	for op := len(strides); op < MaxOperands; op++ {
		ix.strides[op] = make([]int64, len(shape))
	}
	for _, d := range shape {
		ix.total *= d
	}
	return ix
}

// Ndim returns the rank of the domain.
func (ix *Indexer) Ndim() int { return len(ix.shape) }

// Shape returns the domain's shape. The slice must not be modified.
func (ix *Indexer) Shape() []int64 { return ix.shape }

// Strides returns the element strides of operand op.
func (ix *Indexer) Strides(op int) []int64 { return ix.strides[op] }

// Operands returns how many operands the indexer was built with.
func (ix *Indexer) Operands() int { return ix.operands }

// TotalSize returns the number of positions in the domain.
func (ix *Indexer) TotalSize() int64 { return ix.total }

// Offsets returns the element offset of flat position raw for every operand.
// It is the reference the cursors must agree with.
func (ix *Indexer) Offsets(raw int64) [MaxOperands]int64 {
	var off [MaxOperands]int64
	for axis := len(ix.shape) - 1; axis >= 0; axis-- {
		i := raw % ix.shape[axis]
		raw /= ix.shape[axis]
		for op := range off {
			off[op] += i * ix.strides[op][axis]
		}
	}
	return off
}

func (ix *Indexer) String() string {
	return fmt.Sprintf("Indexer(shape=%v, strides=%v)", ix.shape, ix.strides[:ix.operands])
}

// Iterator is the cursor capability a kernel is instantiated with. I is the
// cursor value type and the constraint is satisfied by *I.
type Iterator[I any] interface {
	*I

	// Init binds the cursor to ix, positioned at start and advancing by step.
	Init(ix *Indexer, start, step int64)
	// Restart repositions the cursor without rebinding it.
	Restart(start int64)
	// Next advances the cursor by its step.
	Next()
	// Ok reports whether the cursor is inside the domain.
	Ok() bool
	// Raw returns the flat row-major position.
	Raw() int64
	// Offset returns the element offset of the position for operand op.
	// Only meaningful while Ok is true.
	Offset(op int) int64
}
