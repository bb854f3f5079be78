package reduce

import (
	"fmt"
	"math/bits"
)

// MaxReductionBlockSize caps the number of threads of a reduction block,
// whatever the occupancy calculator allows.
const MaxReductionBlockSize = 512

// RoundUpToPowerOf2 returns the smallest power of two >= x. Values below 1
// give 1.
func RoundUpToPowerOf2(x int64) int64 {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(x-1))
}

// roundDownToPowerOf2 returns the largest power of two <= x, or 1.
func roundDownToPowerOf2(x int) int {
	if x <= 1 {
		return 1
	}
	return 1 << (bits.Len(uint(x)) - 1)
}

// Geometry is the launch shape of a reduction kernel.
//
// Each block runs ReduceBlockSize*OutBlockSize threads and handles
// OutBlockSize output elements at a time, each folded by ReduceBlockSize
// cooperating threads. Both sizes are powers of two.
type Geometry struct {
	ReduceBlockSize int
	OutBlockSize    int
	GridSize        int
	SharedMemSize   int // bytes: one accumulator per thread
}

// BlockSize returns the number of threads per block.
func (g Geometry) BlockSize() int {
	return g.ReduceBlockSize * g.OutBlockSize
}

// cooperative reports whether several threads fold each output element, in
// which case their partial results are combined in shared memory.
func (g Geometry) cooperative() bool {
	return g.OutBlockSize <= g.BlockSize()/2
}

func (g Geometry) String() string {
	return fmt.Sprintf("grid=%d block=%d (reduce %d x out %d) shared=%dB",
		g.GridSize, g.BlockSize(), g.ReduceBlockSize, g.OutBlockSize, g.SharedMemSize)
}

// ComputeGeometry derives the launch shape of a reduction of inTotal input
// elements into outTotal > 0 outputs.
//
// maxBlockSize is the largest block the kernel may use; it is rounded down
// to a power of two and capped at MaxReductionBlockSize. The grid is capped
// at maxGridSize, the kernel's grid-stride loop covers the remainder.
// accSize is the size in bytes of the accumulator.
func ComputeGeometry(maxBlockSize int, inTotal, outTotal int64, accSize, maxGridSize int) Geometry {
	maxBlockSize = roundDownToPowerOf2(min(maxBlockSize, MaxReductionBlockSize))

	factor := int64(1)
	if outTotal > 0 && inTotal/outTotal > 1 {
		factor = inTotal / outTotal
	}
	reduceBlock := int(min(int64(maxBlockSize), RoundUpToPowerOf2(factor)))
	outBlock := maxBlockSize / reduceBlock

	grid := (outTotal + int64(outBlock) - 1) / int64(outBlock)
	if maxGridSize > 0 && grid > int64(maxGridSize) {
		grid = int64(maxGridSize)
	}
	return Geometry{
		ReduceBlockSize: reduceBlock,
		OutBlockSize:    outBlock,
		GridSize:        int(grid),
		SharedMemSize:   accSize * maxBlockSize,
	}
}
