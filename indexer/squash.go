package indexer

// Squash simplifies a domain without changing the row-major linear index of
// any position: axes of size 1 are dropped and adjacent axes are merged when
// they are contiguous for every operand (the outer stride equals the inner
// stride times the inner size). A domain with a zero-size axis squashes to
// the single axis [0].
func Squash(shape []int64, strides ...[]int64) ([]int64, [][]int64) {
	outStrides := make([][]int64, len(strides))
	for _, d := range shape {
		if d == 0 {
			for op := range outStrides {
				outStrides[op] = []int64{0}
			}
			return []int64{0}, outStrides
		}
	}

	outShape := make([]int64, 0, len(shape))
	for op := range outStrides {
		outStrides[op] = make([]int64, 0, len(shape))
	}
	for axis, d := range shape {
		if d == 1 {
			continue
		}
		last := len(outShape) - 1
		if last >= 0 && mergeable(d, axis, last, strides, outStrides) {
			outShape[last] *= d
			for op := range outStrides {
				outStrides[op][last] = strides[op][axis]
			}
			continue
		}
		outShape = append(outShape, d)
		for op := range outStrides {
			outStrides[op] = append(outStrides[op], strides[op][axis])
		}
	}
	return outShape, outStrides
}

// mergeable reports whether the kept axis at position last can absorb the
// input axis of size d.
func mergeable(d int64, axis, last int, strides, outStrides [][]int64) bool {
	for op := range strides {
		if outStrides[op][last] != strides[op][axis]*d {
			return false
		}
	}
	return true
}
