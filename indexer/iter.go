package indexer

// cursor is the state common to every cursor type.
type cursor struct {
	total, raw, step int64
}

// Ok reports whether the cursor is inside the domain.
func (c *cursor) Ok() bool { return c.raw >= 0 && c.raw < c.total }

// Raw returns the flat row-major position.
func (c *cursor) Raw() int64 { return c.raw }

// Iter0 walks a rank-0 domain: a single position at offset 0.
type Iter0 struct {
	cursor
}

func (it *Iter0) Init(ix *Indexer, start, step int64) {
	it.total, it.step = ix.total, step
	it.raw = start
}

func (it *Iter0) Restart(start int64) { it.raw = start }
func (it *Iter0) Next()               { it.raw += it.step }
func (it *Iter0) Offset(int) int64    { return 0 }

// Iter1 walks a rank-1 domain.
type Iter1 struct {
	cursor
	stride [MaxOperands]int64
	off    [MaxOperands]int64
}

func (it *Iter1) Init(ix *Indexer, start, step int64) {
	for op := range it.stride {
		it.stride[op] = ix.strides[op][0]
	}
	it.total, it.step = ix.total, step
	it.Restart(start)
}

func (it *Iter1) Restart(start int64) {
	it.raw = start
	it.locate()
}

func (it *Iter1) Next() {
	it.raw += it.step
	it.locate()
}

func (it *Iter1) Offset(op int) int64 { return it.off[op] }

func (it *Iter1) locate() {
	it.off[0] = it.raw * it.stride[0]
	it.off[1] = it.raw * it.stride[1]
}

// Iter2 walks a rank-2 domain.
type Iter2 struct {
	cursor
	dim1    int64
	strides [MaxOperands][2]int64
	off     [MaxOperands]int64
}

func (it *Iter2) Init(ix *Indexer, start, step int64) {
	it.dim1 = ix.shape[1]
	for op := range it.strides {
		copy(it.strides[op][:], ix.strides[op])
	}
	it.total, it.step = ix.total, step
	it.Restart(start)
}

func (it *Iter2) Restart(start int64) {
	it.raw = start
	if it.Ok() {
		it.locate()
	}
}

func (it *Iter2) Next() {
	it.raw += it.step
	if it.Ok() {
		it.locate()
	}
}

func (it *Iter2) Offset(op int) int64 { return it.off[op] }

func (it *Iter2) locate() {
	i1 := it.raw % it.dim1
	i0 := it.raw / it.dim1
	for op := range it.off {
		s := &it.strides[op]
		it.off[op] = i0*s[0] + i1*s[1]
	}
}

// Iter3 walks a rank-3 domain.
type Iter3 struct {
	cursor
	dim1, dim2 int64
	strides    [MaxOperands][3]int64
	off        [MaxOperands]int64
}

func (it *Iter3) Init(ix *Indexer, start, step int64) {
	it.dim1, it.dim2 = ix.shape[1], ix.shape[2]
	for op := range it.strides {
		copy(it.strides[op][:], ix.strides[op])
	}
	it.total, it.step = ix.total, step
	it.Restart(start)
}

func (it *Iter3) Restart(start int64) {
	it.raw = start
	if it.Ok() {
		it.locate()
	}
}

func (it *Iter3) Next() {
	it.raw += it.step
	if it.Ok() {
		it.locate()
	}
}

func (it *Iter3) Offset(op int) int64 { return it.off[op] }

func (it *Iter3) locate() {
	r := it.raw
	i2 := r % it.dim2
	r /= it.dim2
	i1 := r % it.dim1
	i0 := r / it.dim1
	for op := range it.off {
		s := &it.strides[op]
		it.off[op] = i0*s[0] + i1*s[1] + i2*s[2]
	}
}

// Iter4 walks a rank-4 domain.
type Iter4 struct {
	cursor
	dim1, dim2, dim3 int64
	strides          [MaxOperands][4]int64
	off              [MaxOperands]int64
}

func (it *Iter4) Init(ix *Indexer, start, step int64) {
	it.dim1, it.dim2, it.dim3 = ix.shape[1], ix.shape[2], ix.shape[3]
	for op := range it.strides {
		copy(it.strides[op][:], ix.strides[op])
	}
	it.total, it.step = ix.total, step
	it.Restart(start)
}

func (it *Iter4) Restart(start int64) {
	it.raw = start
	if it.Ok() {
		it.locate()
	}
}

func (it *Iter4) Next() {
	it.raw += it.step
	if it.Ok() {
		it.locate()
	}
}

func (it *Iter4) Offset(op int) int64 { return it.off[op] }

func (it *Iter4) locate() {
	r := it.raw
	i3 := r % it.dim3
	r /= it.dim3
	i2 := r % it.dim2
	r /= it.dim2
	i1 := r % it.dim1
	i0 := r / it.dim1
	for op := range it.off {
		s := &it.strides[op]
		it.off[op] = i0*s[0] + i1*s[1] + i2*s[2] + i3*s[3]
	}
}

// IterN walks a domain of any rank, including 0.
type IterN struct {
	cursor
	ix  *Indexer
	off [MaxOperands]int64
}

func (it *IterN) Init(ix *Indexer, start, step int64) {
	it.ix = ix
	it.total, it.step = ix.total, step
	it.Restart(start)
}

func (it *IterN) Restart(start int64) {
	it.raw = start
	if it.Ok() {
		it.off = it.ix.Offsets(it.raw)
	}
}

func (it *IterN) Next() {
	it.raw += it.step
	if it.Ok() {
		it.off = it.ix.Offsets(it.raw)
	}
}

func (it *IterN) Offset(op int) int64 { return it.off[op] }

// implements fails to compile unless *I is a cursor.
func implements[I any, P Iterator[I]]() {}

var (
	_ = implements[Iter0, *Iter0]
	_ = implements[Iter1, *Iter1]
	_ = implements[Iter2, *Iter2]
	_ = implements[Iter3, *Iter3]
	_ = implements[Iter4, *Iter4]
	_ = implements[IterN, *IterN]
)
