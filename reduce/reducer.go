package reduce

import (
	"reflect"
	"sync"
	"unsafe"

	guda "github.com/LynnColeArt/gudareduce"
	"github.com/LynnColeArt/gudareduce/array"
	"k8s.io/klog/v2"
)

// Reducer launches reductions on one guda context and remembers, per
// reduction kernel, the block size the occupancy calculator picked for it.
// The cache is never invalidated; a Reducer assumes its device keeps the
// same limits for its whole life.
//
// A Reducer is safe for concurrent use.
type Reducer struct {
	ctx    *guda.Context
	stream *guda.Stream

	mu         sync.Mutex
	blockSizes map[reflect.Type]int
	queries    int
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithStream makes the Reducer launch on s instead of the context's default
// stream.
func WithStream(s *guda.Stream) Option {
	return func(r *Reducer) { r.stream = s }
}

// New returns a Reducer launching on ctx.
func New(ctx *guda.Context, opts ...Option) *Reducer {
	r := &Reducer{
		ctx:        ctx,
		blockSizes: make(map[reflect.Type]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultReducer     *Reducer
	defaultReducerOnce sync.Once
)

// Default returns the Reducer of guda's default context.
func Default() *Reducer {
	defaultReducerOnce.Do(func() {
		defaultReducer = New(guda.Default())
	})
	return defaultReducer
}

// Context returns the context the Reducer launches on.
func (r *Reducer) Context() *guda.Context { return r.ctx }

// Synchronize waits for the launched reductions and reports the first
// device fault since the previous call.
func (r *Reducer) Synchronize() error {
	if r.stream != nil {
		return r.stream.Synchronize()
	}
	return r.ctx.Synchronize()
}

// Queries returns how many times the Reducer ran the occupancy calculator.
func (r *Reducer) Queries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries
}

// kernelID identifies a reduction kernel instantiation in the block size
// cache.
type kernelID[Acc, In, Out, O any] struct{}

// maxBlockSize returns the cached block size of kernel key, running the
// occupancy calculator the first time the kernel is seen.
func (r *Reducer) maxBlockSize(key reflect.Type, accSize int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bs, ok := r.blockSizes[key]; ok {
		return bs
	}
	_, bs := r.ctx.OccupancyMaxPotentialBlockSize(accSize)
	bs = roundDownToPowerOf2(min(bs, MaxReductionBlockSize))
	r.blockSizes[key] = bs
	r.queries++
	klog.V(1).Infof("reduce: block size %d for %v", bs, key)
	return bs
}

// Plan returns the geometry Run would launch with, without launching.
func Plan[Acc, In, Out any, O Op[In, Acc, Out]](r *Reducer, in array.View[In], axes []int, out array.View[Out]) (Geometry, error) {
	arg, err := NewArg(in, axes, out)
	if err != nil {
		return Geometry{}, err
	}
	return geometry[Acc, In, Out, O](r, arg), nil
}

func geometry[Acc, In, Out any, O Op[In, Acc, Out]](r *Reducer, arg *Arg[In, Out]) Geometry {
	var acc Acc
	accSize := int(unsafe.Sizeof(acc))
	maxBlock := r.maxBlockSize(reflect.TypeOf((*kernelID[Acc, In, Out, O])(nil)).Elem(), accSize)
	g := ComputeGeometry(maxBlock, arg.InTotal(), arg.OutTotal(), accSize, r.ctx.Device().MaxGridSize)
	if int64(g.GridSize)*int64(g.OutBlockSize) < arg.OutTotal() {
		klog.Warningf("reduce: %d outputs exceed a grid of %d blocks, each thread handles several",
			arg.OutTotal(), g.GridSize)
	}
	return g
}

// Run reduces in over axes into out with op.
//
// out must have the shape of in without the reduced axes, or with them kept
// at size 1. The launch is asynchronous: out is only valid after
// r.Synchronize, which also reports device faults. Run returns argument and
// launch configuration errors. An empty output launches nothing.
func Run[Acc, In, Out any, O Op[In, Acc, Out]](r *Reducer, in array.View[In], axes []int, out array.View[Out], op O) error {
	arg, err := NewArg(in, axes, out)
	if err != nil {
		return err
	}
	if arg.OutTotal() == 0 {
		return nil
	}
	return dispatch[Acc](r, arg, op, geometry[Acc, In, Out, O](r, arg))
}
