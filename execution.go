package guda

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// LaunchConfig describes a kernel launch: grid and block shape, the
// dynamic shared memory each block receives, and the stream it runs on.
type LaunchConfig struct {
	Grid  Dim3
	Block Dim3

	// SharedMem is the number of bytes of block-local shared memory.
	// A non-zero value also makes the launch cooperative.
	SharedMem int

	// Cooperative runs every thread of a block concurrently so that
	// SyncThreads can be used without shared memory.
	Cooperative bool

	// Stream defaults to the context's default stream.
	Stream *Stream
}

func (cfg LaunchConfig) cooperative() bool {
	return cfg.Cooperative || cfg.SharedMem > 0
}

// LaunchKernel validates cfg and submits fn to the configured stream.
// The call returns as soon as the launch is queued; faults raised while the
// kernel runs are reported by the next Synchronize.
func (ctx *Context) LaunchKernel(fn KernelFunc, cfg LaunchConfig, args ...interface{}) error {
	if err := ctx.validateLaunch(cfg); err != nil {
		return err
	}
	stream := cfg.Stream
	if stream == nil {
		stream = ctx.defaultStream
	}
	cfg.Grid = cfg.Grid.normalize()
	cfg.Block = cfg.Block.normalize()

	klog.V(2).Infof("launch: grid=%v block=%v shared=%dB cooperative=%v stream=%d",
		cfg.Grid, cfg.Block, cfg.SharedMem, cfg.cooperative(), stream.id)

	workers := ctx.device.NumCores
	stream.Submit(func() error {
		return runGrid(fn, cfg, workers, args)
	})
	return nil
}

func (ctx *Context) validateLaunch(cfg LaunchConfig) error {
	d := ctx.device
	blockSize := cfg.Block.Size()
	switch {
	case cfg.Block.X <= 0 || blockSize <= 0:
		return errors.WithMessagef(ErrInvalidConfiguration, "empty block %v", cfg.Block)
	case blockSize > d.MaxThreadsPerBlock:
		return errors.WithMessagef(ErrInvalidConfiguration,
			"block of %d threads exceeds the device limit of %d", blockSize, d.MaxThreadsPerBlock)
	case cfg.Grid.X < 0 || cfg.Grid.Y < 0 || cfg.Grid.Z < 0:
		return errors.WithMessagef(ErrInvalidConfiguration, "negative grid %v", cfg.Grid)
	case cfg.Grid.X > d.MaxGridSize:
		return errors.WithMessagef(ErrInvalidConfiguration,
			"grid of %d blocks exceeds the device limit of %d", cfg.Grid.X, d.MaxGridSize)
	case cfg.SharedMem < 0 || cfg.SharedMem > d.SharedMemPerBlock:
		return errors.WithMessagef(ErrInvalidConfiguration,
			"%d bytes of shared memory requested, device allows %d", cfg.SharedMem, d.SharedMemPerBlock)
	}
	return nil
}

// runGrid executes all blocks of a launch. Blocks are independent and run in
// any order, at most workers at a time.
func runGrid(fn KernelFunc, cfg LaunchConfig, workers int, args []interface{}) error {
	gridSize := cfg.Grid.Size()
	if gridSize == 0 {
		return nil
	}
	if workers <= 0 || workers > gridSize {
		workers = gridSize
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for blockID := 0; blockID < gridSize; blockID++ {
		if gctx.Err() != nil {
			// A block faulted; the remaining ones are not started.
			break
		}
		blockID := blockID
		g.Go(func() error {
			return runBlock(fn, cfg, linearTo3D(blockID, cfg.Grid), args)
		})
	}
	return g.Wait()
}

// runBlock executes the threads of one block. Cooperative blocks get one
// goroutine per thread, a barrier and shared memory. Other blocks run their
// threads sequentially, which maximizes cache reuse.
func runBlock(fn KernelFunc, cfg LaunchConfig, blockIdx Dim3, args []interface{}) error {
	blockSize := cfg.Block.Size()
	tid := ThreadID{
		BlockIdx: blockIdx,
		BlockDim: cfg.Block,
		GridDim:  cfg.Grid,
	}

	if !cfg.cooperative() {
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = kernelFault(blockIdx, tid.ThreadIdx, r)
				}
			}()
			for threadID := 0; threadID < blockSize; threadID++ {
				tid.ThreadIdx = linearTo3D(threadID, cfg.Block)
				fn(tid, args...)
			}
		}()
		return err
	}

	b := newBlock(blockSize, cfg.SharedMem)
	tid.block = b
	var wg sync.WaitGroup
	wg.Add(blockSize)
	for threadID := 0; threadID < blockSize; threadID++ {
		t := tid
		t.ThreadIdx = linearTo3D(threadID, cfg.Block)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					if r == errBlockAborted {
						return
					}
					b.abort(kernelFault(blockIdx, t.ThreadIdx, r))
				}
			}()
			fn(t, args...)
		}()
	}
	wg.Wait()
	return b.fault
}

func kernelFault(blockIdx, threadIdx Dim3, r interface{}) error {
	err := errors.Wrapf(ErrKernelFailed, "block %v thread %v: %v", blockIdx, threadIdx, r)
	klog.Errorf("%v", err)
	return err
}

// errBlockAborted unwinds threads parked on a barrier after another thread
// of the same block faulted.
var errBlockAborted = errors.New("block aborted")

// block holds the state shared by the threads of one cooperative block.
type block struct {
	size        int
	shared      []uint64
	sharedBytes int

	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	phase   uint64
	broken  bool
	fault   error
}

func newBlock(size, sharedBytes int) *block {
	b := &block{
		size:        size,
		sharedBytes: sharedBytes,
	}
	if sharedBytes > 0 {
		b.shared = make([]uint64, (sharedBytes+SharedMemAlignment-1)/SharedMemAlignment)
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// sync blocks until every thread of the block has called it for the
// current phase.
func (b *block) sync() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		panic(errBlockAborted)
	}
	phase := b.phase
	b.arrived++
	if b.arrived == b.size {
		b.arrived = 0
		b.phase++
		b.cond.Broadcast()
		return
	}
	for phase == b.phase && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		panic(errBlockAborted)
	}
}

func (b *block) abort(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault == nil {
		b.fault = err
	}
	b.broken = true
	b.cond.Broadcast()
}

// SyncThreads is the block-wide barrier (__syncthreads). Every thread of the
// block must reach it before any of them continues. It may only be called
// from cooperative launches, or from blocks of a single thread.
func (tid ThreadID) SyncThreads() {
	if tid.block == nil {
		if tid.BlockDim.Size() == 1 {
			return
		}
		panic("guda: SyncThreads requires a cooperative launch")
	}
	tid.block.sync()
}

// SharedMemory returns the calling block's shared memory viewed as a slice
// of T. The region is 8-byte aligned and is only valid during the launch.
// T must not contain Go pointers.
func SharedMemory[T any](tid ThreadID) []T {
	b := tid.block
	if b == nil || len(b.shared) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		panic("guda: zero-size shared memory element")
	}
	if unsafe.Alignof(zero) > SharedMemAlignment {
		panic(fmt.Sprintf("guda: shared memory element %T needs %d-byte alignment", zero, unsafe.Alignof(zero)))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.shared[0])), b.sharedBytes/int(size))
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	dim = dim.normalize()
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
