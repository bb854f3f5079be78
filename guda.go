// Package guda provides a CUDA-compatible API for CPU execution.
// It runs grids of thread blocks on goroutines, with per-block shared
// memory and block-wide barriers, so kernels written against the CUDA
// execution model (including cooperative in-block reductions) behave the
// same on CPU-only infrastructure.
//
// Example usage:
//
//	ctx := guda.NewContext()
//	defer ctx.Destroy()
//
//	// Allocate device memory
//	d_a, _ := ctx.Malloc(n * 4) // n float32s
//	ctx.Memcpy(d_a, h_a, n*4, guda.MemcpyHostToDevice)
//
//	// Launch kernel
//	grid := guda.Dim3{X: (n + 255) / 256}
//	block := guda.Dim3{X: 256}
//	ctx.LaunchFunc(myKernel, grid, block)
//	err := ctx.Synchronize()
package guda

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Device represents a compute device. In GUDA, this is the CPU with its
// cores and available memory. Each device has a unique ID and capabilities.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	TotalMem   uint64 // Total available memory in bytes
	NumCores   int    // Number of blocks executed concurrently
	MaxThreads int    // Maximum concurrent threads

	MaxThreadsPerBlock int      // Upper bound on threads in one block
	SharedMemPerBlock  int      // Shared memory bytes available to one block
	MaxGridSize        int      // Upper bound on blocks in one launch
	WarpSize           int      // Scheduling granularity for occupancy
	Features           []string // Vector ISA extensions detected on the host
}

// Context represents an execution context for GUDA operations.
// It manages device resources, memory allocation, and stream execution.
// A Context must be created before any GUDA operations and should be
// destroyed when no longer needed.
type Context struct {
	device        *Device
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream
}

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
type Stream struct {
	id    int
	tasks chan func() error
	done  chan struct{}

	mu        sync.Mutex
	idle      *sync.Cond // signaled when a task completes
	submitted uint64
	completed uint64
	err       error // first fault since the last Synchronize
}

// Dim3 represents 3D dimensions for grid and block configurations.
// This matches CUDA's dim3 structure for kernel launch parameters.
type Dim3 struct {
	X, Y, Z int
}

// ThreadID identifies a thread's position within the execution hierarchy.
// It provides the same indexing semantics as CUDA's built-in variables:
// blockIdx, threadIdx, blockDim, and gridDim.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid

	block *block
}

// Kernel represents a compute kernel that can be executed in parallel.
// Implementations should be thread-safe as Execute will be called
// concurrently from multiple threads.
type Kernel interface {
	Execute(tid ThreadID, args ...interface{})
}

// KernelFunc is a function that can be launched as a kernel.
// It receives thread identification and variadic arguments.
type KernelFunc func(tid ThreadID, args ...interface{})

// Global runtime state
var (
	defaultDevice  *Device
	defaultContext *Context
	initOnce       sync.Once
)

// Initialize GUDA runtime
func init() {
	initOnce.Do(func() {
		defaultContext = NewContext()
		defaultDevice = defaultContext.device
	})
}

// NewDevice describes the host CPU as a device, adjusted by opts.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		ID:                 0,
		Name:               "CPU",
		TotalMem:           getSystemMemory(),
		NumCores:           runtime.NumCPU(),
		MaxThreads:         runtime.NumCPU() * MaxThreadsPerCore,
		MaxThreadsPerBlock: MaxThreadsPerBlock,
		SharedMemPerBlock:  SharedMemPerBlock,
		MaxGridSize:        MaxGridSize,
		WarpSize:           WarpSize,
		Features:           detectCPUFeatures(),
	}
	if len(d.Features) > 0 {
		d.Name = fmt.Sprintf("CPU (%s)", d.Features[len(d.Features)-1])
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewContext creates an execution context on the host CPU device.
// Options override the default device limits, which is how tests and
// tools emulate smaller accelerators.
func NewContext(opts ...Option) *Context {
	ctx := &Context{
		device:  NewDevice(opts...),
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
	}
	ctx.defaultStream = ctx.CreateStream()
	return ctx
}

// Default returns the process-wide context used by the package-level functions.
func Default() *Context {
	return defaultContext
}

// Malloc allocates device memory of the specified size in bytes.
// In GUDA, this allocates CPU memory with proper alignment for SIMD operations.
// The returned DevicePtr can be used with all GUDA operations.
//
// Example:
//
//	d_data, err := guda.Malloc(1024 * 4) // Allocate 1024 float32s
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer guda.Free(d_data)
func Malloc(size int) (DevicePtr, error) {
	return defaultContext.Malloc(size)
}

// Free releases device memory allocated by Malloc.
func Free(ptr DevicePtr) error {
	return defaultContext.Free(ptr)
}

// Memcpy copies memory between host and device.
// In GUDA's unified memory model, this is a simple copy.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return defaultContext.Memcpy(dst, src, size, kind)
}

// Launch executes a kernel on the default stream.
// The kernel is executed across a grid of thread blocks.
func Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return defaultContext.Launch(kernel, grid, block, args...)
}

// LaunchFunc executes a kernel function
func LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return defaultContext.LaunchFunc(fn, grid, block, args...)
}

// Synchronize waits for all operations on all streams to complete and
// reports the first kernel fault observed since the previous call.
//
// Example:
//
//	guda.Launch(kernel, grid, block)
//	err := guda.Synchronize() // Wait for kernel to complete
func Synchronize() error {
	return defaultContext.Synchronize()
}

// GetDevice returns the current device information.
func GetDevice() *Device {
	return defaultDevice
}

// SetDevice sets the active device (no-op for CPU)
func SetDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

// GetDeviceCount returns the number of available devices.
// GUDA always returns 1 as it only supports CPU execution.
func GetDeviceCount() int {
	return 1
}

// GetDeviceProperties returns device properties
func GetDeviceProperties(id int) (*Device, error) {
	if id != 0 {
		return nil, NewInvalidArgError("GetDeviceProperties", fmt.Sprintf("invalid device ID: %d", id))
	}
	return defaultDevice, nil
}

// Context methods

// Device returns the device this context executes on.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// CreateStream creates a new execution stream
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func() error, 1000),
		done:  make(chan struct{}),
	}
	stream.idle = sync.NewCond(&stream.mu)

	// Start worker goroutine for stream
	go stream.worker()

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// DefaultStream returns the stream used by Launch and LaunchFunc.
func (ctx *Context) DefaultStream() *Stream {
	return ctx.defaultStream
}

// Launch executes a kernel on the default stream
func (ctx *Context) Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(kernel, grid, block, ctx.defaultStream, args...)
}

// LaunchFunc executes a kernel function on the default stream
func (ctx *Context) LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchFuncStream(fn, grid, block, ctx.defaultStream, args...)
}

// LaunchStream executes a kernel on a specific stream
func (ctx *Context) LaunchStream(kernel Kernel, grid, block Dim3, stream *Stream, args ...interface{}) error {
	return ctx.LaunchKernel(kernel.Execute, LaunchConfig{Grid: grid, Block: block, Stream: stream}, args...)
}

// LaunchFuncStream executes a kernel function on a specific stream
func (ctx *Context) LaunchFuncStream(fn KernelFunc, grid, block Dim3, stream *Stream, args ...interface{}) error {
	return ctx.LaunchKernel(fn, LaunchConfig{Grid: grid, Block: block, Stream: stream}, args...)
}

// Synchronize waits for all streams to complete
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, stream := range ctx.streams {
		streams = append(streams, stream)
	}
	ctx.mu.Unlock()

	var first error
	for _, stream := range streams {
		if err := stream.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Destroy stops all stream workers. Pending work is completed first.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for id, stream := range ctx.streams {
		stream.wait()
		close(stream.tasks)
		<-stream.done
		delete(ctx.streams, id)
	}
}

// Stream methods

// ID returns the stream identifier.
func (s *Stream) ID() int {
	return s.id
}

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		err := task()
		s.mu.Lock()
		if err != nil && s.err == nil {
			s.err = err
		}
		s.completed++
		s.idle.Broadcast()
		s.mu.Unlock()
	}
	close(s.done)
}

// Synchronize waits for all tasks in the stream to complete and returns the
// first fault recorded since the previous Synchronize. Tasks submitted
// concurrently with the call may or may not be waited for.
func (s *Stream) Synchronize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitLocked()
	err := s.err
	s.err = nil
	if err != nil {
		klog.V(1).Infof("stream %d: reporting fault %v", s.id, err)
		return errors.WithMessagef(err, "stream %d", s.id)
	}
	return nil
}

// Submit adds a task to the stream
func (s *Stream) Submit(task func() error) {
	s.mu.Lock()
	s.submitted++
	s.mu.Unlock()
	s.tasks <- task
}

func (s *Stream) wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitLocked()
}

// waitLocked blocks until every task submitted so far has completed. Tasks
// run in order, so later submissions never delay it. s.mu must be held.
func (s *Stream) waitLocked() {
	target := s.submitted
	for s.completed < target {
		s.idle.Wait()
	}
}

// Helper functions

// Global returns the global thread index
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalX returns the global X index
func (tid ThreadID) GlobalX() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// GlobalZ returns the global Z index
func (tid ThreadID) GlobalZ() int {
	return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z
}

// Linear returns the thread's flattened index within its block.
func (tid ThreadID) Linear() int {
	dim := tid.BlockDim.normalize()
	return tid.ThreadIdx.X + dim.X*(tid.ThreadIdx.Y+dim.Y*tid.ThreadIdx.Z)
}

// Size returns the total number of elements. Unset Y and Z count as 1,
// so Dim3{X: n} describes n elements.
func (d Dim3) Size() int {
	d = d.normalize()
	return d.X * d.Y * d.Z
}

func (d Dim3) normalize() Dim3 {
	if d.Y == 0 {
		d.Y = 1
	}
	if d.Z == 0 {
		d.Z = 1
	}
	return d
}

// Implement KernelFunc as Kernel
func (fn KernelFunc) Execute(tid ThreadID, args ...interface{}) {
	fn(tid, args...)
}
