// Package guda configuration constants
package guda

import "runtime"

// Thread and block dimensions
const (
	// Default block size for element-wise kernels
	DefaultBlockSize = 256

	// Maximum threads per block (CUDA compatibility)
	MaxThreadsPerBlock = 1024

	// Threads scheduled together; occupancy rounds block sizes to a multiple of this
	WarpSize = 32

	// Maximum number of blocks along the X axis of a grid
	MaxGridSize = 1<<31 - 1

	// Resident threads per core, used by the occupancy calculator
	MaxThreadsPerCore = 2048
)

// Shared memory parameters
const (
	// Shared memory available to a single block, in bytes
	SharedMemPerBlock = 48 * 1024

	// Alignment of the dynamic shared memory region
	SharedMemAlignment = 8
)

// Memory pool parameters
const (
	// Minimum allocation size to prevent fragmentation
	MinAllocationSize = 64

	// Memory alignment for allocations
	MemoryAlignment = 64
)

// Option configures a Context created with NewContext.
type Option func(*Device)

// WithMaxThreadsPerBlock limits the number of threads a block may hold.
func WithMaxThreadsPerBlock(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.MaxThreadsPerBlock = n
		}
	}
}

// WithSharedMemPerBlock sets the per-block shared memory budget in bytes.
func WithSharedMemPerBlock(bytes int) Option {
	return func(d *Device) {
		if bytes > 0 {
			d.SharedMemPerBlock = bytes
		}
	}
}

// WithMaxGridSize caps the number of blocks a single launch may request.
func WithMaxGridSize(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.MaxGridSize = n
		}
	}
}

// WithWorkers sets how many blocks may execute concurrently.
// Zero or negative means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(d *Device) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		d.NumCores = n
	}
}
