package guda

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test basic memory allocation and deallocation
func TestMemoryAllocation(t *testing.T) {
	ctx := newTestContext(t)
	sizes := []int{100, 1000, 10000, 1000000}

	for _, size := range sizes {
		ptr := mallocOrFail(t, ctx, size*4)

		// Verify we can access the memory
		slice := ptr.Float32()
		require.Len(t, slice, size)
		for i := 0; i < min(100, size); i++ {
			require.Zero(t, slice[i], "fresh memory must be zeroed")
			slice[i] = float32(i)
		}
		for i := 0; i < min(100, size); i++ {
			require.Equal(t, float32(i), slice[i], "memory corruption at index %d", i)
		}

		require.NoError(t, ctx.Free(ptr))
	}
}

// Recycled blocks come back zeroed, like fresh ones.
func TestMemoryReuseIsZeroed(t *testing.T) {
	ctx := newTestContext(t)
	ptr := mallocOrFail(t, ctx, 256)
	for i := range ptr.Byte() {
		ptr.Byte()[i] = 0xff
	}
	require.NoError(t, ctx.Free(ptr))

	again := mallocOrFail(t, ctx, 200)
	defer ctx.Free(again)
	for i, b := range again.Byte() {
		require.Zero(t, b, "byte %d", i)
	}
}

func TestSliceViews(t *testing.T) {
	ctx := newTestContext(t)
	ptr := mallocOrFail(t, ctx, 10*8)
	defer ctx.Free(ptr)

	ints := Slice[int64](ptr)
	require.Len(t, ints, 10)
	for i := range ints {
		ints[i] = int64(i * i)
	}
	require.Len(t, ptr.Float64(), 10)

	tail := ptr.Offset(3 * 8)
	assert.Equal(t, 7*8, tail.Size())
	assert.Equal(t, []int64{9, 16, 25, 36, 49, 64, 81}, Slice[int64](tail))
	assert.Nil(t, Slice[int64](DevicePtr{}))
	assert.True(t, DevicePtr{}.IsNil())
}

// Test memory copy operations
func TestMemcpy(t *testing.T) {
	const N = 1000
	ctx := newTestContext(t)
	rng := rand.New(rand.NewSource(1))

	// Create host data
	hSrc := make([]float32, N)
	hDst := make([]float32, N)
	for i := 0; i < N; i++ {
		hSrc[i] = rng.Float32()
	}

	dSrc := mallocOrFail(t, ctx, N*4)
	dDst := mallocOrFail(t, ctx, N*4)
	defer ctx.Free(dSrc)
	defer ctx.Free(dDst)

	require.NoError(t, ctx.Memcpy(dSrc, hSrc, N*4, MemcpyHostToDevice))
	require.NoError(t, ctx.Memcpy(dDst, dSrc, N*4, MemcpyDeviceToDevice))
	require.NoError(t, ctx.Memcpy(hDst, dDst, N*4, MemcpyDeviceToHost))
	require.Equal(t, hSrc, hDst)

	err := ctx.Memcpy(dDst, []string{"x"}, 1, MemcpyHostToDevice)
	require.True(t, IsInvalidArgError(err), "got %v", err)
}

// Test basic kernel launch
func TestKernelLaunch(t *testing.T) {
	const N = 10000
	ctx := newTestContext(t)

	dData := mallocOrFail(t, ctx, N*4)
	defer ctx.Free(dData)
	slice := dData.Float32()

	// Launch kernel to set values
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < N {
			slice[idx] = float32(idx)
		}
	})

	require.NoError(t, ctx.Launch(kernel, Dim3{X: (N + 255) / 256}, Dim3{X: 256}))
	synchronizeOrFail(t, ctx)

	for i := 0; i < N; i++ {
		if slice[i] != float32(i) {
			t.Fatalf("Incorrect value at index %d: expected %f, got %f", i, float32(i), slice[i])
		}
	}
}

// Kernel arguments are passed through to every thread.
func TestKernelArgs(t *testing.T) {
	ctx := newTestContext(t)
	out := make([]float32, 64)
	kernel := func(tid ThreadID, args ...interface{}) {
		scale := args[0].(float32)
		dst := args[1].([]float32)
		dst[tid.Global()] = scale * float32(tid.Global())
	}
	require.NoError(t, ctx.LaunchFunc(kernel, Dim3{X: 4}, Dim3{X: 16}, float32(0.5), out))
	synchronizeOrFail(t, ctx)
	for i, v := range out {
		require.Equal(t, 0.5*float32(i), v)
	}
}

// Work queued on one stream runs in submission order.
func TestStreamOrdering(t *testing.T) {
	ctx := newTestContext(t)
	stream := ctx.CreateStream()
	require.NotEqual(t, ctx.DefaultStream().ID(), stream.ID())

	var order []int
	for i := 0; i < 100; i++ {
		i := i
		stream.Submit(func() error {
			order = append(order, i)
			return nil
		})
	}
	require.NoError(t, stream.Synchronize())
	require.Len(t, order, 100)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

// Test error conditions
func TestErrorHandling(t *testing.T) {
	ctx := newTestContext(t)

	// Test double free
	ptr := mallocOrFail(t, ctx, 100)
	require.NoError(t, ctx.Free(ptr))
	err := ctx.Free(ptr)
	require.ErrorIs(t, err, ErrDoubleFree)
	require.True(t, IsMemoryError(err))

	// Freeing unknown memory
	other := newTestContext(t)
	foreign := mallocOrFail(t, other, 100)
	require.True(t, IsMemoryError(ctx.Free(foreign)))
	require.NoError(t, ctx.Free(DevicePtr{}))

	// Invalid sizes
	_, err = ctx.Malloc(0)
	require.ErrorIs(t, err, ErrInvalidSize)

	// Test invalid device
	require.ErrorIs(t, SetDevice(1), ErrInvalidDevice)
	require.NoError(t, SetDevice(0))
	_, err = GetDeviceProperties(3)
	require.True(t, IsInvalidArgError(err))

	// Test device count
	require.Equal(t, 1, GetDeviceCount())
	props, err := GetDeviceProperties(0)
	require.NoError(t, err)
	require.Same(t, GetDevice(), props)
	require.Same(t, Default().Device(), props)
}

// Test memory pool statistics
func TestMemoryPoolStats(t *testing.T) {
	ctx := newTestContext(t)
	allocated1, _ := ctx.MemoryStats()
	require.Zero(t, allocated1)

	ptrs := make([]DevicePtr, 10)
	for i := range ptrs {
		ptrs[i] = mallocOrFail(t, ctx, 1024*1024) // 1MB each
	}

	allocated2, peak2 := ctx.MemoryStats()
	require.Equal(t, int64(10*1024*1024), allocated2)
	require.Equal(t, allocated2, peak2)

	// Free half
	for i := 0; i < 5; i++ {
		require.NoError(t, ctx.Free(ptrs[i]))
	}

	// Allocated decreased but peak unchanged
	allocated3, peak3 := ctx.MemoryStats()
	require.Equal(t, int64(5*1024*1024), allocated3)
	require.Equal(t, peak2, peak3)

	for i := 5; i < 10; i++ {
		require.NoError(t, ctx.Free(ptrs[i]))
	}
	allocated4, _ := ctx.MemoryStats()
	require.Zero(t, allocated4)
}

func TestDeviceOptions(t *testing.T) {
	d := NewDevice(
		WithMaxThreadsPerBlock(64),
		WithSharedMemPerBlock(1024),
		WithMaxGridSize(7),
		WithWorkers(3),
	)
	assert.Equal(t, 64, d.MaxThreadsPerBlock)
	assert.Equal(t, 1024, d.SharedMemPerBlock)
	assert.Equal(t, 7, d.MaxGridSize)
	assert.Equal(t, 3, d.NumCores)

	// Non-positive limits keep the defaults.
	d = NewDevice(WithMaxThreadsPerBlock(0), WithSharedMemPerBlock(-1), WithMaxGridSize(0))
	assert.Equal(t, MaxThreadsPerBlock, d.MaxThreadsPerBlock)
	assert.Equal(t, SharedMemPerBlock, d.SharedMemPerBlock)
	assert.Equal(t, MaxGridSize, d.MaxGridSize)
	assert.Equal(t, WarpSize, d.WarpSize)
	assert.Positive(t, d.NumCores)
	assert.NotEmpty(t, GetCPUInfo())
	if len(d.Features) > 0 {
		assert.Contains(t, d.Name, d.Features[len(d.Features)-1])
	}
}

func BenchmarkKernelLaunch(b *testing.B) {
	const N = 1 << 16
	ctx := NewContext()
	defer ctx.Destroy()
	dData := mallocOrFail(b, ctx, N*4)
	defer ctx.Free(dData)
	slice := dData.Float32()

	kernel := func(tid ThreadID, args ...interface{}) {
		if idx := tid.Global(); idx < N {
			slice[idx] += 1
		}
	}
	b.SetBytes(N * 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		launchOrFail(b, ctx, kernel, LaunchConfig{Grid: Dim3{X: N / DefaultBlockSize}, Block: Dim3{X: DefaultBlockSize}})
		synchronizeOrFail(b, ctx)
	}
}
