package guda

import (
	"testing"
)

// mallocOrFail allocates device memory on ctx and fails the test if unsuccessful
func mallocOrFail(t testing.TB, ctx *Context, size int) DevicePtr {
	t.Helper()
	ptr, err := ctx.Malloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// launchOrFail queues a kernel and fails the test if the launch is rejected
func launchOrFail(t testing.TB, ctx *Context, fn KernelFunc, cfg LaunchConfig, args ...interface{}) {
	t.Helper()
	if err := ctx.LaunchKernel(fn, cfg, args...); err != nil {
		t.Fatalf("Kernel launch failed: %v", err)
	}
}

// synchronizeOrFail synchronizes ctx and fails the test on a kernel fault
func synchronizeOrFail(t testing.TB, ctx *Context) {
	t.Helper()
	if err := ctx.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// newTestContext returns a private context destroyed at the end of the test.
func newTestContext(t testing.TB, opts ...Option) *Context {
	t.Helper()
	ctx := NewContext(opts...)
	t.Cleanup(ctx.Destroy)
	return ctx
}
