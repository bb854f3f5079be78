package guda

import "k8s.io/klog/v2"

// OccupancyMaxPotentialBlockSize returns the block size that keeps the most
// threads resident for a kernel that needs sharedMemPerThread bytes of shared
// memory per thread, together with the minimum grid size that saturates the
// device at that block size (cudaOccupancyMaxPotentialBlockSize).
//
// The block size is a multiple of the warp size whenever the device allows
// at least one full warp per block.
func (ctx *Context) OccupancyMaxPotentialBlockSize(sharedMemPerThread int) (minGridSize, blockSize int) {
	d := ctx.device
	blockSize = d.MaxThreadsPerBlock
	if sharedMemPerThread > 0 {
		if limit := d.SharedMemPerBlock / sharedMemPerThread; limit < blockSize {
			blockSize = limit
		}
	}
	if d.WarpSize > 0 && blockSize >= d.WarpSize {
		blockSize -= blockSize % d.WarpSize
	}
	if blockSize < 1 {
		blockSize = 1
	}

	blocksPerCore := MaxThreadsPerCore / blockSize
	if blocksPerCore < 1 {
		blocksPerCore = 1
	}
	minGridSize = blocksPerCore * d.NumCores

	klog.V(2).Infof("occupancy: smem/thread=%dB -> block=%d minGrid=%d", sharedMemPerThread, blockSize, minGridSize)
	return minGridSize, blockSize
}
