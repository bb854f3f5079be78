package reduce

import (
	guda "github.com/LynnColeArt/gudareduce"
	"github.com/LynnColeArt/gudareduce/indexer"
)

// launch submits the reduction kernel for cursor types RI (reduce domain)
// and KI (kept domain).
func launch[Acc, RI, KI, In, Out any, O Op[In, Acc, Out], PRI indexer.Iterator[RI], PKI indexer.Iterator[KI]](
	r *Reducer, arg *Arg[In, Out], op O, g Geometry) error {
	return r.ctx.LaunchKernel(kernel[Acc, RI, KI, In, Out, O, PRI, PKI](arg, op, g), guda.LaunchConfig{
		Grid:      guda.Dim3{X: g.GridSize},
		Block:     guda.Dim3{X: g.BlockSize()},
		SharedMem: g.SharedMemSize,
		Stream:    r.stream,
	})
}

// kernel returns the per-thread body of a reduction.
//
// Thread t of a block works on output lane t%OutBlockSize and reduce lane
// t/OutBlockSize. For every output element the block visits, the threads of
// one output lane fold interleaved positions of the reduce domain, then
// combine their partials in shared memory by halving strides until reduce
// lane 0 holds the result.
func kernel[Acc, RI, KI, In, Out any, O Op[In, Acc, Out], PRI indexer.Iterator[RI], PKI indexer.Iterator[KI]](
	arg *Arg[In, Out], op O, g Geometry) guda.KernelFunc {
	blockSize := g.BlockSize()
	outBlock := int64(g.OutBlockSize)
	reduceBlock := int64(g.ReduceBlockSize)
	outTotal := arg.keptIx.TotalSize()
	in, inBase := arg.in.Data(), arg.in.Offset()
	out, outBase := arg.out.Data(), arg.out.Offset()
	cooperative := g.cooperative()

	return func(tid guda.ThreadID, _ ...interface{}) {
		t := tid.Linear()
		outLane := int64(t) % outBlock
		reduceLane := int64(t) / outBlock

		var shared []Acc
		if cooperative {
			shared = guda.SharedMemory[Acc](tid)
		}

		var kept KI
		keptIt := PKI(&kept)
		var red RI
		reduceIt := PRI(&red)
		keptIt.Init(arg.keptIx, int64(tid.BlockIdx.X)*outBlock+outLane, int64(tid.GridDim.X)*outBlock)
		reduceIt.Init(arg.reduceIx, reduceLane, reduceBlock)

		// Every thread of the block runs the same number of iterations, so
		// all of them reach each barrier, including on the tail.
		for ; keptIt.Raw()-outLane < outTotal; keptIt.Next() {
			accum := op.Identity()
			if keptIt.Ok() {
				inOff := inBase + keptIt.Offset(0)
				for reduceIt.Restart(reduceLane); reduceIt.Ok(); reduceIt.Next() {
					op.Reduce(op.MapIn(in[inOff+reduceIt.Offset(0)], reduceIt.Raw()), &accum)
				}
			}

			if cooperative {
				shared[t] = accum
				tid.SyncThreads()
				for stride := blockSize / 2; stride >= g.OutBlockSize; stride >>= 1 {
					if t < stride {
						op.Reduce(shared[t+stride], &shared[t])
					}
					tid.SyncThreads()
				}
				accum = shared[t]
				tid.SyncThreads()
			}

			if reduceLane == 0 && keptIt.Ok() {
				out[outBase+keptIt.Offset(1)] = op.MapOut(accum)
			}
		}
	}
}
