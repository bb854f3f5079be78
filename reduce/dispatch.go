package reduce

import (
	"github.com/LynnColeArt/gudareduce/indexer"
)

// dispatch launches the kernel instantiation matching the ranks of the
// squashed domains. Reduce ranks 1 to 4 with a scalar or rank-1 output get
// cursors with the rank baked in; everything else walks with IterN.
func dispatch[Acc, In, Out any, O Op[In, Acc, Out]](r *Reducer, arg *Arg[In, Out], op O, g Geometry) error {
	switch reduceRank, keptRank := arg.reduceIx.Ndim(), arg.keptIx.Ndim(); {
	case reduceRank == 1 && keptRank == 0:
		return launch[Acc, indexer.Iter1, indexer.Iter0](r, arg, op, g)
	case reduceRank == 2 && keptRank == 0:
		return launch[Acc, indexer.Iter2, indexer.Iter0](r, arg, op, g)
	case reduceRank == 3 && keptRank == 0:
		return launch[Acc, indexer.Iter3, indexer.Iter0](r, arg, op, g)
	case reduceRank == 4 && keptRank == 0:
		return launch[Acc, indexer.Iter4, indexer.Iter0](r, arg, op, g)
	case reduceRank == 1 && keptRank == 1:
		return launch[Acc, indexer.Iter1, indexer.Iter1](r, arg, op, g)
	case reduceRank == 2 && keptRank == 1:
		return launch[Acc, indexer.Iter2, indexer.Iter1](r, arg, op, g)
	case reduceRank == 3 && keptRank == 1:
		return launch[Acc, indexer.Iter3, indexer.Iter1](r, arg, op, g)
	case reduceRank == 4 && keptRank == 1:
		return launch[Acc, indexer.Iter4, indexer.Iter1](r, arg, op, g)
	default:
		return launch[Acc, indexer.IterN, indexer.IterN](r, arg, op, g)
	}
}
