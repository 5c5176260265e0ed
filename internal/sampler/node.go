package sampler

import (
	"github.com/RoninZc/quadtiler/internal/loader"
	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// State is the load state of a tracked tile.
type State int

// Tile states. A tile the sampler does not track is Unloaded.
const (
	Unloaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// node is owned by the sampler. The loader only sees its handle.
type node struct {
	id         quadtree.TileID
	state      State
	importance float64

	handle   loader.Handle
	priority float64

	failedCycle uint64
	err         error
}

// candidate is a tile selected in the current cycle.
type candidate struct {
	id         quadtree.TileID
	importance float64
}

// byPriority sorts candidates by importance, coarser levels first on ties,
// then row and column so the order is total.
type byPriority []candidate

func (c byPriority) Len() int      { return len(c) }
func (c byPriority) Swap(i, j int) { c[i], c[j] = c[j], c[i] }
func (c byPriority) Less(i, j int) bool {
	if c[i].importance != c[j].importance {
		return c[i].importance > c[j].importance
	}
	return c[i].id.Less(c[j].id)
}
