package quadtree

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// MaxLevel is the deepest level a TileID may address.
const MaxLevel = 30

// TileID addresses one node of the quad tree.
type TileID struct {
	Level int
	X     int
	Y     int
}

// Root is the single level 0 tile.
var Root = TileID{}

// New builds a TileID.
func New(level, x, y int) TileID {
	return TileID{Level: level, X: x, Y: y}
}

// FromMaptile converts an orb tile.
func FromMaptile(t maptile.Tile) TileID {
	return TileID{Level: int(t.Z), X: int(t.X), Y: int(t.Y)}
}

// Maptile converts to an orb tile. The id must be valid.
func (t TileID) Maptile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Level))
}

// Valid reports whether 0 <= x,y < 2^level.
func (t TileID) Valid() bool {
	if t.Level < 0 || t.Level > MaxLevel {
		return false
	}
	n := 1 << uint(t.Level)
	return t.X >= 0 && t.Y >= 0 && t.X < n && t.Y < n
}

// Dim is the number of tiles along one axis at the id's level.
func (t TileID) Dim() int {
	return 1 << uint(t.Level)
}

func (t TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Level, t.X, t.Y)
}

// Children returns the four tiles one level down in NW, NE, SW, SE order.
func (t TileID) Children() [4]TileID {
	l, x, y := t.Level+1, t.X<<1, t.Y<<1
	return [4]TileID{
		{l, x, y},
		{l, x + 1, y},
		{l, x, y + 1},
		{l, x + 1, y + 1},
	}
}

// Parent returns the tile one level up. The root has no parent.
func (t TileID) Parent() (TileID, bool) {
	if t.Level <= 0 || !t.Valid() {
		return TileID{}, false
	}
	return TileID{t.Level - 1, t.X >> 1, t.Y >> 1}, true
}

// Ancestors lists every tile above t, root first.
func (t TileID) Ancestors() []TileID {
	if !t.Valid() {
		return nil
	}
	res := make([]TileID, t.Level)
	cur := t
	for i := t.Level - 1; i >= 0; i-- {
		cur, _ = cur.Parent()
		res[i] = cur
	}
	return res
}

// Contains reports whether o is t or lies below t.
func (t TileID) Contains(o TileID) bool {
	if o.Level < t.Level {
		return false
	}
	shift := uint(o.Level - t.Level)
	return o.X>>shift == t.X && o.Y>>shift == t.Y
}

// Neighbors returns the same level tiles to the right, left, below and above,
// skipping those outside the grid.
func (t TileID) Neighbors() []TileID {
	n := t.Dim()
	res := make([]TileID, 0, 4)
	if t.X+1 < n {
		res = append(res, TileID{t.Level, t.X + 1, t.Y})
	}
	if t.X-1 >= 0 {
		res = append(res, TileID{t.Level, t.X - 1, t.Y})
	}
	if t.Y+1 < n {
		res = append(res, TileID{t.Level, t.X, t.Y + 1})
	}
	if t.Y-1 >= 0 {
		res = append(res, TileID{t.Level, t.X, t.Y - 1})
	}
	return res
}

// Less orders tiles by level, then row, then column.
func (t TileID) Less(o TileID) bool {
	if t.Level != o.Level {
		return t.Level < o.Level
	}
	if t.Y != o.Y {
		return t.Y < o.Y
	}
	return t.X < o.X
}
