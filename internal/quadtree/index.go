// Package quadtree addresses tiles of a quad tree cut over a coordinate
// system and answers geometric questions about them.
package quadtree

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/RoninZc/quadtiler/internal/coord"
)

// Index resolves tile bounds against a coordinate system. Row 0 is the
// northern edge, matching XYZ tile servers.
type Index struct {
	cs     coord.System
	extent orb.Bound
}

// NewIndex returns an index over cs.
func NewIndex(cs coord.System) *Index {
	return &Index{cs: cs, extent: cs.Extent()}
}

// System returns the coordinate system the index was built on.
func (idx *Index) System() coord.System {
	return idx.cs
}

// ProjectedBounds is the tile rectangle in projected units.
func (idx *Index) ProjectedBounds(t TileID) orb.Bound {
	n := float64(t.Dim())
	w := (idx.extent.Max.X() - idx.extent.Min.X()) / n
	h := (idx.extent.Max.Y() - idx.extent.Min.Y()) / n
	minX := idx.extent.Min.X() + float64(t.X)*w
	maxY := idx.extent.Max.Y() - float64(t.Y)*h
	return orb.Bound{
		Min: orb.Point{minX, maxY - h},
		Max: orb.Point{minX + w, maxY},
	}
}

// Bounds is the tile rectangle in lon/lat.
func (idx *Index) Bounds(t TileID) orb.Bound {
	pb := idx.ProjectedBounds(t)
	return orb.Bound{
		Min: idx.cs.Unproject(pb.Min),
		Max: idx.cs.Unproject(pb.Max),
	}
}

// TileAt returns the tile at level containing the geographic point.
func (idx *Index) TileAt(geo orb.Point, level int) TileID {
	p := idx.cs.Project(geo)
	n := 1 << uint(level)
	fx := (p.X() - idx.extent.Min.X()) / (idx.extent.Max.X() - idx.extent.Min.X())
	fy := (idx.extent.Max.Y() - p.Y()) / (idx.extent.Max.Y() - idx.extent.Min.Y())
	return TileID{
		Level: level,
		X:     clamp(int(math.Floor(fx*float64(n))), 0, n-1),
		Y:     clamp(int(math.Floor(fy*float64(n))), 0, n-1),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
