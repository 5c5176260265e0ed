// Package importance scores tiles by how much they matter to the current
// view. The sampler loads tiles in descending score order.
package importance

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// DefaultFalloff is the distance falloff of NewScreenSpace.
const DefaultFalloff = 0.5

// Estimator computes a non negative priority for a tile.
type Estimator interface {
	Importance(t quadtree.TileID, vp Viewpoint) float64
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(t quadtree.TileID, vp Viewpoint) float64

// Importance calls f.
func (f EstimatorFunc) Importance(t quadtree.TileID, vp Viewpoint) float64 {
	return f(t, vp)
}

// ScreenSpace scores a tile by its projected pixel area, damped by the
// distance between the view center and the nearest point of the tile.
// Tiles outside the viewport score 0.
type ScreenSpace struct {
	idx     *quadtree.Index
	falloff float64
}

// NewScreenSpace returns a ScreenSpace estimator. A negative falloff is
// treated as zero.
func NewScreenSpace(idx *quadtree.Index, falloff float64) *ScreenSpace {
	if falloff < 0 {
		falloff = 0
	}
	return &ScreenSpace{idx: idx, falloff: falloff}
}

// Importance implements Estimator. The world repeats horizontally, so the
// score is the best over the viewport and its copies one world to either side.
func (s *ScreenSpace) Importance(t quadtree.TileID, vp Viewpoint) float64 {
	if vp.Empty() || !t.Valid() {
		return 0
	}
	tile := s.PixelBounds(t, vp)
	halfDiag := math.Hypot(float64(vp.Width)/2, float64(vp.Height)/2)

	best := 0.0
	for _, view := range s.Frusta(vp) {
		best = math.Max(best, s.score(tile, view, halfDiag))
	}
	return best
}

func (s *ScreenSpace) score(tile, view orb.Bound, halfDiag float64) float64 {
	ox := math.Min(tile.Max.X(), view.Max.X()) - math.Max(tile.Min.X(), view.Min.X())
	oy := math.Min(tile.Max.Y(), view.Max.Y()) - math.Max(tile.Min.Y(), view.Min.Y())
	if ox <= 0 || oy <= 0 {
		return 0
	}

	area := (tile.Max.X() - tile.Min.X()) * (tile.Max.Y() - tile.Min.Y())
	if s.falloff == 0 {
		return area
	}

	c := view.Center()
	dx := math.Max(0, math.Max(tile.Min.X()-c.X(), c.X()-tile.Max.X()))
	dy := math.Max(0, math.Max(tile.Min.Y()-c.Y(), c.Y()-tile.Max.Y()))
	d := math.Hypot(dx, dy) / halfDiag

	return area / (1 + s.falloff*d*d)
}

// PixelBounds places a tile in world pixel space at the viewpoint zoom, y
// growing southward.
func (s *ScreenSpace) PixelBounds(t quadtree.TileID, vp Viewpoint) orb.Bound {
	ext := s.idx.System().Extent()
	pb := s.idx.ProjectedBounds(t)
	sx, sy := s.scale(vp)
	return orb.Bound{
		Min: orb.Point{(pb.Min.X() - ext.Min.X()) * sx, (ext.Max.Y() - pb.Max.Y()) * sy},
		Max: orb.Point{(pb.Max.X() - ext.Min.X()) * sx, (ext.Max.Y() - pb.Min.Y()) * sy},
	}
}

// Frustum is the viewport rectangle in world pixel space.
func (s *ScreenSpace) Frustum(vp Viewpoint) orb.Bound {
	ext := s.idx.System().Extent()
	p := s.idx.System().Project(vp.Center)
	sx, sy := s.scale(vp)
	cx := (p.X() - ext.Min.X()) * sx
	cy := (ext.Max.Y() - p.Y()) * sy
	hw, hh := float64(vp.Width)/2, float64(vp.Height)/2
	return orb.Bound{
		Min: orb.Point{cx - hw, cy - hh},
		Max: orb.Point{cx + hw, cy + hh},
	}
}

// Frusta returns the viewport and its copies shifted one world width west
// and east, for views that straddle the antimeridian.
func (s *ScreenSpace) Frusta(vp Viewpoint) []orb.Bound {
	view := s.Frustum(vp)
	w := vp.WorldSize()
	return []orb.Bound{
		view,
		{Min: orb.Point{view.Min.X() - w, view.Min.Y()}, Max: orb.Point{view.Max.X() - w, view.Max.Y()}},
		{Min: orb.Point{view.Min.X() + w, view.Min.Y()}, Max: orb.Point{view.Max.X() + w, view.Max.Y()}},
	}
}

func (s *ScreenSpace) scale(vp Viewpoint) (float64, float64) {
	ext := s.idx.System().Extent()
	world := vp.WorldSize()
	return world / (ext.Max.X() - ext.Min.X()), world / (ext.Max.Y() - ext.Min.Y())
}
