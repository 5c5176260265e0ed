package importance

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DefaultTileSize is the pixel size of a tile rendered at its own zoom.
const DefaultTileSize = 256

// Viewpoint is the camera state for one frame. The caller owns it and may
// change it between sampler updates.
type Viewpoint struct {
	// Center of the view in lon/lat.
	Center orb.Point
	// Zoom may be fractional while the camera animates.
	Zoom float64
	// Viewport size in pixels.
	Width  int
	Height int
	// TileSize defaults to DefaultTileSize when zero.
	TileSize int
}

// NewViewpoint creates a viewpoint with the default tile size.
func NewViewpoint(lon, lat, zoom float64, width, height int) Viewpoint {
	return Viewpoint{
		Center:   orb.Point{lon, lat},
		Zoom:     zoom,
		Width:    width,
		Height:   height,
		TileSize: DefaultTileSize,
	}
}

func (v Viewpoint) tileSize() float64 {
	if v.TileSize <= 0 {
		return DefaultTileSize
	}
	return float64(v.TileSize)
}

// WorldSize is the edge of the whole projected world in pixels at v.Zoom.
func (v Viewpoint) WorldSize() float64 {
	return v.tileSize() * math.Pow(2, v.Zoom)
}

// Empty reports whether the viewport has no area or no usable position.
func (v Viewpoint) Empty() bool {
	return v.Width <= 0 || v.Height <= 0 || !finite(v.Center.Lon()) || !finite(v.Center.Lat()) || !finite(v.Zoom)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (v Viewpoint) String() string {
	return fmt.Sprintf("(%.5f, %.5f) z%.2f %dx%d", v.Center.Lon(), v.Center.Lat(), v.Zoom, v.Width, v.Height)
}
