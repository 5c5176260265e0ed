// Package coord maps geographic coordinates into the projected space the
// tile pyramid is cut from.
package coord

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MaxMercatorLatitude is the latitude where web mercator becomes square.
const MaxMercatorLatitude = 85.05112877980659

// mercatorEdge is half the width of the EPSG:3857 world in meters.
const mercatorEdge = 20037508.342789244

// System is a coordinate system the level 0 tile covers.
type System interface {
	// Name identifies the system, e.g. "EPSG:3857".
	Name() string
	// Extent is the projected rectangle covered by the root tile.
	Extent() orb.Bound
	// Project converts lon/lat into the projected space.
	Project(geo orb.Point) orb.Point
	// Unproject converts a projected point back to lon/lat.
	Unproject(p orb.Point) orb.Point
}

type sphericalMercator struct{}

// SphericalMercator returns the web standard spherical mercator system.
func SphericalMercator() System {
	return sphericalMercator{}
}

func (sphericalMercator) Name() string { return "EPSG:3857" }

func (sphericalMercator) Extent() orb.Bound {
	return orb.Bound{
		Min: orb.Point{-mercatorEdge, -mercatorEdge},
		Max: orb.Point{mercatorEdge, mercatorEdge},
	}
}

func (sphericalMercator) Project(geo orb.Point) orb.Point {
	geo = orb.Point{ClampLongitude(geo.Lon()), ClampLatitude(geo.Lat())}
	return project.WGS84.ToMercator(geo)
}

func (sphericalMercator) Unproject(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

type plateCarree struct{}

// PlateCarree returns the equirectangular lon/lat system.
func PlateCarree() System {
	return plateCarree{}
}

func (plateCarree) Name() string { return "EPSG:4326" }

func (plateCarree) Extent() orb.Bound {
	return orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
}

func (plateCarree) Project(geo orb.Point) orb.Point {
	return orb.Point{ClampLongitude(geo.Lon()), math.Max(-90, math.Min(90, geo.Lat()))}
}

func (plateCarree) Unproject(p orb.Point) orb.Point {
	return p
}

// ClampLatitude keeps lat inside the valid mercator range.
func ClampLatitude(lat float64) float64 {
	if lat > MaxMercatorLatitude {
		return MaxMercatorLatitude
	}
	if lat < -MaxMercatorLatitude {
		return -MaxMercatorLatitude
	}
	return lat
}

// ClampLongitude wraps lon into [-180, 180]. Non finite input yields NaN.
func ClampLongitude(lon float64) float64 {
	if math.IsInf(lon, 0) || math.IsNaN(lon) {
		return math.NaN()
	}
	return math.Remainder(lon, 360)
}
