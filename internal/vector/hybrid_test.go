package vector

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoninZc/quadtiler/internal/quadtree"
	"github.com/RoninZc/quadtiler/internal/style"
)

const testStyle = `{
  "version": 8,
  "sources": {"omt": {"type": "vector"}},
  "layers": [
    {"id": "background", "type": "background"},
    {"id": "water", "type": "fill", "source": "omt", "source-layer": "water"},
    {"id": "water-edge", "type": "line", "source": "omt", "source-layer": "water"},
    {"id": "roads", "type": "line", "source": "omt", "source-layer": "transportation"},
    {"id": "labels", "type": "symbol", "source": "omt", "source-layer": "place", "minzoom": 12}
  ]
}`

// amsterdam is a zoom 10 tile over the city.
var amsterdam = quadtree.New(10, 527, 339)

func encodeTile(t *testing.T, gzipped bool) []byte {
	t.Helper()
	b := amsterdam.Maptile().Bound()
	c := b.Center()
	dx, dy := (b.Max.X()-b.Min.X())/8, (b.Max.Y()-b.Min.Y())/8

	water := geojson.NewFeatureCollection()
	water.Append(geojson.NewFeature(orb.Polygon{orb.Ring{
		{c.X() - dx, c.Y() - dy},
		{c.X() + dx, c.Y() - dy},
		{c.X() + dx, c.Y() + dy},
		{c.X() - dx, c.Y() + dy},
		{c.X() - dx, c.Y() - dy},
	}}))
	roads := geojson.NewFeatureCollection()
	roads.Append(geojson.NewFeature(orb.LineString{{c.X() - dx, c.Y()}, {c.X() + dx, c.Y() + dy}}))
	roads.Append(geojson.NewFeature(orb.LineString{{c.X(), c.Y() - dy}, {c.X(), c.Y() + dy}}))
	places := geojson.NewFeatureCollection()
	places.Append(geojson.NewFeature(c))

	layers := mvt.NewLayers(map[string]*geojson.FeatureCollection{
		"water":          water,
		"transportation": roads,
		"place":          places,
	})
	layers.ProjectToTile(amsterdam.Maptile())

	var data []byte
	var err error
	if gzipped {
		data, err = mvt.MarshalGzipped(layers)
	} else {
		data, err = mvt.Marshal(layers)
	}
	require.NoError(t, err)
	return data
}

func styles(t *testing.T) (*style.StyleSet, *style.StyleSet) {
	t.Helper()
	s, err := style.Parse([]byte(testStyle))
	require.NoError(t, err)
	return s.Filter(style.ImageLayers), s.Filter(style.OverlayLayers)
}

func names(layers mvt.Layers) []string {
	res := make([]string, 0, len(layers))
	for _, l := range layers {
		res = append(res, l.Name)
	}
	return res
}

func TestSplit(t *testing.T) {
	image, overlay := styles(t)
	for _, gz := range []bool{false, true} {
		h, err := Split(amsterdam, encodeTile(t, gz), image, overlay)
		require.NoError(t, err)

		assert.Equal(t, []string{"water"}, names(h.Image))
		assert.ElementsMatch(t, []string{"water", "transportation"}, names(h.Overlay))
		// labels only start at zoom 12
		assert.Equal(t, []string{"place"}, h.Unstyled)

		ni, no := h.FeatureCounts()
		assert.Equal(t, 1, ni)
		assert.Equal(t, 3, no)

		// geometry is back in lon/lat inside the tile
		bound := amsterdam.Maptile().Bound().Pad(1e-3)
		for _, f := range h.Image[0].Features {
			assert.True(t, bound.Contains(f.Geometry.Bound().Center()))
		}
	}
}

func TestSplitNilStyle(t *testing.T) {
	image, _ := styles(t)
	h, err := Split(amsterdam, encodeTile(t, false), image, nil)
	require.NoError(t, err)
	assert.Empty(t, h.Overlay)
	assert.ElementsMatch(t, []string{"transportation", "place"}, h.Unstyled)
}

func TestSplitGarbage(t *testing.T) {
	_, err := Split(amsterdam, []byte{0x1f, 0x8b, 0x00}, nil, nil)
	assert.Error(t, err)
}
