package quadtree

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoninZc/quadtiler/internal/coord"
)

func TestParentOfChildren(t *testing.T) {
	tiles := []TileID{
		Root,
		New(1, 1, 0),
		New(5, 17, 9),
		New(14, 8191, 0),
	}
	for _, tile := range tiles {
		t.Run(tile.String(), func(t *testing.T) {
			for i, c := range tile.Children() {
				require.True(t, c.Valid(), "child %d", i)
				p, ok := c.Parent()
				require.True(t, ok)
				assert.Equal(t, tile, p)
				assert.True(t, tile.Contains(c))
			}
		})
	}
}

func TestParentOfRoot(t *testing.T) {
	_, ok := Root.Parent()
	assert.False(t, ok)

	_, ok = New(2, 4, 0).Parent()
	assert.False(t, ok, "invalid tile has no parent")
}

func TestValid(t *testing.T) {
	tests := []struct {
		tile TileID
		want bool
	}{
		{Root, true},
		{New(0, 1, 0), false},
		{New(3, 7, 7), true},
		{New(3, 8, 0), false},
		{New(3, -1, 0), false},
		{New(-1, 0, 0), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tile.Valid(), tt.tile.String())
	}
}

func TestAncestors(t *testing.T) {
	got := New(3, 5, 2).Ancestors()
	assert.Equal(t, []TileID{Root, New(1, 1, 0), New(2, 2, 1)}, got)
	assert.Empty(t, Root.Ancestors())
}

func TestNeighbors(t *testing.T) {
	assert.Empty(t, Root.Neighbors())
	assert.Equal(t, []TileID{New(2, 2, 1), New(2, 0, 1), New(2, 1, 2), New(2, 1, 0)}, New(2, 1, 1).Neighbors())
	assert.Equal(t, []TileID{New(1, 1, 0), New(1, 0, 1)}, New(1, 0, 0).Neighbors())
}

func TestMaptileConversion(t *testing.T) {
	id := New(9, 263, 170)
	mt := id.Maptile()
	assert.Equal(t, id, FromMaptile(mt))

	// orb orders children differently, compare as sets
	want := map[TileID]bool{}
	for _, c := range mt.Children() {
		want[FromMaptile(c)] = true
	}
	for _, c := range id.Children() {
		assert.True(t, want[c], c.String())
	}
}

func TestMercatorBoundsMatchMaptile(t *testing.T) {
	idx := NewIndex(coord.SphericalMercator())
	for _, id := range []TileID{Root, New(1, 0, 1), New(4, 9, 5), New(10, 527, 339)} {
		t.Run(id.String(), func(t *testing.T) {
			got := idx.Bounds(id)
			want := id.Maptile().Bound()
			assert.InDelta(t, want.Min.Lon(), got.Min.Lon(), 1e-6)
			assert.InDelta(t, want.Min.Lat(), got.Min.Lat(), 1e-6)
			assert.InDelta(t, want.Max.Lon(), got.Max.Lon(), 1e-6)
			assert.InDelta(t, want.Max.Lat(), got.Max.Lat(), 1e-6)
		})
	}
}

func TestPlateCarreeBounds(t *testing.T) {
	idx := NewIndex(coord.PlateCarree())
	assert.Equal(t, orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}, idx.Bounds(Root))
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{180, 90}}, idx.Bounds(New(1, 1, 0)))
}

func TestTileAt(t *testing.T) {
	idx := NewIndex(coord.SphericalMercator())
	amsterdam := orb.Point{4.90, 52.37}
	for z := 0; z <= 14; z++ {
		t.Run(fmt.Sprintf("zoom %d", z), func(t *testing.T) {
			got := idx.TileAt(amsterdam, z)
			want := FromMaptile(maptile.At(amsterdam, maptile.Zoom(z)))
			assert.Equal(t, want, got)
			assert.True(t, idx.Bounds(got).Contains(amsterdam))
		})
	}

	// far corners clamp into the grid
	assert.Equal(t, New(2, 3, 3), idx.TileAt(orb.Point{180, -90}, 2))
}
