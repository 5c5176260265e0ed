package main

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// Layer 级别&瓦片数
type Layer struct {
	Zoom       int
	Count      int64
	Collection orb.Collection
	Tiles      []quadtree.TileID
}

func (l Layer) String() string {
	return fmt.Sprintf("zoom %d (%d tiles)", l.Zoom, l.Count)
}

// NewLayer 计算范围在 zoom 级别覆盖的瓦片
func NewLayer(c orb.Collection, zoom int) (Layer, error) {
	set, err := tilecover.Collection(c, maptile.Zoom(zoom))
	if err != nil {
		return Layer{}, fmt.Errorf("cover zoom %d: %w", zoom, err)
	}
	return Layer{
		Zoom:       zoom,
		Count:      int64(len(set)),
		Collection: c,
		Tiles:      sortedTiles(set),
	}, nil
}

// 按行列排序，保证下载顺序稳定
func sortedTiles(set maptile.Set) []quadtree.TileID {
	res := make([]quadtree.TileID, 0, len(set))
	for t := range set {
		res = append(res, quadtree.FromMaptile(t))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Less(res[j]) })
	return res
}
