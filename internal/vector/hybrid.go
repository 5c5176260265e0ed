// Package vector decodes vector tile payloads and splits their layers
// between the raster image half and the vector overlay half of a hybrid
// style.
package vector

import (
	"bytes"
	"fmt"

	"github.com/paulmach/orb/encoding/mvt"

	"github.com/RoninZc/quadtiler/internal/quadtree"
	"github.com/RoninZc/quadtiler/internal/style"
)

// Hybrid is a decoded tile split by style. A source layer drawn by both
// styles appears in both halves.
type Hybrid struct {
	ID      quadtree.TileID
	Image   mvt.Layers
	Overlay mvt.Layers
	// Unstyled lists source layers neither style draws at this zoom.
	Unstyled []string
}

// Decode parses a raw or gzipped MVT payload.
func Decode(payload []byte) (mvt.Layers, error) {
	if bytes.HasPrefix(payload, []byte{0x1f, 0x8b}) {
		return mvt.UnmarshalGzipped(payload)
	}
	return mvt.Unmarshal(payload)
}

// Split decodes payload and assigns each source layer to the style halves
// drawing it at the tile's level. Feature geometry is projected to lon/lat.
func Split(id quadtree.TileID, payload []byte, image, overlay *style.StyleSet) (*Hybrid, error) {
	layers, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", id, err)
	}
	layers.ProjectToWGS84(id.Maptile())

	zoom := float64(id.Level)
	h := &Hybrid{ID: id}
	for _, l := range layers {
		styled := false
		if image != nil && len(image.LayersFor(l.Name, zoom)) > 0 {
			h.Image = append(h.Image, l)
			styled = true
		}
		if overlay != nil && len(overlay.LayersFor(l.Name, zoom)) > 0 {
			h.Overlay = append(h.Overlay, l)
			styled = true
		}
		if !styled {
			h.Unstyled = append(h.Unstyled, l.Name)
		}
	}
	return h, nil
}

// FeatureCounts returns the number of features in each half.
func (h *Hybrid) FeatureCounts() (image, overlay int) {
	for _, l := range h.Image {
		image += len(l.Features)
	}
	for _, l := range h.Overlay {
		overlay += len(l.Features)
	}
	return image, overlay
}
