package sampler

import (
	"github.com/sirupsen/logrus"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// DisplayTile is handed to the display layer once a tile has loaded.
type DisplayTile struct {
	ID      quadtree.TileID
	Payload []byte
	// DrawPriority grows with level so finer tiles draw over coarser ones.
	DrawPriority int
	// EdgeMatching and CoverPoles are set for globe views.
	EdgeMatching bool
	CoverPoles   bool
}

// Display consumes loaded tiles. It is called from the sampler's update
// cycle and must not call back into the sampler.
type Display interface {
	AddTile(t DisplayTile)
	RemoveTile(id quadtree.TileID)
}

// DisplayFuncs adapts a pair of functions to Display. Nil funcs are skipped.
type DisplayFuncs struct {
	Add    func(t DisplayTile)
	Remove func(id quadtree.TileID)
}

// AddTile implements Display.
func (d DisplayFuncs) AddTile(t DisplayTile) {
	if d.Add != nil {
		d.Add(t)
	}
}

// RemoveTile implements Display.
func (d DisplayFuncs) RemoveTile(id quadtree.TileID) {
	if d.Remove != nil {
		d.Remove(id)
	}
}

// LogDisplay logs tiles and keeps the set currently shown.
type LogDisplay struct {
	log   logrus.FieldLogger
	shown map[quadtree.TileID]DisplayTile
}

// NewLogDisplay returns a display that only logs.
func NewLogDisplay(log logrus.FieldLogger) *LogDisplay {
	return &LogDisplay{
		log:   log.WithField("component", "display"),
		shown: make(map[quadtree.TileID]DisplayTile),
	}
}

// AddTile implements Display.
func (d *LogDisplay) AddTile(t DisplayTile) {
	d.shown[t.ID] = t
	d.log.WithField("tile", t.ID).Infof("add tile, priority %d, %.2f kb", t.DrawPriority, float32(len(t.Payload))/1024.0)
}

// RemoveTile implements Display.
func (d *LogDisplay) RemoveTile(id quadtree.TileID) {
	delete(d.shown, id)
	d.log.WithField("tile", id).Infof("remove tile")
}

// Shown returns the number of tiles on display.
func (d *LogDisplay) Shown() int {
	return len(d.shown)
}
