package sampler

import (
	"errors"
	"fmt"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// ErrConfiguration is returned by New when the layer cannot be set up.
var ErrConfiguration = errors.New("sampler: invalid configuration")

// Config controls which tiles the sampler loads.
type Config struct {
	MinZoom int
	MaxZoom int
	// MinImportance is the score a tile needs to be loaded or descended.
	MinImportance float64
	// NumSimultaneousFetches caps requests outstanding at the loader.
	NumSimultaneousFetches int

	BaseDrawPriority     int
	DrawPriorityPerLevel int
	EdgeMatching         bool
	CoverPoles           bool

	// RetryCycles is how many cycles a failed tile waits before it is
	// requested again. Zero keeps it failed for as long as it is tracked.
	RetryCycles int
}

// DefaultConfig matches a 256px XYZ source between zoom 0 and 14.
func DefaultConfig() Config {
	return Config{
		MinZoom:                0,
		MaxZoom:                14,
		MinImportance:          256 * 256 / 2,
		NumSimultaneousFetches: 8,
		DrawPriorityPerLevel:   1,
	}
}

// Validate reports configuration problems wrapped in ErrConfiguration.
func (c Config) Validate() error {
	if c.MinZoom < 0 || c.MaxZoom < c.MinZoom || c.MaxZoom > quadtree.MaxLevel {
		return fmt.Errorf("%w: zoom range %d..%d", ErrConfiguration, c.MinZoom, c.MaxZoom)
	}
	if c.MinImportance <= 0 {
		return fmt.Errorf("%w: importance threshold must be positive, got %g", ErrConfiguration, c.MinImportance)
	}
	if c.NumSimultaneousFetches <= 0 {
		return fmt.Errorf("%w: simultaneous fetches must be positive, got %d", ErrConfiguration, c.NumSimultaneousFetches)
	}
	if c.RetryCycles < 0 {
		return fmt.Errorf("%w: negative retry cycles", ErrConfiguration)
	}
	return nil
}

// DrawPriority returns the draw priority of tiles at level.
func (c Config) DrawPriority(level int) int {
	return c.BaseDrawPriority + level*c.DrawPriorityPerLevel
}
