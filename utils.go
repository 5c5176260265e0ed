package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/RoninZc/quadtiler/internal/coord"
)

func loadCollection(path string) (orb.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal feature: %w", err)
	}

	var collection orb.Collection
	for _, f := range fc.Features {
		collection = append(collection, f.Geometry)
	}

	return collection, nil
}

// coordSystem 根据配置名选择投影
func coordSystem(name string) (coord.System, error) {
	switch strings.ToLower(name) {
	case "", "mercator", "epsg:3857":
		return coord.SphericalMercator(), nil
	case "plate-carree", "geographic", "epsg:4326":
		return coord.PlateCarree(), nil
	}
	return nil, fmt.Errorf("unknown projection %q", name)
}
