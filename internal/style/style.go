// Package style reads the layer list of a Mapbox GL style and splits it with
// predicates over the raw layer attributes. Paint and layout properties are
// kept verbatim; nothing here evaluates them.
package style

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrConfiguration marks a missing or unusable style.
var ErrConfiguration = errors.New("style: invalid style")

// DefaultMaxZoom is the maxzoom of layers that do not declare one.
const DefaultMaxZoom = 24

// Kind is the rendering type of a layer.
type Kind int

// Layer kinds. Circle layers draw points.
const (
	Unknown Kind = iota
	Background
	Fill
	Line
	Symbol
	Circle
	Raster
	FillExtrusion
	Hillshade
	Heatmap
)

var kindNames = map[string]Kind{
	"background":     Background,
	"fill":           Fill,
	"line":           Line,
	"symbol":         Symbol,
	"circle":         Circle,
	"raster":         Raster,
	"fill-extrusion": FillExtrusion,
	"hillshade":      Hillshade,
	"heatmap":        Heatmap,
}

// ParseKind maps a style "type" value to a Kind.
func ParseKind(s string) Kind {
	return kindNames[s]
}

func (k Kind) String() string {
	for name, v := range kindNames {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// Source is a style data source.
type Source struct {
	Type    string   `json:"type"`
	URL     string   `json:"url"`
	Tiles   []string `json:"tiles"`
	MinZoom int      `json:"minzoom"`
	MaxZoom int      `json:"maxzoom"`
}

// Layer is one style rule.
type Layer struct {
	ID          string
	Kind        Kind
	Source      string
	SourceLayer string
	MinZoom     float64
	MaxZoom     float64
	// Attrs holds the layer object as decoded from JSON.
	Attrs map[string]any
}

// VisibleAt reports whether the layer applies at zoom.
func (l Layer) VisibleAt(zoom float64) bool {
	return zoom >= l.MinZoom && zoom < l.MaxZoom
}

// StyleSet is a parsed style.
type StyleSet struct {
	Version int
	Name    string
	Sources map[string]Source
	Layers  []Layer
}

type rawStyle struct {
	Version int               `json:"version"`
	Name    string            `json:"name"`
	Sources map[string]Source `json:"sources"`
	Layers  []map[string]any  `json:"layers"`
}

// Load reads and parses a style file.
func Load(path string) (*StyleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return Parse(data)
}

// Parse decodes a style document.
func Parse(data []byte) (*StyleSet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrConfiguration)
	}
	var raw rawStyle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if raw.Version != 8 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrConfiguration, raw.Version)
	}

	s := &StyleSet{
		Version: raw.Version,
		Name:    raw.Name,
		Sources: raw.Sources,
		Layers:  make([]Layer, 0, len(raw.Layers)),
	}
	seen := make(map[string]bool, len(raw.Layers))
	for i, attrs := range raw.Layers {
		l, err := parseLayer(attrs)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrConfiguration, i, err)
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("%w: duplicate layer id %q", ErrConfiguration, l.ID)
		}
		seen[l.ID] = true
		if l.Kind != Background && l.Source != "" {
			if _, ok := s.Sources[l.Source]; !ok {
				return nil, fmt.Errorf("%w: layer %q references unknown source %q", ErrConfiguration, l.ID, l.Source)
			}
		}
		s.Layers = append(s.Layers, l)
	}
	return s, nil
}

func parseLayer(attrs map[string]any) (Layer, error) {
	l := Layer{MaxZoom: DefaultMaxZoom, Attrs: attrs}

	id, _ := attrs["id"].(string)
	if id == "" {
		return l, errors.New("missing id")
	}
	l.ID = id

	typ, _ := attrs["type"].(string)
	if l.Kind = ParseKind(typ); l.Kind == Unknown {
		return l, fmt.Errorf("layer %q has unknown type %q", id, typ)
	}
	l.Source, _ = attrs["source"].(string)
	l.SourceLayer, _ = attrs["source-layer"].(string)
	if v, ok := attrs["minzoom"].(float64); ok {
		l.MinZoom = v
	}
	if v, ok := attrs["maxzoom"].(float64); ok {
		l.MaxZoom = v
	}
	return l, nil
}

// Filter returns a style holding the layers p matches, in order.
func (s *StyleSet) Filter(p Predicate) *StyleSet {
	res := &StyleSet{Version: s.Version, Name: s.Name, Sources: s.Sources}
	for _, l := range s.Layers {
		if p.Matches(l.Attrs) {
			res.Layers = append(res.Layers, l)
		}
	}
	return res
}

// LayersFor returns the layers drawing sourceLayer at zoom.
func (s *StyleSet) LayersFor(sourceLayer string, zoom float64) []Layer {
	var res []Layer
	for _, l := range s.Layers {
		if l.SourceLayer == sourceLayer && l.VisibleAt(zoom) {
			res = append(res, l)
		}
	}
	return res
}

// HasBackground reports whether a background layer is present.
func (s *StyleSet) HasBackground() bool {
	for _, l := range s.Layers {
		if l.Kind == Background {
			return true
		}
	}
	return false
}

// Settings mirror the draw order knobs of a vector style.
type Settings struct {
	// Scale is the device pixel ratio.
	Scale                float64
	BaseDrawPriority     int
	DrawPriorityPerLevel int
}

// DrawPriority orders layer index within level so later layers draw on top.
func (st Settings) DrawPriority(level, index int) int {
	return st.BaseDrawPriority + level*st.DrawPriorityPerLevel + index
}
