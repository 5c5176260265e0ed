package style

// Predicate selects style layers by their raw attributes.
type Predicate interface {
	Matches(attrs map[string]any) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(attrs map[string]any) bool

// Matches calls f.
func (f PredicateFunc) Matches(attrs map[string]any) bool {
	return f(attrs)
}

// TypeIn matches layers whose "type" is one of types.
func TypeIn(types ...string) Predicate {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return PredicateFunc(func(attrs map[string]any) bool {
		t, ok := attrs["type"].(string)
		return ok && set[t]
	})
}

// AttrEquals matches layers where attrs[key] == value.
func AttrEquals(key string, value any) Predicate {
	return PredicateFunc(func(attrs map[string]any) bool {
		v, ok := attrs[key]
		return ok && v == value
	})
}

// Not inverts p. Layers without a type never match, so Not(TypeIn(...))
// does not pick up malformed layers either.
func Not(p Predicate) Predicate {
	return PredicateFunc(func(attrs map[string]any) bool {
		if _, ok := attrs["type"].(string); !ok {
			return false
		}
		return !p.Matches(attrs)
	})
}

// And matches when every predicate does.
func And(ps ...Predicate) Predicate {
	return PredicateFunc(func(attrs map[string]any) bool {
		for _, p := range ps {
			if !p.Matches(attrs) {
				return false
			}
		}
		return true
	})
}

// Or matches when any predicate does.
func Or(ps ...Predicate) Predicate {
	return PredicateFunc(func(attrs map[string]any) bool {
		for _, p := range ps {
			if p.Matches(attrs) {
				return true
			}
		}
		return false
	})
}

var (
	// ImageLayers are the polygon layers pre-rendered into raster tiles.
	ImageLayers = TypeIn("background", "fill")
	// OverlayLayers are drawn as vectors on top of the image.
	OverlayLayers = Not(ImageLayers)
)
