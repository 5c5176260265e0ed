// Package source fetches raw tile payloads for the loader.
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// Constants representing tile formats
const (
	GZIP string = "gzip" // encoding = gzip
	ZLIB        = "zlib" // encoding = deflate
	PNG         = "png"
	JPG         = "jpg"
	PBF         = "pbf"
	WEBP        = "webp"
)

var (
	// ErrConfiguration marks setup failures. Callers must abandon the layer.
	ErrConfiguration = errors.New("source: invalid configuration")
	// ErrOutOfRange is returned for tiles outside the source zoom range.
	ErrOutOfRange = errors.New("source: tile out of range")
	// ErrEmptyTile is returned for zero byte payloads.
	ErrEmptyTile = errors.New("source: empty tile")
	// ErrNotCached is returned by a Store that does not hold the tile.
	ErrNotCached = errors.New("source: tile not cached")
	// ErrCacheWrite is returned by CachedSource.Persist when a fetched
	// payload could not be stored.
	ErrCacheWrite = errors.New("source: cache write failed")
)

// Source returns the payload of one tile.
type Source interface {
	Fetch(ctx context.Context, id quadtree.TileID) ([]byte, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, id quadtree.TileID) ([]byte, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, id quadtree.TileID) ([]byte, error) {
	return f(ctx, id)
}

// Info describes where tiles live.
type Info struct {
	// URL template with {z}, {x} and {y} or {-y} for TMS rows.
	URL string
	// Format is the payload extension, one of the format constants.
	Format  string
	MinZoom int
	MaxZoom int
	// CacheDir holds persisted payloads. Empty disables caching.
	CacheDir string
}

// Validate reports configuration problems wrapped in ErrConfiguration.
func (i Info) Validate() error {
	if i.URL == "" {
		return fmt.Errorf("%w: empty url template", ErrConfiguration)
	}
	for _, k := range []string{"{z}", "{x}"} {
		if !strings.Contains(i.URL, k) {
			return fmt.Errorf("%w: url template %q lacks %s", ErrConfiguration, i.URL, k)
		}
	}
	if !strings.Contains(i.URL, "{y}") && !strings.Contains(i.URL, "{-y}") {
		return fmt.Errorf("%w: url template %q lacks {y}", ErrConfiguration, i.URL)
	}
	if i.MinZoom < 0 || i.MaxZoom < i.MinZoom || i.MaxZoom > quadtree.MaxLevel {
		return fmt.Errorf("%w: zoom range %d..%d", ErrConfiguration, i.MinZoom, i.MaxZoom)
	}
	return nil
}

// InRange reports whether id lies within the zoom range.
func (i Info) InRange(id quadtree.TileID) bool {
	return id.Valid() && id.Level >= i.MinZoom && id.Level <= i.MaxZoom
}

// TileURL expands the template for id.
func (i Info) TileURL(id quadtree.TileID) string {
	url := strings.Replace(i.URL, "{x}", strconv.Itoa(id.X), -1)
	url = strings.Replace(url, "{y}", strconv.Itoa(id.Y), -1)
	url = strings.Replace(url, "{-y}", strconv.Itoa(id.Dim()-1-id.Y), -1)
	url = strings.Replace(url, "{z}", strconv.Itoa(id.Level), -1)
	return url
}

// Ext is the file extension for payloads, defaulting to png.
func (i Info) Ext() string {
	if i.Format == "" {
		return PNG
	}
	return i.Format
}

func isGzipped(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	if !isGzipped(data) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
