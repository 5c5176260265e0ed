package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// Store persists tile payloads.
type Store interface {
	// Get returns ErrNotCached when the tile is absent.
	Get(id quadtree.TileID) ([]byte, error)
	Put(id quadtree.TileID, data []byte) error
	Close() error
}

// DirStore keeps tiles as dir/z/x/y.ext files.
type DirStore struct {
	dir string
	ext string
}

// NewDirStore creates the cache directory if needed.
func NewDirStore(dir, ext string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty cache directory", ErrConfiguration)
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: create cache directory: %v", ErrConfiguration, err)
	}
	if ext == "" {
		ext = PNG
	}
	return &DirStore{dir: dir, ext: ext}, nil
}

func (s *DirStore) path(id quadtree.TileID) string {
	return filepath.Join(s.dir, fmt.Sprintf(`%d`, id.Level), fmt.Sprintf(`%d`, id.X), fmt.Sprintf(`%d.%s`, id.Y, s.ext))
}

// Get implements Store.
func (s *DirStore) Get(id quadtree.TileID) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotCached
	}
	return data, err
}

// Put implements Store.
func (s *DirStore) Put(id quadtree.TileID, data []byte) error {
	name := s.path(id)
	if err := os.MkdirAll(filepath.Dir(name), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0644)
}

// Has reports whether the tile file exists.
func (s *DirStore) Has(id quadtree.TileID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Close implements Store.
func (s *DirStore) Close() error {
	return nil
}

// CachedSource reads through a Store before hitting the next source.
type CachedSource struct {
	next  Source
	store Store
	log   logrus.FieldLogger
}

// Cached wraps next with store.
func Cached(next Source, store Store, log logrus.FieldLogger) *CachedSource {
	return &CachedSource{next: next, store: store, log: log.WithField("component", "tile-cache")}
}

// Fetch implements Source. Failing to write the cache is logged, the
// fetched payload is still returned.
func (c *CachedSource) Fetch(ctx context.Context, id quadtree.TileID) ([]byte, error) {
	return c.fetch(ctx, id, false)
}

// Persist is Fetch for callers that need the tile on disk. It fails with
// ErrCacheWrite when the store rejects the payload.
func (c *CachedSource) Persist(ctx context.Context, id quadtree.TileID) ([]byte, error) {
	return c.fetch(ctx, id, true)
}

func (c *CachedSource) fetch(ctx context.Context, id quadtree.TileID, strict bool) ([]byte, error) {
	data, err := c.store.Get(id)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrNotCached) {
		c.log.WithField("tile", id).Warnf("read cache: %s", err)
	}

	data, err = c.next.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(id, data); err != nil {
		if strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrCacheWrite, id, err)
		}
		c.log.WithField("tile", id).Warnf("write cache: %s", err)
	}
	return data, nil
}

// Close closes the underlying store.
func (c *CachedSource) Close() error {
	return c.store.Close()
}
