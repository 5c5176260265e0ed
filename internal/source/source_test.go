package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestInfoValidate(t *testing.T) {
	tests := []struct {
		name string
		info Info
		ok   bool
	}{
		{"xyz", Info{URL: "http://h/{z}/{x}/{y}.png", MaxZoom: 14}, true},
		{"tms", Info{URL: "http://h/{z}/{x}/{-y}.png", MaxZoom: 14}, true},
		{"empty", Info{}, false},
		{"missing y", Info{URL: "http://h/{z}/{x}.png", MaxZoom: 3}, false},
		{"inverted zoom", Info{URL: "http://h/{z}/{x}/{y}", MinZoom: 5, MaxZoom: 2}, false},
		{"too deep", Info{URL: "http://h/{z}/{x}/{y}", MaxZoom: 31}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrConfiguration)
			}
		})
	}
}

func TestTileURL(t *testing.T) {
	info := Info{URL: "http://h/{z}/{x}/{y}.png?tms={-y}"}
	assert.Equal(t, "http://h/3/5/1.png?tms=6", info.TileURL(quadtree.New(3, 5, 1)))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/2/1/1.png":
			w.Write([]byte("tile-2-1-1"))
		case "/2/0/0.png":
			// empty body
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := NewHTTP(Info{URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 2}, nil, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	data, err := src.Fetch(ctx, quadtree.New(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "tile-2-1-1", string(data))

	_, err = src.Fetch(ctx, quadtree.New(2, 0, 0))
	assert.ErrorIs(t, err, ErrEmptyTile)

	_, err = src.Fetch(ctx, quadtree.New(2, 3, 3))
	assert.ErrorContains(t, err, "status code 404")

	_, err = src.Fetch(ctx, quadtree.New(3, 0, 0))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestHTTPSourceCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	src, err := NewHTTP(Info{URL: srv.URL + "/{z}/{x}/{y}", MaxZoom: 2}, nil, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx, quadtree.Root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPInvalid(t *testing.T) {
	src, err := NewHTTP(Info{}, nil, testLogger())
	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestStores(t *testing.T) {
	dir := t.TempDir()
	dirStore, err := NewDirStore(filepath.Join(dir, "tiles"), PNG)
	require.NoError(t, err)
	mbStore, err := NewMBTilesStore(filepath.Join(dir, "cache.mbtiles"), "test", PBF)
	require.NoError(t, err)

	for name, store := range map[string]Store{"dir": dirStore, "mbtiles": mbStore} {
		t.Run(name, func(t *testing.T) {
			id := quadtree.New(4, 3, 9)
			_, err := store.Get(id)
			assert.ErrorIs(t, err, ErrNotCached)

			require.NoError(t, store.Put(id, []byte("payload")))
			data, err := store.Get(id)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(data))

			require.NoError(t, store.Put(id, []byte("replaced")))
			data, err = store.Get(id)
			require.NoError(t, err)
			assert.Equal(t, "replaced", string(data))
			assert.NoError(t, store.Close())
		})
	}
	assert.FileExists(t, filepath.Join(dir, "tiles", "4", "3", "9.png"))
}

func TestMBTilesRowsAreTMS(t *testing.T) {
	store, err := NewMBTilesStore(filepath.Join(t.TempDir(), "t.mbtiles"), "test", PNG)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(quadtree.New(2, 1, 0), []byte("x")))
	var row int
	require.NoError(t, store.db.QueryRow("SELECT tile_row FROM tiles").Scan(&row))
	assert.Equal(t, 3, row)

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCachedSource(t *testing.T) {
	var calls int32
	next := Func(func(ctx context.Context, id quadtree.TileID) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		if id.Level > 3 {
			return nil, errors.New("boom")
		}
		return []byte(fmt.Sprintf("tile %s", id)), nil
	})
	store, err := NewDirStore(t.TempDir(), PNG)
	require.NoError(t, err)
	src := Cached(next, store, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		data, err := src.Fetch(ctx, quadtree.New(2, 1, 2))
		require.NoError(t, err)
		assert.Equal(t, "tile 2/1/2", string(data))
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, store.Has(quadtree.New(2, 1, 2)))

	_, err = src.Fetch(ctx, quadtree.New(4, 0, 0))
	assert.EqualError(t, err, "boom")
	assert.False(t, store.Has(quadtree.New(4, 0, 0)))
	assert.NoError(t, src.Close())
}

// brokenStore never holds anything and refuses writes.
type brokenStore struct{}

func (brokenStore) Get(id quadtree.TileID) ([]byte, error) { return nil, ErrNotCached }
func (brokenStore) Put(id quadtree.TileID, data []byte) error { return errors.New("disk full") }
func (brokenStore) Close() error { return nil }

func TestCachedSourcePersist(t *testing.T) {
	next := Func(func(ctx context.Context, id quadtree.TileID) ([]byte, error) {
		return []byte("tile"), nil
	})
	src := Cached(next, brokenStore{}, testLogger())
	ctx := context.Background()

	// readers still get the payload
	data, err := src.Fetch(ctx, quadtree.Root)
	require.NoError(t, err)
	assert.Equal(t, "tile", string(data))

	_, err = src.Persist(ctx, quadtree.Root)
	assert.ErrorIs(t, err, ErrCacheWrite)
	assert.ErrorContains(t, err, "disk full")

	store, err := NewDirStore(t.TempDir(), PNG)
	require.NoError(t, err)
	data, err = Cached(next, store, testLogger()).Persist(ctx, quadtree.Root)
	require.NoError(t, err)
	assert.Equal(t, "tile", string(data))
	assert.True(t, store.Has(quadtree.Root))
}

func TestPBFPayloadIndependentOfCache(t *testing.T) {
	raw := []byte("\x1a\x05layer")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	info := Info{URL: srv.URL + "/{z}/{x}/{y}.pbf", Format: PBF, MaxZoom: 14}
	remote, err := NewHTTP(info, nil, testLogger())
	require.NoError(t, err)

	for name, open := range map[string]func(dir string) (Store, error){
		"dir": func(dir string) (Store, error) { return NewDirStore(dir, PBF) },
		"mbtiles": func(dir string) (Store, error) {
			return NewMBTilesStore(filepath.Join(dir, "t.mbtiles"), "t", PBF)
		},
	} {
		t.Run(name, func(t *testing.T) {
			store, err := open(t.TempDir())
			require.NoError(t, err)
			src := Cached(remote, store, testLogger())
			defer src.Close()

			miss, err := src.Fetch(context.Background(), quadtree.New(1, 0, 1))
			require.NoError(t, err)
			hit, err := src.Fetch(context.Background(), quadtree.New(1, 0, 1))
			require.NoError(t, err)
			assert.Equal(t, raw, miss)
			assert.Equal(t, raw, hit)
		})
	}
}
