package source

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

const mbtilesSchema = `
CREATE TABLE IF NOT EXISTS metadata (name TEXT PRIMARY KEY, value TEXT);
CREATE TABLE IF NOT EXISTS tiles (
	zoom_level INTEGER NOT NULL,
	tile_column INTEGER NOT NULL,
	tile_row INTEGER NOT NULL,
	tile_data BLOB NOT NULL,
	PRIMARY KEY (zoom_level, tile_column, tile_row)
);`

// MBTilesStore keeps tiles in an MBTiles sqlite file. Rows are stored in
// TMS order and pbf payloads are gzipped.
type MBTilesStore struct {
	db     *sql.DB
	format string
}

// NewMBTilesStore opens or creates the file and writes metadata.
func NewMBTilesStore(file, name, format string) (*MBTilesStore, error) {
	if file == "" {
		return nil, fmt.Errorf("%w: empty mbtiles path", ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfiguration, file, err)
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(mbtilesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init %s: %v", ErrConfiguration, file, err)
	}
	if format == "" {
		format = PNG
	}
	s := &MBTilesStore{db: db, format: format}
	for k, v := range map[string]string{"name": name, "format": format, "type": "baselayer"} {
		if _, err := db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: write metadata: %v", ErrConfiguration, err)
		}
	}
	return s, nil
}

// Get implements Store.
func (s *MBTilesStore) Get(id quadtree.TileID) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		id.Level, id.X, id.Dim()-1-id.Y).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	if s.format == PBF {
		return gunzip(data)
	}
	return data, nil
}

// Put implements Store.
func (s *MBTilesStore) Put(id quadtree.TileID, data []byte) error {
	if s.format == PBF && !isGzipped(data) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)",
		id.Level, id.X, id.Dim()-1-id.Y, data)
	return err
}

// Count returns the number of stored tiles.
func (s *MBTilesStore) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n)
	return n, err
}

// Close implements Store.
func (s *MBTilesStore) Close() error {
	return s.db.Close()
}
