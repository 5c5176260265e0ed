package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConf(t *testing.T) {
	c, err := loadConf("conf/conf.toml")
	require.NoError(t, err)

	assert.Equal(t, "osm", c.Tm.Name)
	assert.Equal(t, 18, c.Tm.Max)
	assert.Equal(t, StoreMBTiles, c.Output.Format)
	assert.Equal(t, "log", c.Output.LogDir)
	require.Len(t, c.Lrs, 1)
	assert.Equal(t, "./conf/region.geojson", c.Lrs[0].Geojson)
	require.Len(t, c.View.Steps, 3)
	assert.Equal(t, ViewStep{Lon: 4.9, Lat: 52.37, Zoom: 8.5, Cycles: 50}, c.View.Steps[1])
	assert.Equal(t, 32768.0, c.Sampling.MinImportance)
	assert.Equal(t, 1000, c.Style.DrawPriorityPerLevel)
}

func TestLoadConfDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "conf.toml")
	require.NoError(t, os.WriteFile(file, []byte("[tm]\nname = \"x\"\nurl = \"http://localhost/{z}/{x}/{y}.png\"\n"), 0o644))

	c, err := loadConf(file)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Task.Workers)
	assert.Equal(t, StoreMBTiles, c.Output.Format)
	assert.True(t, c.Output.OutputTerminal)
	assert.Equal(t, 14, c.Tm.Max)
	assert.Equal(t, "mercator", c.Sampling.Projection)
	assert.Equal(t, 256, c.Sampling.TileSize)
	assert.Equal(t, 0.5, c.Sampling.Falloff)
	assert.Equal(t, 32768.0, c.Sampling.MinImportance)
	assert.Equal(t, 8, c.Sampling.NumSimultaneousFetches)
	assert.Empty(t, c.View.Steps)
}

func TestLoadConfMissing(t *testing.T) {
	_, err := loadConf(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestCoordSystem(t *testing.T) {
	for name, want := range map[string]string{
		"":             "EPSG:3857",
		"Mercator":     "EPSG:3857",
		"plate-carree": "EPSG:4326",
		"EPSG:4326":    "EPSG:4326",
	} {
		cs, err := coordSystem(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, cs.Name(), name)
	}
	_, err := coordSystem("lambert")
	assert.Error(t, err)
}
