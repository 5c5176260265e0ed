package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

func TestBreakPoint(t *testing.T) {
	dir := t.TempDir()
	bp, err := NewBreakPoint(dir, "osm", 4)
	require.NoError(t, err)
	go bp.Start()

	a, b := quadtree.New(3, 1, 2), quadtree.New(4, 5, 6)
	assert.False(t, bp.IsSuccessed(a))
	bp.SetSuccessed(a)
	bp.SetSuccessed(b)
	bp.BreakPointSafeFun()
	// closed records are ignored, closing twice is fine
	bp.SetSuccessed(quadtree.New(1, 1, 1))
	bp.BreakPointSafeFun()

	data, err := os.ReadFile(filepath.Join(dir, "osm.log"))
	require.NoError(t, err)
	assert.Equal(t, "1-2-3\n5-6-4\n", string(data))

	reopened, err := NewBreakPoint(dir, "osm", 4)
	require.NoError(t, err)
	defer reopened.file.Close()
	assert.True(t, reopened.IsSuccessed(a))
	assert.True(t, reopened.IsSuccessed(b))
	assert.False(t, reopened.IsSuccessed(quadtree.New(1, 1, 1)))
}
