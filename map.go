package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/RoninZc/quadtiler/internal/quadtree"
	"github.com/RoninZc/quadtiler/internal/source"
	"github.com/RoninZc/quadtiler/internal/style"
)

// 瓦片缓存格式
const (
	StoreMBTiles = "mbtiles"
	StoreFile    = "file"
	StoreNone    = "none"
)

// TileMap 瓦片地图：瓦片源、本地缓存与样式
type TileMap struct {
	Name   string
	Info   source.Info
	Source source.Source

	// Image 和 Overlay 为 pbf 瓦片的混合渲染样式，可为空
	Image    *style.StyleSet
	Overlay  *style.StyleSet
	Settings style.Settings

	store source.Store
	cache *source.CachedSource
}

// NewTileMap 根据配置创建瓦片地图，失败时不返回部分结果
func NewTileMap(c *Conf, log logrus.FieldLogger) (*TileMap, error) {
	m := &TileMap{
		Name: c.Tm.Name,
		Info: source.Info{
			URL:     c.Tm.URL,
			Format:  c.Tm.Format,
			MinZoom: c.Tm.Min,
			MaxZoom: c.Tm.Max,
		},
		Settings: style.Settings{
			Scale:                c.Style.Scale,
			BaseDrawPriority:     c.Style.BaseDrawPriority,
			DrawPriorityPerLevel: c.Style.DrawPriorityPerLevel,
		},
	}

	if c.Style.Path != "" {
		s, err := style.Load(c.Style.Path)
		if err != nil {
			return nil, err
		}
		m.Image = s.Filter(style.ImageLayers)
		m.Overlay = s.Filter(style.OverlayLayers)
		log.Infof("style %s: %d image layers, %d overlay layers", c.Style.Path, len(m.Image.Layers), len(m.Overlay.Layers))
	}

	store, dir, err := openStore(c)
	if err != nil {
		return nil, err
	}
	m.Info.CacheDir = dir

	remote, err := source.NewHTTP(m.Info, nil, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	m.attach(remote, store, log)
	return m, nil
}

// attach 接入瓦片源，有缓存时先读缓存
func (m *TileMap) attach(remote source.Source, store source.Store, log logrus.FieldLogger) {
	m.Source = remote
	if store != nil {
		m.store = store
		m.cache = source.Cached(remote, store, log)
		m.Source = m.cache
	}
}

// Persist 拉取瓦片，有缓存时只有写入成功才算成功
func (m *TileMap) Persist(ctx context.Context, id quadtree.TileID) ([]byte, error) {
	if m.cache == nil {
		return m.Source.Fetch(ctx, id)
	}
	return m.cache.Persist(ctx, id)
}

// openStore 打开瓦片缓存，返回缓存位置
func openStore(c *Conf) (source.Store, string, error) {
	dir := c.Output.Directory
	switch c.Output.Format {
	case StoreMBTiles, "":
		file := filepath.Join(dir, fmt.Sprintf("%s.mbtiles", c.Tm.Name))
		s, err := source.NewMBTilesStore(file, c.Tm.Name, c.Tm.Format)
		if err != nil {
			return nil, "", err
		}
		return s, file, nil
	case StoreFile:
		path := filepath.Join(dir, c.Tm.Name)
		s, err := source.NewDirStore(path, c.Tm.Format)
		if err != nil {
			return nil, "", err
		}
		return s, path, nil
	case StoreNone:
		return nil, "", nil
	}
	return nil, "", fmt.Errorf("%w: unknown output format %q", source.ErrConfiguration, c.Output.Format)
}

// Hybrid 是否需要拆分矢量瓦片
func (m *TileMap) Hybrid() bool {
	return m.Info.Format == source.PBF && (m.Image != nil || m.Overlay != nil)
}

// Close 关闭缓存
func (m *TileMap) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
