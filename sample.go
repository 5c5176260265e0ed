package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RoninZc/quadtiler/internal/importance"
	"github.com/RoninZc/quadtiler/internal/loader"
	"github.com/RoninZc/quadtiler/internal/quadtree"
	"github.com/RoninZc/quadtiler/internal/sampler"
	"github.com/RoninZc/quadtiler/internal/vector"
)

func InitSample() {
	start := time.Now()

	tm, err := NewTileMap(conf, log)
	if err != nil {
		log.Errorf("setup tile map %s error, details: %s", conf.Tm.Name, err)
		return
	}
	SafeExitInst.Register(func() { tm.Close() })

	layer, err := NewSampleLayer(conf, tm, log)
	if err != nil {
		log.Errorf("setup sampling layer error, details: %s", err)
		return
	}

	interval := time.Duration(conf.Sampling.Interval) * time.Millisecond
	if err := layer.Run(SafeExitInst.Context(), conf.View.Steps, interval); err != nil {
		log.Errorf("sampling stopped, details: %s", err)
	}

	log.Printf("%.3fs finished, %d tiles on display...", time.Since(start).Seconds(), layer.Display.Shown())
	layer.Close()
}

// SampleLayer 按视点采样并加载瓦片
type SampleLayer struct {
	Map     *TileMap
	Index   *quadtree.Index
	Loader  *loader.Loader
	Sampler *sampler.Sampler
	Display *HybridDisplay

	width    int
	height   int
	tileSize int
	log      logrus.FieldLogger
}

// NewSampleLayer 组装索引、重要度估计、加载器和采样器
func NewSampleLayer(c *Conf, m *TileMap, log logrus.FieldLogger) (*SampleLayer, error) {
	cs, err := coordSystem(c.Sampling.Projection)
	if err != nil {
		return nil, err
	}
	idx := quadtree.NewIndex(cs)

	ld, err := loader.New(m.Source, loader.Options{Workers: c.Sampling.NumSimultaneousFetches}, log)
	if err != nil {
		return nil, err
	}

	// 瓦片画在样式图层下面
	cfg := sampler.Config{
		MinZoom:                m.Info.MinZoom,
		MaxZoom:                m.Info.MaxZoom,
		MinImportance:          c.Sampling.MinImportance,
		NumSimultaneousFetches: c.Sampling.NumSimultaneousFetches,
		BaseDrawPriority:       c.Style.BaseDrawPriority - 1,
		DrawPriorityPerLevel:   c.Style.DrawPriorityPerLevel,
		EdgeMatching:           c.Sampling.Globe,
		CoverPoles:             c.Sampling.Globe,
		RetryCycles:            c.Sampling.RetryCycles,
	}
	display := NewHybridDisplay(m, log)
	smp, err := sampler.New(cfg, importance.NewScreenSpace(idx, c.Sampling.Falloff), ld, display, log)
	if err != nil {
		return nil, err
	}

	return &SampleLayer{
		Map:      m,
		Index:    idx,
		Loader:   ld,
		Sampler:  smp,
		Display:  display,
		width:    c.View.Width,
		height:   c.View.Height,
		tileSize: c.Sampling.TileSize,
		log:      log.WithField("component", "sample"),
	}, nil
}

// Run 沿视点路径运行采样，路径走完或 ctx 结束时返回
func (l *SampleLayer) Run(ctx context.Context, steps []ViewStep, interval time.Duration) error {
	if len(steps) == 0 {
		return errors.New("empty view path")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	l.Loader.Start(ctx)
	defer l.Loader.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	path := newViewPath(steps, l.width, l.height, l.tileSize)
	provider := sampler.ViewpointFunc(func() importance.Viewpoint {
		vp, changed, ok := path.next()
		if !ok {
			cancel()
		}
		if changed {
			l.log.Infof("view %s", vp)
		}
		return vp
	})

	err := l.Sampler.Run(ctx, provider, interval)
	l.log.Infof("sampling done, %d tiles tracked", len(l.Sampler.Tracked()))
	if errors.Is(err, context.Canceled) && !path.done() {
		return err
	}
	return nil
}

// Close 撤下所有瓦片并取消未完成的请求
func (l *SampleLayer) Close() {
	st := l.Sampler.Clear()
	l.log.Infof("layer cleared after %d cycles, %d evicted, %d canceled", st.Cycle, st.Evicted, st.Canceled)
}

// viewPath 依次给出每段的视点，每段保持 Cycles 个周期
type viewPath struct {
	steps    []ViewStep
	width    int
	height   int
	tileSize int
	step     int
	cycle    int
}

func newViewPath(steps []ViewStep, width, height, tileSize int) *viewPath {
	return &viewPath{steps: steps, width: width, height: height, tileSize: tileSize}
}

func (p *viewPath) viewpoint(s ViewStep) importance.Viewpoint {
	vp := importance.NewViewpoint(s.Lon, s.Lat, s.Zoom, p.width, p.height)
	if p.tileSize > 0 {
		vp.TileSize = p.tileSize
	}
	return vp
}

// next 返回当前视点，changed 表示进入新的一段，ok 为 false 时路径已走完
func (p *viewPath) next() (vp importance.Viewpoint, changed, ok bool) {
	for p.step < len(p.steps) {
		s := p.steps[p.step]
		cycles := s.Cycles
		if cycles <= 0 {
			cycles = 1
		}
		if p.cycle < cycles {
			changed = p.cycle == 0
			p.cycle++
			return p.viewpoint(s), changed, true
		}
		p.step++
		p.cycle = 0
	}
	return p.viewpoint(p.steps[len(p.steps)-1]), false, false
}

func (p *viewPath) done() bool {
	return p.step >= len(p.steps)
}

// HybridDisplay 记录显示的瓦片，pbf 瓦片按样式拆成底图和叠加两部分
type HybridDisplay struct {
	*sampler.LogDisplay
	m       *TileMap
	log     logrus.FieldLogger
	hybrids map[quadtree.TileID]*vector.Hybrid
}

func NewHybridDisplay(m *TileMap, log logrus.FieldLogger) *HybridDisplay {
	return &HybridDisplay{
		LogDisplay: sampler.NewLogDisplay(log),
		m:          m,
		log:        log.WithField("component", "hybrid"),
		hybrids:    make(map[quadtree.TileID]*vector.Hybrid),
	}
}

// AddTile implements sampler.Display.
func (d *HybridDisplay) AddTile(t sampler.DisplayTile) {
	d.LogDisplay.AddTile(t)
	if !d.m.Hybrid() {
		return
	}
	h, err := vector.Split(t.ID, t.Payload, d.m.Image, d.m.Overlay)
	if err != nil {
		d.log.WithField("tile", t.ID).Warnf("split vector tile error, details: %s", err)
		return
	}
	d.hybrids[t.ID] = h
	ni, no := h.FeatureCounts()
	d.log.WithField("tile", t.ID).Debugf("image %d features, overlay %d features in %d layers from priority %d, unstyled %v",
		ni, no, len(h.Overlay), d.m.Settings.DrawPriority(t.ID.Level, 0), h.Unstyled)
}

// RemoveTile implements sampler.Display.
func (d *HybridDisplay) RemoveTile(id quadtree.TileID) {
	d.LogDisplay.RemoveTile(id)
	delete(d.hybrids, id)
}

// Hybrid 返回已拆分的瓦片
func (d *HybridDisplay) Hybrid(id quadtree.TileID) (*vector.Hybrid, bool) {
	h, ok := d.hybrids[id]
	return h, ok
}
