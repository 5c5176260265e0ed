// Package sampler decides which tiles of the quad tree to load for the
// current view. It walks the tree every update, requests the most important
// tiles from a loader and tells a display layer when tiles arrive or go.
//
// All state is owned by the update cycle. The loader talks back only through
// its completion channel, which is drained at the start of every cycle.
package sampler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RoninZc/quadtiler/internal/importance"
	"github.com/RoninZc/quadtiler/internal/loader"
	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// TileLoader is the part of loader.Loader the sampler depends on.
type TileLoader interface {
	Request(id quadtree.TileID, priority float64) loader.Handle
	Cancel(h loader.Handle) bool
	Completions() <-chan loader.Completion
}

// ViewpointProvider supplies the camera state for each update.
type ViewpointProvider interface {
	Viewpoint() importance.Viewpoint
}

// ViewpointFunc adapts a function to ViewpointProvider.
type ViewpointFunc func() importance.Viewpoint

// Viewpoint calls f.
func (f ViewpointFunc) Viewpoint() importance.Viewpoint {
	return f()
}

// Stats summarises one update cycle.
type Stats struct {
	Cycle      uint64
	Tracked    int
	Candidates int
	InFlight   int

	Requested     int
	Reprioritized int
	Canceled      int
	Loaded        int
	Failed        int
	Stale         int
	Evicted       int
}

func (s Stats) String() string {
	return fmt.Sprintf("cycle %d: tracked %d, candidates %d, in flight %d, requested %d, loaded %d, failed %d, evicted %d, stale %d",
		s.Cycle, s.Tracked, s.Candidates, s.InFlight, s.Requested, s.Loaded, s.Failed, s.Evicted, s.Stale)
}

// Sampler is the scheduling layer between a view and a tile loader.
type Sampler struct {
	cfg     Config
	est     importance.Estimator
	loader  TileLoader
	display Display
	log     logrus.FieldLogger

	mu    sync.Mutex
	nodes map[quadtree.TileID]*node
	cycle uint64
}

// New creates a sampler. On error no sampler is returned and the caller
// must not add the layer.
func New(cfg Config, est importance.Estimator, ld TileLoader, display Display, log logrus.FieldLogger) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if est == nil || ld == nil {
		return nil, fmt.Errorf("%w: estimator and loader are required", ErrConfiguration)
	}
	if display == nil {
		display = DisplayFuncs{}
	}
	return &Sampler{
		cfg:     cfg,
		est:     est,
		loader:  ld,
		display: display,
		log:     log.WithField("component", "sampler"),
		nodes:   make(map[quadtree.TileID]*node),
	}, nil
}

// Config returns the sampler configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Update runs one cycle against vp.
func (s *Sampler) Update(vp importance.Viewpoint) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycle++
	st := Stats{Cycle: s.cycle}

	s.drain(&st)
	cands, keep := s.collect(vp)
	for id, n := range s.nodes {
		if _, ok := keep[id]; !ok {
			s.evict(n, &st)
		}
	}
	s.schedule(cands, &st)

	st.Tracked = len(s.nodes)
	st.Candidates = len(cands)
	st.InFlight = s.inFlight()
	s.log.Debugf("%s", st)
	return st
}

// Clear evicts every tracked tile, canceling outstanding requests.
func (s *Sampler) Clear() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Cycle: s.cycle}
	for _, n := range s.nodes {
		s.evict(n, &st)
	}
	return st
}

// Run updates the sampler every interval until ctx is done.
func (s *Sampler) Run(ctx context.Context, vp ViewpointProvider, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Update(vp.Viewpoint())
		}
	}
}

// State returns the state of id; untracked tiles are Unloaded.
func (s *Sampler) State(id quadtree.TileID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		return n.state
	}
	return Unloaded
}

// Tracked returns the state of every tracked tile.
func (s *Sampler) Tracked() map[quadtree.TileID]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[quadtree.TileID]State, len(s.nodes))
	for id, n := range s.nodes {
		res[id] = n.state
	}
	return res
}

// drain applies every completion already waiting. Completions for tiles
// that were evicted or re-requested since are stale and dropped.
func (s *Sampler) drain(st *Stats) {
	for {
		select {
		case c := <-s.loader.Completions():
			s.complete(c, st)
		default:
			return
		}
	}
}

func (s *Sampler) complete(c loader.Completion, st *Stats) {
	n, ok := s.nodes[c.Handle.ID]
	if !ok || n.state != Loading || n.handle != c.Handle {
		st.Stale++
		s.log.WithField("tile", c.Handle.ID).Debugf("dropped stale completion")
		return
	}
	n.handle = loader.Handle{}

	if c.Err != nil {
		n.state = Failed
		n.failedCycle = s.cycle
		n.err = c.Err
		st.Failed++
		s.log.WithField("tile", n.id).Warnf("load failed: %s", c.Err)
		return
	}

	n.state = Loaded
	n.err = nil
	st.Loaded++
	s.display.AddTile(DisplayTile{
		ID:           n.id,
		Payload:      c.Payload,
		DrawPriority: s.cfg.DrawPriority(n.id.Level),
		EdgeMatching: s.cfg.EdgeMatching,
		CoverPoles:   s.cfg.CoverPoles,
	})
}

// collect walks the tree from the root, descending only through tiles that
// meet the importance threshold.
func (s *Sampler) collect(vp importance.Viewpoint) ([]candidate, map[quadtree.TileID]struct{}) {
	var cands []candidate
	keep := make(map[quadtree.TileID]struct{})

	stack := []quadtree.TileID{quadtree.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		imp := s.est.Importance(id, vp)
		if !(imp >= s.cfg.MinImportance) {
			continue
		}
		if id.Level >= s.cfg.MinZoom {
			cands = append(cands, candidate{id: id, importance: imp})
			keep[id] = struct{}{}
		}
		if id.Level < s.cfg.MaxZoom {
			children := id.Children()
			stack = append(stack, children[:]...)
		}
	}

	sort.Sort(byPriority(cands))
	return cands, keep
}

func (s *Sampler) evict(n *node, st *Stats) {
	switch n.state {
	case Loading:
		s.loader.Cancel(n.handle)
		st.Canceled++
	case Loaded:
		s.display.RemoveTile(n.id)
	}
	delete(s.nodes, n.id)
	st.Evicted++
}

// schedule issues requests for the best candidates until the fetch cap is
// reached. Requests already outstanding keep their slot.
func (s *Sampler) schedule(cands []candidate, st *Stats) {
	inFlight := s.inFlight()
	for _, c := range cands {
		n, ok := s.nodes[c.id]
		if !ok {
			n = &node{id: c.id, state: Unloaded}
			s.nodes[c.id] = n
		}
		n.importance = c.importance

		switch n.state {
		case Loading:
			if n.priority != c.importance {
				s.loader.Request(c.id, c.importance)
				n.priority = c.importance
				st.Reprioritized++
			}
		case Failed:
			if s.cfg.RetryCycles == 0 || s.cycle-n.failedCycle < uint64(s.cfg.RetryCycles) {
				continue
			}
			fallthrough
		case Unloaded:
			if inFlight >= s.cfg.NumSimultaneousFetches {
				continue
			}
			n.handle = s.loader.Request(c.id, c.importance)
			n.priority = c.importance
			n.state = Loading
			inFlight++
			st.Requested++
		}
	}
}

func (s *Sampler) inFlight() int {
	count := 0
	for _, n := range s.nodes {
		if n.state == Loading {
			count++
		}
	}
	return count
}
