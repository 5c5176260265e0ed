// Package loader runs tile fetches on a bounded worker pool and hands the
// results back through a single completion channel.
package loader

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/RoninZc/quadtiler/internal/quadtree"
	"github.com/RoninZc/quadtiler/internal/source"
)

// DefaultWorkers is the fetch concurrency when Options.Workers is zero.
const DefaultWorkers = 8

// ErrConfiguration is returned by New for unusable options.
var ErrConfiguration = errors.New("loader: invalid configuration")

// Handle identifies one request. A later request for the same tile gets a
// different Seq.
type Handle struct {
	ID  quadtree.TileID
	Seq uint64
}

// Valid reports whether h was issued by a loader.
func (h Handle) Valid() bool {
	return h.Seq != 0
}

// Completion is the outcome of a request.
type Completion struct {
	Handle  Handle
	Payload []byte
	Err     error
}

// Options configures a Loader.
type Options struct {
	// Workers caps simultaneous fetches.
	Workers int
	// QueueSize is the completion channel buffer, 4*Workers when zero.
	QueueSize int
}

// Loader fetches tiles from a source. At most one request per tile is
// outstanding; asking again only updates its priority.
type Loader struct {
	src     source.Source
	log     logrus.FieldLogger
	workers int

	mu      sync.Mutex
	queue   requestQueue
	active  map[quadtree.TileID]*request
	seq     uint64
	running int
	// unwinding counts canceled fetches still running per tile. A new
	// request for such a tile waits in the queue until they return.
	unwinding map[quadtree.TileID]int

	wake        chan struct{}
	completions chan Completion

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a loader. Call Start before expecting completions.
func New(src source.Source, opts Options, log logrus.FieldLogger) (*Loader, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrConfiguration)
	}
	if opts.Workers < 0 || opts.QueueSize < 0 {
		return nil, fmt.Errorf("%w: workers %d, queue %d", ErrConfiguration, opts.Workers, opts.QueueSize)
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = opts.Workers * 4
	}
	return &Loader{
		src:         src,
		log:         log.WithField("component", "loader"),
		workers:     opts.Workers,
		active:      make(map[quadtree.TileID]*request),
		unwinding:   make(map[quadtree.TileID]int),
		wake:        make(chan struct{}, 1),
		completions: make(chan Completion, opts.QueueSize),
	}, nil
}

// Start launches the workers. They stop when ctx is done or Close is called.
func (l *Loader) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.group != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < l.workers; i++ {
		l.group.Go(func() error {
			return l.work(ctx)
		})
	}
	l.log.Infof("loader started with %d workers", l.workers)
}

// Close stops the workers and waits for them.
func (l *Loader) Close() error {
	l.mu.Lock()
	cancel, group := l.cancel, l.group
	l.mu.Unlock()
	if group == nil {
		return nil
	}
	cancel()
	err := group.Wait()
	l.log.Infof("loader stopped")
	return err
}

// Completions delivers finished requests. It has a single consumer.
func (l *Loader) Completions() <-chan Completion {
	return l.completions
}

// Request queues a fetch for id or reprioritises the outstanding one.
func (l *Loader) Request(id quadtree.TileID, priority float64) Handle {
	l.mu.Lock()
	if r, ok := l.active[id]; ok {
		if r.priority != priority {
			r.priority = priority
			if r.index >= 0 {
				heap.Fix(&l.queue, r.index)
			}
		}
		l.mu.Unlock()
		return r.handle()
	}
	l.seq++
	r := &request{id: id, seq: l.seq, priority: priority, index: -1}
	heap.Push(&l.queue, r)
	l.active[id] = r
	l.mu.Unlock()

	l.signal()
	return r.handle()
}

// Cancel drops the request behind h. Unknown or superseded handles are
// ignored. A running fetch has its context canceled and its result is
// never delivered.
func (l *Loader) Cancel(h Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.active[h.ID]
	if !ok || r.seq != h.Seq {
		return false
	}
	delete(l.active, h.ID)
	r.canceled = true
	if r.index >= 0 {
		heap.Remove(&l.queue, r.index)
	} else if r.cancel != nil {
		l.unwinding[r.id]++
		r.cancel()
	}
	return true
}

// Outstanding is the number of queued plus running requests.
func (l *Loader) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Queued is the number of requests waiting for a worker.
func (l *Loader) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// InFlight is the number of fetches currently running.
func (l *Loader) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loader) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loader) work(ctx context.Context) error {
	for {
		r, rctx := l.next(ctx)
		if r == nil {
			return nil
		}
		l.fetch(ctx, rctx, r)
	}
}

// popReady takes the best queued request whose tile has no canceled fetch
// still running. Caller holds mu.
func (l *Loader) popReady() *request {
	var held []*request
	var r *request
	for len(l.queue) > 0 {
		c := heap.Pop(&l.queue).(*request)
		if l.unwinding[c.id] > 0 {
			held = append(held, c)
			continue
		}
		r = c
		break
	}
	for _, c := range held {
		heap.Push(&l.queue, c)
	}
	return r
}

// next blocks until a request is available or ctx is done.
func (l *Loader) next(ctx context.Context) (*request, context.Context) {
	for {
		l.mu.Lock()
		if r := l.popReady(); r != nil {
			rctx, cancel := context.WithCancel(ctx)
			r.cancel = cancel
			l.running++
			more := len(l.queue) > 0
			l.mu.Unlock()
			if more {
				l.signal()
			}
			return r, rctx
		}
		l.mu.Unlock()

		select {
		case <-l.wake:
		case <-ctx.Done():
			return nil, nil
		}
	}
}

func (l *Loader) fetch(ctx, rctx context.Context, r *request) {
	data, err := l.safeFetch(rctx, r.id)
	r.cancel()

	l.mu.Lock()
	l.running--
	canceled := r.canceled
	if canceled {
		l.unwinding[r.id]--
		if l.unwinding[r.id] <= 0 {
			delete(l.unwinding, r.id)
		}
	} else {
		delete(l.active, r.id)
	}
	l.mu.Unlock()

	if canceled {
		l.log.WithField("tile", r.id).Debugf("dropped canceled fetch")
		l.signal()
		return
	}
	if err != nil {
		l.log.WithField("tile", r.id).Debugf("fetch failed: %s", err)
	}

	select {
	case l.completions <- Completion{Handle: r.handle(), Payload: data, Err: err}:
	case <-ctx.Done():
	}
}

func (l *Loader) safeFetch(ctx context.Context, id quadtree.TileID) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			l.log.WithField("tile", id).Errorf("fetch panic: %v\n%s", p, debug.Stack())
			err = fmt.Errorf("fetch %s panicked: %v", id, p)
		}
	}()
	return l.src.Fetch(ctx, id)
}
