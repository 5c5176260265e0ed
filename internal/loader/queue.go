package loader

import (
	"context"

	"github.com/RoninZc/quadtiler/internal/quadtree"
)

// request is one outstanding fetch. index is its heap slot, -1 once a
// worker has taken it.
type request struct {
	id       quadtree.TileID
	seq      uint64
	priority float64
	index    int
	canceled bool
	cancel   context.CancelFunc
}

func (r *request) handle() Handle {
	return Handle{ID: r.id, Seq: r.seq}
}

// requestQueue is a container/heap of pending requests, highest priority
// first and FIFO among equals.
type requestQueue []*request

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *requestQueue) Push(x any) {
	r := x.(*request)
	r.index = len(*q)
	*q = append(*q, r)
}

func (q *requestQueue) Pop() any {
	old := *q
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*q = old[:n-1]
	return r
}
