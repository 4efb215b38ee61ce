// Package queue provides the min-heap used to order eviction candidates.
package queue

// Item is an eviction candidate in the queue.
type Item struct {
	Key       string  // Key identifies the cached entry.
	Score     float64 // Score is the eviction score; lower pops first.
	Seq       uint64  // Seq is the insertion sequence; lower (older) pops first on ties.
	SizeBytes int64   // SizeBytes is the entry footprint, carried for the caller.
}

// PriorityQueue is a value-based binary min-heap ordered by (Score, Seq).
type PriorityQueue struct {
	items []Item
}

// New initializes a new priority queue with the given capacity.
func New(capacity int) *PriorityQueue {
	return &PriorityQueue{
		items: make([]Item, 0, capacity),
	}
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the lowest item.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = Item{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// Peek returns the lowest item without removing it.
func (pq *PriorityQueue) Peek() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Reset clears the priority queue for reuse.
func (pq *PriorityQueue) Reset() {
	clear(pq.items)
	pq.items = pq.items[:0]
}

func (pq *PriorityQueue) less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Seq < b.Seq
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
