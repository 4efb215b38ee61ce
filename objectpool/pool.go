package objectpool

import (
	"sync"
	"sync/atomic"
)

// Caps bounds how many released nodes each built-in kind retains.
type Caps struct {
	Sprite    int `yaml:"sprite" json:"sprite" env:"SPRITE"`
	Animated  int `yaml:"animated" json:"animated" env:"ANIMATED"`
	Container int `yaml:"container" json:"container" env:"CONTAINER"`
}

// DefaultCaps returns the default per-kind caps.
func DefaultCaps() Caps {
	return Caps{
		Sprite:    100,
		Animated:  50,
		Container: 20,
	}
}

// Option configures a Pool.
type Option func(*Pool)

// WithDestroyHook registers fn to run for every node that is dropped instead
// of pooled (cap reached, unknown kind, Drain).
func WithDestroyHook(fn func(*Node)) Option {
	return func(p *Pool) {
		p.onDestroy = fn
	}
}

type subpool struct {
	capacity int
	free     []*Node
	reset    func(*Node)
}

// Pool recycles Node wrappers per kind.
// It is safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	subs      map[Kind]*subpool
	onDestroy func(*Node)

	created        atomic.Int64
	reused         atomic.Int64
	destroyed      atomic.Int64
	doubleReleases atomic.Int64
}

// New creates a pool with the built-in sprite, animated and container kinds.
func New(caps Caps, opts ...Option) *Pool {
	p := &Pool{
		subs: make(map[Kind]*subpool, 3),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.Register(KindSprite, caps.Sprite, nil)
	p.Register(KindAnimated, caps.Animated, nil)
	p.Register(KindContainer, caps.Container, nil)

	return p
}

// Register adds or reconfigures a kind. reset runs after Node.Reset on every
// acquire and release of that kind; it may be nil.
// Shrinking a cap drops the surplus pooled nodes.
func (p *Pool) Register(kind Kind, capacity int, reset func(*Node)) {
	if capacity < 0 {
		capacity = 0
	}

	var dropped []*Node

	p.mu.Lock()
	sp, ok := p.subs[kind]
	if !ok {
		sp = &subpool{free: make([]*Node, 0, min(capacity, 64))}
		p.subs[kind] = sp
	}
	sp.capacity = capacity
	sp.reset = reset
	if len(sp.free) > capacity {
		dropped = unpoolLocked(sp.free[capacity:])
		sp.free = sp.free[:capacity]
	}
	p.mu.Unlock()

	for _, n := range dropped {
		p.destroy(n)
	}
}

// Acquire returns a node of kind in its default state, reusing a pooled one
// when available.
func (p *Pool) Acquire(kind Kind) *Node {
	p.mu.Lock()
	sp := p.subs[kind]
	if sp != nil && len(sp.free) > 0 {
		last := len(sp.free) - 1
		n := sp.free[last]
		sp.free[last] = nil
		sp.free = sp.free[:last]
		n.pooled = false
		resetNode(sp, n)
		p.mu.Unlock()

		p.reused.Add(1)
		return n
	}
	p.mu.Unlock()

	n := newNode(kind)
	if sp != nil && sp.reset != nil {
		sp.reset(n)
	}
	p.created.Add(1)
	return n
}

// Release resets n and keeps it for reuse if its kind is below cap.
// Nodes over the cap are dropped; that is expected, not an error.
// It reports whether n was pooled. Releasing a pooled node twice is ignored.
func (p *Pool) Release(n *Node) bool {
	if n == nil {
		return false
	}

	p.mu.Lock()
	if n.pooled {
		p.mu.Unlock()
		p.doubleReleases.Add(1)
		return false
	}

	sp := p.subs[n.kind]
	if sp == nil || len(sp.free) >= sp.capacity {
		p.mu.Unlock()
		n.Reset()
		p.destroy(n)
		return false
	}

	resetNode(sp, n)
	n.pooled = true
	sp.free = append(sp.free, n)
	p.mu.Unlock()
	return true
}

// Pooled returns how many nodes of kind are ready for reuse.
func (p *Pool) Pooled(kind Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sp, ok := p.subs[kind]; ok {
		return len(sp.free)
	}
	return 0
}

// Cap returns the retention cap of kind.
func (p *Pool) Cap(kind Kind) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.subs[kind]
	if !ok {
		return 0, false
	}
	return sp.capacity, true
}

// Drain drops every pooled node.
func (p *Pool) Drain() {
	var dropped []*Node

	p.mu.Lock()
	for _, sp := range p.subs {
		dropped = append(dropped, unpoolLocked(sp.free)...)
		sp.free = sp.free[:0]
	}
	p.mu.Unlock()

	for _, n := range dropped {
		p.destroy(n)
	}
}

// unpoolLocked copies free out, clears the pooled marks and zeroes the
// slots so the backing array drops its references. Must hold p.mu.
func unpoolLocked(free []*Node) []*Node {
	out := make([]*Node, len(free))
	for i, n := range free {
		n.pooled = false
		out[i] = n
	}
	clear(free)
	return out
}

// Stats is a snapshot of pool counters.
type Stats struct {
	PooledByKind   map[Kind]int
	Created        int64
	Reused         int64
	Destroyed      int64
	DoubleReleases int64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	pooled := make(map[Kind]int, len(p.subs))
	for kind, sp := range p.subs {
		pooled[kind] = len(sp.free)
	}
	p.mu.Unlock()

	return Stats{
		PooledByKind:   pooled,
		Created:        p.created.Load(),
		Reused:         p.reused.Load(),
		Destroyed:      p.destroyed.Load(),
		DoubleReleases: p.doubleReleases.Load(),
	}
}

func (p *Pool) destroy(n *Node) {
	p.destroyed.Add(1)
	if p.onDestroy != nil {
		p.onDestroy(n)
	}
}

func resetNode(sp *subpool, n *Node) {
	n.Reset()
	if sp.reset != nil {
		sp.reset(n)
	}
}
