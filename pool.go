package respool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/respool/internal/eviction"
	"github.com/hupe1980/respool/internal/resource"
	"github.com/hupe1980/respool/objectpool"
)

type entry struct {
	handle   Handle
	size     int64
	refCount int
}

type grave struct {
	key    string
	handle Handle
}

// Pool is a bounded-memory cache of reference-counted resources.
//
// All mutations of the entry map, the pending creations, the usage tracker
// and the byte accounting are serialized by one mutex. Factories and
// Handle.Dispose always run outside of it.
type Pool struct {
	cfg     Config
	logger  *Logger
	metrics MetricsCollector
	now     func() time.Time
	objects *objectpool.Pool

	accountant *resource.Accountant
	throttler  *resource.Throttler
	policy     *eviction.Policy

	mu        sync.Mutex
	entries   map[string]*entry
	pending   map[string]*pendingCreation
	tracker   *eviction.Tracker
	graveyard []grave
	closed    bool

	// ctx is cancelled by Close and aborts creations still waiting for a
	// throttler slot.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	hits             atomic.Int64
	misses           atomic.Int64
	pendingJoins     atomic.Int64
	evictions        atomic.Int64
	evictedBytes     atomic.Int64
	factoryErrors    atomic.Int64
	deadlocks        atomic.Int64
	invalidKeyStates atomic.Int64
	forcedDisposals  atomic.Int64
	disposeErrors    atomic.Int64

	maintaining atomic.Bool
	snapshot    atomic.Pointer[Stats]
	stopChan    chan struct{}
	closeOnce   sync.Once
}

// New creates a pool and starts its maintenance ticker if
// cfg.MaintenanceIntervalMs > 0.
func New(cfg Config, optFns ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(optFns)
	if o.objects == nil {
		o.objects = objectpool.New(cfg.ObjectPoolCaps)
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		cfg:        cfg,
		logger:     o.logger,
		metrics:    o.metricsCollector,
		now:        o.now,
		objects:    o.objects,
		accountant: resource.NewAccountant(cfg.MaxBytes),
		throttler: resource.NewThrottler(resource.ThrottlerConfig{
			MaxConcurrent:  int64(cfg.MaxConcurrentLoads),
			LoadsPerSecond: cfg.LoadsPerSecond,
		}),
		policy:   eviction.NewPolicy(cfg.EvictionWeights.policyWeights(), cfg.SizeNormalizerBytes),
		entries:  make(map[string]*entry),
		pending:  make(map[string]*pendingCreation),
		tracker:  eviction.NewTracker(),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}

	p.startMaintenance(cfg.MaintenanceInterval())

	return p, nil
}

// Config returns the configuration the pool was created with.
func (p *Pool) Config() Config {
	return p.cfg
}

// Objects returns the wrapper pool reported in Stats.PooledByKind.
func (p *Pool) Objects() *objectpool.Pool {
	return p.objects
}

// GetOrCreate returns the resource cached under key, creating it with
// factory on a miss. Every successful call takes one reference that must be
// given back with Release.
//
// Concurrent calls for the same uncached key share one factory invocation
// and receive the same handle or the same *FactoryError. ctx only bounds
// this caller's wait: the creation itself always runs to completion and
// stays cached.
func (p *Pool) GetOrCreate(ctx context.Context, key string, factory Factory, opts ...CreateOption) (Handle, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	if e, ok := p.entries[key]; ok {
		e.refCount++
		p.tracker.RecordAccess(key, p.now())
		p.hits.Add(1)
		p.metrics.RecordLookup(true)
		h := e.handle
		p.mu.Unlock()
		return h, nil
	}

	p.misses.Add(1)
	p.metrics.RecordLookup(false)

	pc, ok := p.pending[key]
	if ok {
		pc.waiters++
		p.pendingJoins.Add(1)
	} else {
		pc = newPendingCreation(applyCreateOptions(opts), p.now())
		p.pending[key] = pc
		p.cleanupLocked()

		// The queue position is taken here, under p.mu, so creations start
		// in request order no matter when their goroutines get scheduled.
		tk := p.throttler.Reserve()
		p.wg.Add(1)
		go p.create(context.WithoutCancel(ctx), key, factory, pc, tk)
	}
	p.mu.Unlock()

	p.sweep()

	return p.wait(ctx, pc)
}

// Release gives back one reference taken by GetOrCreate. It never destroys
// the entry; unreferenced entries are reclaimed by the next cleanup pass.
// Releasing an unknown key or an unreferenced entry is counted and logged
// as an invalid key state and otherwise ignored.
func (p *Pool) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		p.invalidKeyStateLocked(key, AnomalyUnknownKey, "release of unknown key")
		return
	}
	if e.refCount == 0 {
		p.invalidKeyStateLocked(key, AnomalyDoubleRelease, "release without matching acquire")
		return
	}

	e.refCount--
	p.tracker.Touch(key, p.now())
}

// Dispose destroys the entry under key regardless of its reference count.
// Disposing an in-use entry is allowed but counted as a forced disposal.
// If key is still being created, the result is disposed as soon as it lands
// and its waiters receive ErrDisposed. The doomed creation is detached from
// key, so a later request for key starts a fresh creation.
// It reports whether an entry was destroyed or marked.
func (p *Pool) Dispose(key string) bool {
	p.mu.Lock()

	if e, ok := p.entries[key]; ok {
		if e.refCount > 0 {
			p.forcedDisposals.Add(1)
			p.metrics.RecordAnomaly(AnomalyForcedDispose)
			p.logger.LogAnomaly(AnomalyForcedDispose, key,
				fmt.Errorf("disposed with %d references outstanding", e.refCount))
		}
		p.destroyLocked(key, e)
		p.mu.Unlock()

		p.sweep()
		return true
	}

	if pc, ok := p.pending[key]; ok {
		pc.disposeOnLand = true
		delete(p.pending, key)
		p.mu.Unlock()
		return true
	}

	p.invalidKeyStateLocked(key, AnomalyUnknownKey, "dispose of unknown key")
	p.mu.Unlock()
	return false
}

// Contains reports whether key is cached. Pending creations do not count.
func (p *Pool) Contains(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[key]
	return ok
}

// Keys returns the cached keys in insertion order.
func (p *Pool) Keys() []string {
	p.mu.Lock()
	type seqKey struct {
		key string
		seq uint64
	}
	keys := make([]seqKey, 0, len(p.entries))
	for k := range p.entries {
		u, _ := p.tracker.Get(k)
		keys = append(keys, seqKey{key: k, seq: u.Seq})
	}
	p.mu.Unlock()

	slices.SortFunc(keys, func(a, b seqKey) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.key
	}
	return out
}

// Inspect returns the state of the entry under key.
func (p *Pool) Inspect(key string) (EntryInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return EntryInfo{}, false
	}
	u, _ := p.tracker.Get(key)

	return EntryInfo{
		Key:            key,
		SizeBytes:      e.size,
		RefCount:       e.refCount,
		Priority:       u.Priority,
		Exempt:         u.Exempt,
		CreatedAt:      u.CreatedAt,
		LastAccessedAt: u.LastAccessedAt,
		AccessCount:    u.AccessCount,
		Score:          p.policy.Score(u, p.now()),
	}, true
}

// Stats returns a snapshot of the pool counters. It has no side effects.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	entryCount := len(p.entries)
	pendingCount := len(p.pending)
	p.mu.Unlock()

	util := p.accountant.Utilization()

	s := Stats{
		EntryCount:          entryCount,
		CurrentBytes:        p.accountant.Current(),
		MaxBytes:            p.accountant.Max(),
		Utilization:         util,
		UtilizationPct:      util * 100,
		CacheHits:           p.hits.Load(),
		CacheMisses:         p.misses.Load(),
		EvictionCount:       p.evictions.Load(),
		EvictedBytes:        p.evictedBytes.Load(),
		PendingCreations:    pendingCount,
		InFlightLoads:       p.throttler.InFlight(),
		QueuedLoads:         p.throttler.Queued(),
		PendingJoins:        p.pendingJoins.Load(),
		FactoryErrors:       p.factoryErrors.Load(),
		EvictionDeadlocks:   p.deadlocks.Load(),
		InvalidKeyStates:    p.invalidKeyStates.Load(),
		ForcedDisposals:     p.forcedDisposals.Load(),
		AccountingAnomalies: p.accountant.Anomalies(),
		DisposeErrors:       p.disposeErrors.Load(),
	}

	if p.objects != nil {
		pooled := p.objects.Stats().PooledByKind
		s.PooledByKind = make(map[string]int, len(pooled))
		for kind, n := range pooled {
			s.PooledByKind[string(kind)] = n
		}
	}

	return s
}

// Close stops the maintenance ticker, aborts creations still waiting for a
// load slot, waits for running factories and destroys every entry.
// Entries still referenced are counted as forced disposals.
// Close is idempotent.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		close(p.stopChan)
		p.cancel()
		p.wg.Wait()

		p.mu.Lock()
		for key, e := range p.entries {
			if e.refCount > 0 {
				p.forcedDisposals.Add(1)
				p.metrics.RecordAnomaly(AnomalyForcedDispose)
			}
			p.destroyLocked(key, e)
		}
		p.mu.Unlock()

		p.sweep()
		p.logger.Info("resource pool closed", "evictions", p.evictions.Load())
	})
	return nil
}

// insertLocked registers a landed creation. Must hold p.mu.
func (p *Pool) insertLocked(key string, h Handle, size int64, refs int, pc *pendingCreation) {
	p.entries[key] = &entry{
		handle:   h,
		size:     size,
		refCount: refs,
	}
	p.tracker.RecordCreation(key, size, pc.priority, pc.exempt, uint64(refs), p.now())
	p.accountant.Add(size)

	p.cleanupLocked()
}

// destroyLocked removes key from every tracking structure in one step and
// queues its handle for disposal. Must hold p.mu.
func (p *Pool) destroyLocked(key string, e *entry) {
	delete(p.entries, key)
	p.tracker.Remove(key)
	if err := p.accountant.Remove(e.size); err != nil {
		p.metrics.RecordAnomaly(AnomalyAccountingUnderflow)
		p.logger.LogAnomaly(AnomalyAccountingUnderflow, key, err)
	}
	p.graveyard = append(p.graveyard, grave{key: key, handle: e.handle})
}

// sweep disposes every queued handle outside the lock.
func (p *Pool) sweep() int {
	p.mu.Lock()
	graves := p.graveyard
	p.graveyard = nil
	p.mu.Unlock()

	for _, g := range graves {
		if err := disposeHandle(g.handle); err != nil {
			p.disposeErrors.Add(1)
			p.metrics.RecordAnomaly(AnomalyDisposeFailed)
			p.logger.LogAnomaly(AnomalyDisposeFailed, g.key, err)
		}
	}
	return len(graves)
}

func (p *Pool) invalidKeyStateLocked(key string, kind AnomalyKind, msg string) {
	p.invalidKeyStates.Add(1)
	p.metrics.RecordAnomaly(kind)
	p.logger.LogAnomaly(kind, key, fmt.Errorf("%w: %s", ErrInvalidKeyState, msg))
}

func disposeHandle(h Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return h.Dispose()
}
