// Package respool provides a bounded-memory cache for expensive,
// reference-counted render resources.
//
// A Pool maps keys to resource handles (GPU textures, decoded atlases, ...).
// It creates each resource at most once at a time, never evicts a resource
// that is still referenced, and reclaims unreferenced resources by score
// when usage crosses the configured budget.
//
// # Quick Start
//
//	p, _ := respool.New(respool.DefaultConfig())
//	defer p.Close()
//
//	h, err := p.GetOrCreate(ctx, "units/tank", func(ctx context.Context, key string) (respool.Handle, error) {
//	    tex, err := uploadTexture(ctx, key)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return respool.NewResource(tex, tex.Bytes(), (*Texture).Free), nil
//	}, respool.Priority(5))
//	if err != nil {
//	    // substitute a placeholder
//	}
//	defer p.Release("units/tank")
//
// # Reference Counting
//
// Every successful GetOrCreate takes one reference; Release gives it back.
// Release never destroys an entry. Unreferenced entries stay cached until a
// cleanup pass needs their memory, so a resource requested again soon is a
// cheap hit. Dispose destroys an entry unconditionally (level unload).
//
// A Release without a matching GetOrCreate, or a Release/Dispose of an
// unknown key, is logged and counted in Stats.InvalidKeyStates and
// otherwise ignored. None of these calls return errors.
//
// # Creation Dedup
//
// Concurrent GetOrCreate calls for the same uncached key share a single
// factory call. When it succeeds the entry starts with one reference per
// waiting caller; when it fails every waiter receives the same
// *FactoryError (errors.Is(err, ErrFactory)). Factories run on pool-owned
// goroutines, at most Config.MaxConcurrentLoads at a time, queued in FIFO
// order.
//
// The caller's context only bounds its own wait. A creation is never
// aborted: it lands in the cache even if every caller gave up.
//
// # Eviction
//
// After every insertion, before every creation and on each maintenance
// tick the pool checks pressure: once usage exceeds
// CleanupThresholdRatio*MaxBytes, unreferenced entries are evicted
// lowest score first until usage is back at that threshold, then
// MaxEntries is enforced. Entries created with Exempt() are skipped.
// The budget is soft: if nothing is left to evict the pool records an
// eviction deadlock and keeps running over budget.
//
// # Concurrency
//
// A Pool is safe for concurrent use. One mutex serializes every change to
// the entry map, pending creations, usage statistics and byte accounting,
// so a removal is never observable half done. Factories and
// Handle.Dispose run outside the lock.
package respool
