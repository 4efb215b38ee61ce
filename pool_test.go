package respool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/respool"
	"github.com/hupe1980/respool/objectpool"
	"github.com/hupe1980/respool/testutil"
)

const mib = 1 << 20

func testConfig() respool.Config {
	cfg := respool.DefaultConfig()
	cfg.MaintenanceIntervalMs = 0
	return cfg
}

func newTestPool(t *testing.T, cfg respool.Config, opts ...respool.Option) *respool.Pool {
	t.Helper()
	p, err := respool.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// checkAccounting asserts that CurrentBytes equals the sum over live entries.
func checkAccounting(t *testing.T, p *respool.Pool) {
	t.Helper()
	var sum int64
	for _, k := range p.Keys() {
		info, ok := p.Inspect(k)
		require.True(t, ok)
		sum += info.SizeBytes
	}
	s := p.Stats()
	assert.Equal(t, sum, s.CurrentBytes)
	assert.GreaterOrEqual(t, s.CurrentBytes, int64(0))
}

func TestGetOrCreate_HitAndMiss(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib)
	ctx := t.Context()

	h1, err := p.GetOrCreate(ctx, "tank", f.Create)
	require.NoError(t, err)
	h2, err := p.GetOrCreate(ctx, "tank", f.Create)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, f.Calls())

	info, ok := p.Inspect("tank")
	require.True(t, ok)
	assert.Equal(t, 2, info.RefCount)
	assert.Equal(t, uint64(2), info.AccessCount)
	assert.Equal(t, respool.DefaultPriority, info.Priority)

	s := p.Stats()
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(1), s.CacheMisses)
	assert.Equal(t, 1, s.EntryCount)
	assert.Equal(t, int64(mib), s.CurrentBytes)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
}

func TestGetOrCreate_Misuse(t *testing.T) {
	p := newTestPool(t, testConfig())

	_, err := p.GetOrCreate(t.Context(), "a", nil)
	assert.ErrorIs(t, err, respool.ErrNilFactory)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = p.GetOrCreate(ctx, "a", testutil.NewFactory(1).Create)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.Contains("a"))
}

// Scenario: three 4 MiB resources fill a 10 MiB budget; a fourth insert
// evicts the lowest-scoring released ones until usage is back under budget.
func TestEviction_BudgetScenario(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBytes = 10 * mib
	cfg.CleanupThresholdRatio = 1.0
	cfg.MaxEntries = 0

	clk := testutil.NewClock()
	p := newTestPool(t, cfg, respool.WithClock(clk.Now))
	f := testutil.NewFactory(4 * mib)
	ctx := t.Context()

	priorities := map[string]int{"a": 3, "b": 1, "c": 2}
	for _, k := range []string{"a", "b", "c"} {
		_, err := p.GetOrCreate(ctx, k, f.Create, respool.Priority(priorities[k]))
		require.NoError(t, err)
	}

	// All three were pinned when the third landed.
	s := p.Stats()
	assert.Equal(t, int64(12*mib), s.CurrentBytes)
	assert.GreaterOrEqual(t, s.EvictionDeadlocks, int64(1))

	for _, k := range []string{"a", "b", "c"} {
		p.Release(k)
	}
	assert.Equal(t, []string{"b", "c", "a"}, p.EvictionOrder())

	_, err := p.GetOrCreate(ctx, "d", f.Create)
	require.NoError(t, err)

	s = p.Stats()
	assert.LessOrEqual(t, s.CurrentBytes, int64(10*mib))
	assert.Equal(t, int64(2), s.EvictionCount)
	assert.Equal(t, int64(8*mib), s.EvictedBytes)
	assert.ElementsMatch(t, []string{"a", "d"}, p.Keys())
	assert.True(t, f.Handle("b").Disposed())
	assert.True(t, f.Handle("c").Disposed())
	assert.False(t, f.Handle("a").Disposed())
	checkAccounting(t, p)
}

// Scenario: five concurrent requests for a cold key share one factory call.
func TestGetOrCreate_Dedup(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib).Gated()

	const n = 5
	handles := make([]respool.Handle, n)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			h, err := p.GetOrCreate(t.Context(), "tank", f.Create)
			handles[i] = h
			return err
		})
	}

	require.Eventually(t, func() bool {
		return p.Stats().PendingJoins == n-1
	}, time.Second, time.Millisecond)
	f.Open()
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, f.Calls())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}

	info, ok := p.Inspect("tank")
	require.True(t, ok)
	assert.Equal(t, n, info.RefCount)

	s := p.Stats()
	assert.Equal(t, int64(n), s.CacheMisses)
	assert.Equal(t, 0, s.PendingCreations)
}

func TestGetOrCreate_FactoryErrorShared(t *testing.T) {
	p := newTestPool(t, testConfig())
	boom := errors.New("upload failed")
	f := testutil.NewFactory(mib).Failing(boom).Gated()

	const n = 3
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.GetOrCreate(t.Context(), "tank", f.Create)
		}()
	}

	require.Eventually(t, func() bool {
		return p.Stats().PendingJoins == n-1
	}, time.Second, time.Millisecond)
	f.Open()
	wg.Wait()

	var fe *respool.FactoryError
	require.ErrorAs(t, errs[0], &fe)
	assert.Equal(t, "tank", fe.Key)
	for _, err := range errs {
		assert.Same(t, errs[0], err)
		assert.ErrorIs(t, err, respool.ErrFactory)
		assert.ErrorIs(t, err, boom)
	}

	assert.False(t, p.Contains("tank"))
	assert.Equal(t, int64(1), p.Stats().FactoryErrors)
	assert.Equal(t, 0, p.Stats().PendingCreations)

	// The failed creation is not cached: the next request tries again.
	_, err := p.GetOrCreate(t.Context(), "tank", f.Create)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, f.Calls())
}

func TestGetOrCreate_FactoryPanic(t *testing.T) {
	p := newTestPool(t, testConfig())

	_, err := p.GetOrCreate(t.Context(), "bad", func(context.Context, string) (respool.Handle, error) {
		panic("gpu lost")
	})

	var pe *respool.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "gpu lost", pe.Value)
	assert.ErrorIs(t, err, respool.ErrFactory)

	s := p.Stats()
	assert.Zero(t, s.InFlightLoads)
	assert.Zero(t, s.PendingCreations)
}

func TestGetOrCreate_NilHandle(t *testing.T) {
	p := newTestPool(t, testConfig())

	_, err := p.GetOrCreate(t.Context(), "nil", func(context.Context, string) (respool.Handle, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, respool.ErrFactory)
	assert.False(t, p.Contains("nil"))
}

// Scenario: with three load slots, five distinct creations run three at a
// time and the rest start in request order as slots free.
func TestGetOrCreate_ThrottledFIFO(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentLoads = 3
	p := newTestPool(t, cfg)
	f := testutil.NewFactory(1).Gated()

	keys := []string{"k0", "k1", "k2", "k3", "k4"}

	var g errgroup.Group
	for i, k := range keys {
		g.Go(func() error {
			_, err := p.GetOrCreate(t.Context(), k, f.Create)
			return err
		})
		require.Eventually(t, func() bool {
			s := p.Stats()
			return s.InFlightLoads+s.QueuedLoads == int64(i+1)
		}, time.Second, time.Millisecond)
	}

	require.Eventually(t, func() bool { return f.Active() == 3 }, time.Second, time.Millisecond)
	assert.ElementsMatch(t, []string{"k0", "k1", "k2"}, f.Started())
	assert.Equal(t, int64(2), p.Stats().QueuedLoads)

	f.Step()
	require.Eventually(t, func() bool { return len(f.Started()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, "k3", f.Started()[3])

	f.Step()
	require.Eventually(t, func() bool { return len(f.Started()) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, "k4", f.Started()[4])

	f.Open()
	require.NoError(t, g.Wait())
	assert.Equal(t, 3, f.Peak())
	assert.Equal(t, 5, p.Stats().EntryCount)
}

func TestGetOrCreate_QueuedCreationsStartInRequestOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentLoads = 1
	p := newTestPool(t, cfg)

	for round := range 25 {
		f := testutil.NewFactory(1).Gated()
		blocker := fmt.Sprintf("r%d-blocker", round)
		keys := []string{
			fmt.Sprintf("r%d-a", round),
			fmt.Sprintf("r%d-b", round),
			fmt.Sprintf("r%d-c", round),
		}

		var g errgroup.Group
		g.Go(func() error {
			_, err := p.GetOrCreate(t.Context(), blocker, f.Create)
			return err
		})
		require.Eventually(t, func() bool { return f.Active() == 1 }, time.Second, time.Millisecond)

		for i, k := range keys {
			g.Go(func() error {
				_, err := p.GetOrCreate(t.Context(), k, f.Create)
				return err
			})
			// Queued is bumped while the request holds the pool lock, so
			// the next request is issued strictly after this one queued.
			require.Eventually(t, func() bool {
				return p.Stats().QueuedLoads == int64(i+1)
			}, time.Second, time.Millisecond)
		}

		f.Open()
		require.NoError(t, g.Wait())
		require.Equal(t, append([]string{blocker}, keys...), f.Started(), "round %d", round)

		for _, k := range append([]string{blocker}, keys...) {
			p.Release(k)
		}
	}
}

func TestRelease_NeverNegative(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib)

	_, err := p.GetOrCreate(t.Context(), "a", f.Create)
	require.NoError(t, err)

	p.Release("a")
	p.Release("a")
	p.Release("unknown")

	info, ok := p.Inspect("a")
	require.True(t, ok)
	assert.Equal(t, 0, info.RefCount)
	assert.Equal(t, int64(2), p.Stats().InvalidKeyStates)

	// Release never destroys.
	assert.False(t, f.Handle("a").Disposed())
}

func TestRelease_TouchesLastAccess(t *testing.T) {
	clk := testutil.NewClock()
	p := newTestPool(t, testConfig(), respool.WithClock(clk.Now))

	_, err := p.GetOrCreate(t.Context(), "a", testutil.NewFactory(1).Create)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	p.Release("a")

	info, _ := p.Inspect("a")
	assert.Equal(t, testutil.Epoch.Add(time.Minute), info.LastAccessedAt)
	assert.Equal(t, uint64(1), info.AccessCount)
}

func TestEviction_NeverRemovesReferenced(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBytes = 2 * mib
	p := newTestPool(t, cfg)
	f := testutil.NewFactory(mib)

	for i := range 4 {
		_, err := p.GetOrCreate(t.Context(), fmt.Sprintf("k%d", i), f.Create)
		require.NoError(t, err)
	}

	assert.Zero(t, p.PerformEviction(0))
	assert.Equal(t, 4, p.Stats().EntryCount)
	assert.Empty(t, p.EvictionOrder())
	assert.Positive(t, p.Stats().EvictionDeadlocks)

	p.Release("k2")
	assert.Equal(t, 1, p.PerformEviction(0))
	assert.False(t, p.Contains("k2"))
	assert.Equal(t, 3, p.Stats().EntryCount)
	checkAccounting(t, p)
}

// Scenario: an exempt entry survives long idle periods and cleanup passes
// but is removed immediately by Dispose.
func TestEviction_ExemptSurvives(t *testing.T) {
	clk := testutil.NewClock()
	p := newTestPool(t, testConfig(), respool.WithClock(clk.Now))
	f := testutil.NewFactory(mib)

	_, err := p.GetOrCreate(t.Context(), "hq", f.Create, respool.Priority(10), respool.Exempt())
	require.NoError(t, err)
	p.Release("hq")

	clk.Advance(10 * time.Minute)
	assert.Zero(t, p.PerformEviction(0))
	assert.True(t, p.Maintain())
	assert.True(t, p.Contains("hq"))

	info, _ := p.Inspect("hq")
	assert.True(t, info.Exempt)
	assert.Equal(t, 10, info.Priority)

	assert.True(t, p.Dispose("hq"))
	assert.False(t, p.Contains("hq"))
	assert.True(t, f.Handle("hq").Disposed())
	assert.Zero(t, p.Stats().CurrentBytes)
	assert.Zero(t, p.Stats().ForcedDisposals)
}

func TestEviction_ExemptHardSweep(t *testing.T) {
	cfg := testConfig()
	cfg.ExemptHardSweep = true
	p := newTestPool(t, cfg)
	f := testutil.NewFactory(mib)

	_, err := p.GetOrCreate(t.Context(), "hq", f.Create, respool.Exempt())
	require.NoError(t, err)
	_, err = p.GetOrCreate(t.Context(), "tank", f.Create)
	require.NoError(t, err)
	p.Release("hq")
	p.Release("tank")

	assert.Equal(t, 1, p.PerformEviction(mib))
	assert.True(t, p.Contains("hq"))

	assert.Equal(t, 1, p.PerformEviction(0))
	assert.False(t, p.Contains("hq"))
	assert.Zero(t, p.Stats().EvictionDeadlocks)
}

func TestEviction_EntryLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 3
	p := newTestPool(t, cfg)
	f := testutil.NewFactory(1)

	priorities := []int{5, 1, 4, 2, 3}
	for i, prio := range priorities {
		k := fmt.Sprintf("k%d", i)
		_, err := p.GetOrCreate(t.Context(), k, f.Create, respool.Priority(prio))
		require.NoError(t, err)
		p.Release(k)
	}

	assert.ElementsMatch(t, []string{"k0", "k2", "k4"}, p.Keys())
	assert.Equal(t, int64(2), p.Stats().EvictionCount)
	assert.Zero(t, p.EnforceEntryLimit())
}

func TestEviction_EntryLimitSparesExempt(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	cfg.ExemptHardSweep = true
	p := newTestPool(t, cfg)
	f := testutil.NewFactory(1)

	for _, k := range []string{"hud", "font"} {
		_, err := p.GetOrCreate(t.Context(), k, f.Create, respool.Priority(0), respool.Exempt())
		require.NoError(t, err)
	}
	for _, k := range []string{"tank", "jeep"} {
		_, err := p.GetOrCreate(t.Context(), k, f.Create, respool.Priority(10))
		require.NoError(t, err)
	}
	for _, k := range []string{"hud", "font", "tank", "jeep"} {
		p.Release(k)
	}
	assert.Equal(t, 4, p.Stats().EntryCount)

	assert.Equal(t, 2, p.EnforceEntryLimit())
	assert.ElementsMatch(t, []string{"hud", "font"}, p.Keys())
	assert.False(t, f.Handle("hud").Disposed())
	assert.False(t, f.Handle("font").Disposed())

	// Only exempt entries are left, so the limit holds without touching them.
	assert.Zero(t, p.EnforceEntryLimit())
	assert.Equal(t, 2, p.Stats().EntryCount)
}

func TestEviction_TieBreakOldestFirst(t *testing.T) {
	clk := testutil.NewClock()
	p := newTestPool(t, testConfig(), respool.WithClock(clk.Now))
	f := testutil.NewFactory(mib)

	for _, k := range []string{"first", "second", "third"} {
		_, err := p.GetOrCreate(t.Context(), k, f.Create)
		require.NoError(t, err)
	}
	for _, k := range []string{"third", "first", "second"} {
		p.Release(k)
	}

	assert.Equal(t, []string{"first", "second", "third"}, p.EvictionOrder())
	assert.Equal(t, 1, p.PerformEviction(2*mib))
	assert.False(t, p.Contains("first"))
}

func TestDispose_InUseIsForced(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib)

	_, err := p.GetOrCreate(t.Context(), "a", f.Create)
	require.NoError(t, err)

	assert.True(t, p.Dispose("a"))
	assert.True(t, f.Handle("a").Disposed())

	s := p.Stats()
	assert.Equal(t, int64(1), s.ForcedDisposals)
	assert.Zero(t, s.CurrentBytes)

	// The stale reference can no longer be released.
	p.Release("a")
	assert.False(t, p.Dispose("a"))
	assert.Equal(t, int64(2), p.Stats().InvalidKeyStates)
}

func TestDispose_Pending(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib).Gated()

	errc := make(chan error, 1)
	go func() {
		_, err := p.GetOrCreate(t.Context(), "a", f.Create)
		errc <- err
	}()

	require.Eventually(t, func() bool { return p.Stats().PendingCreations == 1 }, time.Second, time.Millisecond)
	assert.True(t, p.Dispose("a"))
	f.Open()

	assert.ErrorIs(t, <-errc, respool.ErrDisposed)
	assert.False(t, p.Contains("a"))
	assert.True(t, f.Handle("a").Disposed())
	assert.Zero(t, p.Stats().CurrentBytes)
}

func TestDispose_PendingDetachesKey(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib).Gated()

	first := make(chan error, 1)
	go func() {
		_, err := p.GetOrCreate(t.Context(), "level", f.Create)
		first <- err
	}()
	require.Eventually(t, func() bool { return f.Active() == 1 }, time.Second, time.Millisecond)

	require.True(t, p.Dispose("level"))
	assert.Zero(t, p.Stats().PendingCreations)

	// A reload right after the unload must not inherit the doomed creation.
	type result struct {
		h   respool.Handle
		err error
	}
	second := make(chan result, 1)
	go func() {
		h, err := p.GetOrCreate(t.Context(), "level", f.Create)
		second <- result{h, err}
	}()
	require.Eventually(t, func() bool { return p.Stats().PendingCreations == 1 }, time.Second, time.Millisecond)

	f.Open()

	assert.ErrorIs(t, <-first, respool.ErrDisposed)
	r := <-second
	require.NoError(t, r.err)
	assert.False(t, r.h.(*testutil.Handle).Disposed())

	assert.Equal(t, 2, f.Calls())
	assert.True(t, p.Contains("level"))
	assert.Equal(t, int64(mib), p.Stats().CurrentBytes)
	checkAccounting(t, p)
}

func TestDispose_Error(t *testing.T) {
	p := newTestPool(t, testConfig())
	h := &testutil.Handle{Key: "a", Size: 1, DisposeErr: errors.New("device lost")}

	_, err := p.GetOrCreate(t.Context(), "a", func(context.Context, string) (respool.Handle, error) {
		return h, nil
	})
	require.NoError(t, err)
	p.Release("a")

	assert.True(t, p.Dispose("a"))
	assert.Equal(t, 1, h.DisposeCount())
	assert.Equal(t, int64(1), p.Stats().DisposeErrors)
}

func TestGetOrCreate_CallerCancelDoesNotAbortCreation(t *testing.T) {
	p := newTestPool(t, testConfig())
	f := testutil.NewFactory(mib).Gated()

	ctx, cancel := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() {
		_, err := p.GetOrCreate(ctx, "a", f.Create)
		errc <- err
	}()

	require.Eventually(t, func() bool { return f.Active() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	f.Open()
	require.Eventually(t, func() bool { return p.Contains("a") }, time.Second, time.Millisecond)

	info, _ := p.Inspect("a")
	assert.Equal(t, 0, info.RefCount)
	checkAccounting(t, p)
}

func TestAccountingInvariant_RandomOps(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBytes = 64 * mib
	cfg.MaxEntries = 24
	p := newTestPool(t, cfg)

	rng := testutil.NewRNG(4711)
	factory := func(_ context.Context, key string) (respool.Handle, error) {
		return &testutil.Handle{Key: key, Size: rng.SizeBetween(mib/2, 8*mib)}, nil
	}

	held := make(map[string]int)
	for range 2000 {
		key := fmt.Sprintf("k%d", rng.Zipf(48, 1.1))

		switch op := rng.Intn(10); {
		case op < 5:
			if _, err := p.GetOrCreate(t.Context(), key, factory, respool.Priority(rng.Intn(4))); err == nil {
				held[key]++
			}
		case op < 8:
			p.Release(key)
			if held[key] > 0 {
				held[key]--
			}
		case op < 9:
			p.Dispose(key)
			delete(held, key)
		default:
			p.PerformEviction(rng.SizeBetween(0, 32*mib))
		}

		checkAccounting(t, p)
	}

	for key, refs := range held {
		if refs == 0 {
			continue
		}
		info, ok := p.Inspect(key)
		require.True(t, ok, "referenced entry %s was evicted", key)
		assert.Equal(t, refs, info.RefCount)
	}
}

func TestMaintain_EvictsAndSnapshots(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBytes = 4 * mib
	cfg.CleanupThresholdRatio = 0.5
	metrics := &respool.BasicMetricsCollector{}
	p := newTestPool(t, cfg, respool.WithMetricsCollector(metrics))
	f := testutil.NewFactory(mib)

	_, ok := p.LastSnapshot()
	assert.False(t, ok)

	for i := range 4 {
		_, err := p.GetOrCreate(t.Context(), fmt.Sprintf("k%d", i), f.Create)
		require.NoError(t, err)
	}
	for i := range 4 {
		p.Release(fmt.Sprintf("k%d", i))
	}
	assert.Equal(t, 4, p.Stats().EntryCount)

	assert.True(t, p.Maintain())

	snap, ok := p.LastSnapshot()
	require.True(t, ok)
	assert.Equal(t, 2, snap.EntryCount)
	assert.Equal(t, int64(2*mib), snap.CurrentBytes)
	assert.InDelta(t, 50.0, snap.UtilizationPct, 1e-9)

	ms := metrics.GetStats()
	assert.Equal(t, int64(1), ms.Snapshots)
	assert.Equal(t, int64(2), ms.Evictions)
	assert.Equal(t, int64(4), ms.Loads)
	assert.Equal(t, int64(4), ms.Misses)
	assert.InDelta(t, 50.0, ms.LastUtilizationPct, 1e-9)
}

// blockingSnapshots holds the first maintenance tick inside RecordSnapshot.
type blockingSnapshots struct {
	respool.NoopMetricsCollector

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSnapshots) RecordSnapshot(respool.Stats) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
}

func TestMaintain_SkipsOverlappingTick(t *testing.T) {
	metrics := &blockingSnapshots{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := newTestPool(t, testConfig(), respool.WithMetricsCollector(metrics))

	var g errgroup.Group
	g.Go(func() error {
		if !p.Maintain() {
			return errors.New("first tick was skipped")
		}
		return nil
	})

	select {
	case <-metrics.entered:
	case <-time.After(time.Second):
		t.Fatal("maintenance tick never reached RecordSnapshot")
	}

	assert.False(t, p.Maintain())

	close(metrics.release)
	require.NoError(t, g.Wait())

	assert.True(t, p.Maintain())
}

func TestMaintain_Ticker(t *testing.T) {
	cfg := testConfig()
	cfg.MaintenanceIntervalMs = 5
	p := newTestPool(t, cfg)

	require.Eventually(t, func() bool {
		_, ok := p.LastSnapshot()
		return ok
	}, time.Second, time.Millisecond)
}

func TestStats_PooledByKind(t *testing.T) {
	op := objectpool.New(objectpool.DefaultCaps())
	p := newTestPool(t, testConfig(), respool.WithObjectPool(op))
	assert.Same(t, op, p.Objects())

	op.Release(op.Acquire(objectpool.KindSprite))
	op.Release(op.Acquire(objectpool.KindContainer))

	s := p.Stats()
	assert.Equal(t, 1, s.PooledByKind["sprite"])
	assert.Equal(t, 1, s.PooledByKind["container"])
	assert.Equal(t, 0, s.PooledByKind["animated"])
}

func TestClose(t *testing.T) {
	p, err := respool.New(testConfig())
	require.NoError(t, err)
	f := testutil.NewFactory(mib)

	_, err = p.GetOrCreate(t.Context(), "held", f.Create)
	require.NoError(t, err)
	_, err = p.GetOrCreate(t.Context(), "idle", f.Create)
	require.NoError(t, err)
	p.Release("idle")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.True(t, f.Handle("held").Disposed())
	assert.True(t, f.Handle("idle").Disposed())
	assert.Equal(t, 1, f.Handle("idle").DisposeCount())

	s := p.Stats()
	assert.Zero(t, s.EntryCount)
	assert.Zero(t, s.CurrentBytes)
	assert.Equal(t, int64(1), s.ForcedDisposals)

	_, err = p.GetOrCreate(t.Context(), "late", f.Create)
	assert.ErrorIs(t, err, respool.ErrClosed)
}

func TestClose_AbortsQueuedCreations(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentLoads = 1
	p, err := respool.New(cfg)
	require.NoError(t, err)
	f := testutil.NewFactory(mib).Gated()

	running := make(chan error, 1)
	queued := make(chan error, 1)
	go func() {
		_, err := p.GetOrCreate(t.Context(), "running", f.Create)
		running <- err
	}()
	require.Eventually(t, func() bool { return f.Active() == 1 }, time.Second, time.Millisecond)

	go func() {
		_, err := p.GetOrCreate(t.Context(), "queued", f.Create)
		queued <- err
	}()
	require.Eventually(t, func() bool { return p.Stats().QueuedLoads == 1 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = p.Close()
		close(closed)
	}()

	assert.ErrorIs(t, <-queued, respool.ErrClosed)

	f.Open()
	<-closed

	assert.ErrorIs(t, <-running, respool.ErrClosed)
	assert.True(t, f.Handle("running").Disposed())
	assert.Equal(t, 1, f.Calls())
	assert.Zero(t, p.Stats().CurrentBytes)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupThresholdRatio = 0

	_, err := respool.New(cfg)
	assert.ErrorIs(t, err, respool.ErrInvalidConfig)
}
