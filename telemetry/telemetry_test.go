package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/respool"
)

type fixedSource respool.Stats

func (f fixedSource) Stats() respool.Stats { return respool.Stats(f) }

func TestExporter_Collect(t *testing.T) {
	src := fixedSource{
		EntryCount:    2,
		CurrentBytes:  3 << 20,
		MaxBytes:      4 << 20,
		Utilization:   0.75,
		CacheHits:     10,
		CacheMisses:   4,
		EvictionCount: 1,
		PooledByKind:  map[string]int{"sprite": 3, "container": 1},
	}
	e := NewExporter(src, prometheus.Labels{"pool": "test"})

	assert.Equal(t, 20, testutil.CollectAndCount(e))

	expected := `
# HELP respool_entries Live cache entries.
# TYPE respool_entries gauge
respool_entries{pool="test"} 2
# HELP respool_hits_total Lookups served from the cache.
# TYPE respool_hits_total counter
respool_hits_total{pool="test"} 10
# HELP respool_objectpool_pooled Free scene-graph nodes held per kind.
# TYPE respool_objectpool_pooled gauge
respool_objectpool_pooled{kind="container",pool="test"} 1
respool_objectpool_pooled{kind="sprite",pool="test"} 3
# HELP respool_utilization_ratio Accounted bytes over the budget.
# TYPE respool_utilization_ratio gauge
respool_utilization_ratio{pool="test"} 0.75
`
	require.NoError(t, testutil.CollectAndCompare(e, strings.NewReader(expected),
		"respool_entries", "respool_hits_total", "respool_objectpool_pooled", "respool_utilization_ratio"))
}

func TestExporter_Register(t *testing.T) {
	cfg := respool.DefaultConfig()
	cfg.MaintenanceIntervalMs = 0
	pool, err := respool.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewExporter(pool, nil)))

	_, err = pool.GetOrCreate(t.Context(), "hud", func(context.Context, string) (respool.Handle, error) {
		return respool.NewResource("hud", 512, nil), nil
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		if len(mf.GetMetric()) != 1 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	assert.Equal(t, 1.0, values["respool_entries"])
	assert.Equal(t, 512.0, values["respool_bytes"])
	assert.Equal(t, 1.0, values["respool_misses_total"])
}

func TestObserver(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	o := NewObserver(reg)

	o.RecordLookup(true)
	o.RecordLookup(true)
	o.RecordLookup(false)
	o.RecordLoad(3*time.Millisecond, nil)
	o.RecordLoad(time.Second, errors.New("boom"))
	o.RecordEviction(respool.ReasonPressure, 100)
	o.RecordEviction(respool.ReasonPressure, 50)
	o.RecordEviction(respool.ReasonEntryLimit, 7)
	o.RecordAnomaly(respool.AnomalyDoubleRelease)
	o.RecordSnapshot(respool.Stats{Utilization: 0.5, CurrentBytes: 2048})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.lookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.evictions.WithLabelValues("pressure")))
	assert.Equal(t, 150.0, testutil.ToFloat64(o.evictedBytes.WithLabelValues("pressure")))
	assert.Equal(t, 7.0, testutil.ToFloat64(o.evictedBytes.WithLabelValues("entry_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.anomalies.WithLabelValues("double_release")))
	assert.Equal(t, 0.5, testutil.ToFloat64(o.utilization))
	assert.Equal(t, 2048.0, testutil.ToFloat64(o.snapshotBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.snapshotTicks))

	assert.Equal(t, 2, testutil.CollectAndCount(o.loadLatency, "respool_load_duration_seconds"))
}

func TestObserver_WithPool(t *testing.T) {
	o := NewObserver(nil)

	cfg := respool.DefaultConfig()
	cfg.MaintenanceIntervalMs = 0
	pool, err := respool.New(cfg, respool.WithMetricsCollector(o))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	factory := func(context.Context, string) (respool.Handle, error) {
		return respool.NewResource(1, 64, nil), nil
	}
	for range 3 {
		_, err := pool.GetOrCreate(t.Context(), "tank", factory)
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(o.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.lookups.WithLabelValues("miss")))

	require.True(t, pool.Maintain())
	assert.Equal(t, 1.0, testutil.ToFloat64(o.snapshotTicks))
}
