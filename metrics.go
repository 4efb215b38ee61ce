package respool

import (
	"sync/atomic"
	"time"
)

// EvictionReason tells why an entry was evicted.
type EvictionReason uint8

const (
	// ReasonPressure: usage crossed the cleanup threshold.
	ReasonPressure EvictionReason = iota
	// ReasonEntryLimit: entry count exceeded MaxEntries.
	ReasonEntryLimit
	// ReasonHardSweep: an exempt entry evicted by the budget hard sweep.
	ReasonHardSweep
)

func (r EvictionReason) String() string {
	switch r {
	case ReasonPressure:
		return "pressure"
	case ReasonEntryLimit:
		return "entry_limit"
	case ReasonHardSweep:
		return "hard_sweep"
	default:
		return "unknown"
	}
}

// AnomalyKind classifies recovered inconsistencies.
type AnomalyKind uint8

const (
	AnomalyUnknownKey AnomalyKind = iota
	AnomalyDoubleRelease
	AnomalyForcedDispose
	AnomalyAccountingUnderflow
	AnomalyEvictionDeadlock
	AnomalyDisposeFailed
)

func (k AnomalyKind) String() string {
	switch k {
	case AnomalyUnknownKey:
		return "unknown_key"
	case AnomalyDoubleRelease:
		return "double_release"
	case AnomalyForcedDispose:
		return "forced_dispose"
	case AnomalyAccountingUnderflow:
		return "accounting_underflow"
	case AnomalyEvictionDeadlock:
		return "eviction_deadlock"
	case AnomalyDisposeFailed:
		return "dispose_failed"
	default:
		return "unknown"
	}
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see the telemetry package).
//
// Methods may be called while the pool lock is held and must not call back
// into the pool.
type MetricsCollector interface {
	// RecordLookup is called for every GetOrCreate that reaches the cache.
	RecordLookup(hit bool)

	// RecordLoad is called after each factory invocation.
	RecordLoad(duration time.Duration, err error)

	// RecordEviction is called for each evicted entry.
	RecordEviction(reason EvictionReason, sizeBytes int64)

	// RecordAnomaly is called for each recovered inconsistency.
	RecordAnomaly(kind AnomalyKind)

	// RecordSnapshot is called by every maintenance tick.
	RecordSnapshot(s Stats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(bool)                   {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)     {}
func (NoopMetricsCollector) RecordEviction(EvictionReason, int64) {}
func (NoopMetricsCollector) RecordAnomaly(AnomalyKind)           {}
func (NoopMetricsCollector) RecordSnapshot(Stats)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	Hits            atomic.Int64
	Misses          atomic.Int64
	Loads           atomic.Int64
	LoadErrors      atomic.Int64
	LoadTotalNanos  atomic.Int64
	Evictions       atomic.Int64
	EvictedBytes    atomic.Int64
	Anomalies       atomic.Int64
	Snapshots       atomic.Int64
	lastUtilization atomic.Uint64 // percent * 100
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(hit bool) {
	if hit {
		b.Hits.Add(1)
	} else {
		b.Misses.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.Loads.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(_ EvictionReason, sizeBytes int64) {
	b.Evictions.Add(1)
	b.EvictedBytes.Add(sizeBytes)
}

// RecordAnomaly implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAnomaly(AnomalyKind) {
	b.Anomalies.Add(1)
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(s Stats) {
	b.Snapshots.Add(1)
	b.lastUtilization.Store(uint64(s.UtilizationPct * 100))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Hits:               b.Hits.Load(),
		Misses:             b.Misses.Load(),
		Loads:              b.Loads.Load(),
		LoadErrors:         b.LoadErrors.Load(),
		LoadAvgNanos:       b.getAvgLoadNanos(),
		Evictions:          b.Evictions.Load(),
		EvictedBytes:       b.EvictedBytes.Load(),
		Anomalies:          b.Anomalies.Load(),
		Snapshots:          b.Snapshots.Load(),
		LastUtilizationPct: float64(b.lastUtilization.Load()) / 100,
	}
}

func (b *BasicMetricsCollector) getAvgLoadNanos() int64 {
	count := b.Loads.Load()
	if count == 0 {
		return 0
	}
	return b.LoadTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Hits               int64
	Misses             int64
	Loads              int64
	LoadErrors         int64
	LoadAvgNanos       int64
	Evictions          int64
	EvictedBytes       int64
	Anomalies          int64
	Snapshots          int64
	LastUtilizationPct float64
}
