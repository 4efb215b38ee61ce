package respool

import "time"

// Stats is a read-only snapshot of pool state for telemetry.
type Stats struct {
	EntryCount     int     `json:"entry_count" yaml:"entry_count"`
	CurrentBytes   int64   `json:"current_bytes" yaml:"current_bytes"`
	MaxBytes       int64   `json:"max_bytes" yaml:"max_bytes"`
	Utilization    float64 `json:"utilization" yaml:"utilization"`
	UtilizationPct float64 `json:"utilization_pct" yaml:"utilization_pct"`
	CacheHits      int64   `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses    int64   `json:"cache_misses" yaml:"cache_misses"`
	EvictionCount  int64   `json:"eviction_count" yaml:"eviction_count"`
	EvictedBytes   int64   `json:"evicted_bytes" yaml:"evicted_bytes"`

	// PooledByKind counts wrapper nodes ready for reuse per kind.
	PooledByKind map[string]int `json:"pooled_by_kind" yaml:"pooled_by_kind"`

	PendingCreations int   `json:"pending_creations" yaml:"pending_creations"`
	InFlightLoads    int64 `json:"in_flight_loads" yaml:"in_flight_loads"`
	QueuedLoads      int64 `json:"queued_loads" yaml:"queued_loads"`
	// PendingJoins counts misses that attached to an existing creation.
	PendingJoins  int64 `json:"pending_joins" yaml:"pending_joins"`
	FactoryErrors int64 `json:"factory_errors" yaml:"factory_errors"`

	EvictionDeadlocks   int64 `json:"eviction_deadlocks" yaml:"eviction_deadlocks"`
	InvalidKeyStates    int64 `json:"invalid_key_states" yaml:"invalid_key_states"`
	ForcedDisposals     int64 `json:"forced_disposals" yaml:"forced_disposals"`
	AccountingAnomalies int64 `json:"accounting_anomalies" yaml:"accounting_anomalies"`
	DisposeErrors       int64 `json:"dispose_errors" yaml:"dispose_errors"`
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// EntryInfo describes one live entry.
type EntryInfo struct {
	Key            string
	SizeBytes      int64
	RefCount       int
	Priority       int
	Exempt         bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    uint64
	// Score is the eviction score at inspection time. Lower evicts sooner.
	Score float64
}
