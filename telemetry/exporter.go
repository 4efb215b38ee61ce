package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/respool"
)

// StatsSource is anything that can produce a pool snapshot.
// *respool.Pool satisfies it.
type StatsSource interface {
	Stats() respool.Stats
}

type statDesc struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(s *respool.Stats) float64
}

// Exporter collects a Stats snapshot per scrape.
type Exporter struct {
	source StatsSource
	stats  []statDesc
	pooled *prometheus.Desc
}

// NewExporter returns a collector over source. constLabels are attached to
// every metric, which lets several pools share one registry.
func NewExporter(source StatsSource, constLabels prometheus.Labels) *Exporter {
	newDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	gauge := func(name, help string, fn func(s *respool.Stats) float64) statDesc {
		return statDesc{desc: newDesc(name, help), valueType: prometheus.GaugeValue, value: fn}
	}
	counter := func(name, help string, fn func(s *respool.Stats) float64) statDesc {
		return statDesc{desc: newDesc(name, help), valueType: prometheus.CounterValue, value: fn}
	}

	return &Exporter{
		source: source,
		stats: []statDesc{
			gauge("entries", "Live cache entries.", func(s *respool.Stats) float64 { return float64(s.EntryCount) }),
			gauge("bytes", "Bytes accounted to live entries.", func(s *respool.Stats) float64 { return float64(s.CurrentBytes) }),
			gauge("max_bytes", "Configured memory budget.", func(s *respool.Stats) float64 { return float64(s.MaxBytes) }),
			gauge("utilization_ratio", "Accounted bytes over the budget.", func(s *respool.Stats) float64 { return s.Utilization }),
			gauge("pending_creations", "Creations registered but not landed.", func(s *respool.Stats) float64 { return float64(s.PendingCreations) }),
			gauge("loads_in_flight", "Factories currently running.", func(s *respool.Stats) float64 { return float64(s.InFlightLoads) }),
			gauge("loads_queued", "Creations waiting for a load slot.", func(s *respool.Stats) float64 { return float64(s.QueuedLoads) }),
			counter("hits_total", "Lookups served from the cache.", func(s *respool.Stats) float64 { return float64(s.CacheHits) }),
			counter("misses_total", "Lookups that started a creation.", func(s *respool.Stats) float64 { return float64(s.CacheMisses) }),
			counter("pending_joins_total", "Lookups that joined an in-flight creation.", func(s *respool.Stats) float64 { return float64(s.PendingJoins) }),
			counter("evictions_total", "Entries evicted.", func(s *respool.Stats) float64 { return float64(s.EvictionCount) }),
			counter("evicted_bytes_total", "Bytes released by eviction.", func(s *respool.Stats) float64 { return float64(s.EvictedBytes) }),
			counter("factory_errors_total", "Factory calls that failed.", func(s *respool.Stats) float64 { return float64(s.FactoryErrors) }),
			counter("eviction_deadlocks_total", "Cleanups that could not reach their target.", func(s *respool.Stats) float64 { return float64(s.EvictionDeadlocks) }),
			counter("invalid_key_states_total", "Releases and disposes of unknown or unreferenced keys.", func(s *respool.Stats) float64 { return float64(s.InvalidKeyStates) }),
			counter("forced_disposals_total", "Entries destroyed while still referenced.", func(s *respool.Stats) float64 { return float64(s.ForcedDisposals) }),
			counter("accounting_anomalies_total", "Accountant underflows.", func(s *respool.Stats) float64 { return float64(s.AccountingAnomalies) }),
			counter("dispose_errors_total", "Handle disposals that failed.", func(s *respool.Stats) float64 { return float64(s.DisposeErrors) }),
		},
		pooled: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "objectpool", "pooled"),
			"Free scene-graph nodes held per kind.",
			[]string{"kind"}, constLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, sd := range e.stats {
		ch <- sd.desc
	}
	ch <- e.pooled
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.source.Stats()

	for _, sd := range e.stats {
		ch <- prometheus.MustNewConstMetric(sd.desc, sd.valueType, sd.value(&s))
	}
	for kind, n := range s.PooledByKind {
		ch <- prometheus.MustNewConstMetric(e.pooled, prometheus.GaugeValue, float64(n), kind)
	}
}

var _ prometheus.Collector = (*Exporter)(nil)
