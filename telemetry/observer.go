package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/respool"
)

// Observer records pool events as Prometheus metrics.
type Observer struct {
	lookups       *prometheus.CounterVec
	loadLatency   *prometheus.HistogramVec
	evictions     *prometheus.CounterVec
	evictedBytes  *prometheus.CounterVec
	anomalies     *prometheus.CounterVec
	utilization   prometheus.Gauge
	snapshotBytes prometheus.Gauge
	snapshotTicks prometheus.Counter
}

// NewObserver creates an observer and registers its metrics with reg.
// A nil reg leaves the metrics unregistered.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "GetOrCreate lookups by result.",
		}, []string{"result"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Factory latency by status.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"status"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observed",
			Name:      "evictions_total",
			Help:      "Evictions by reason.",
		}, []string{"reason"}),
		evictedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observed",
			Name:      "evicted_bytes_total",
			Help:      "Bytes evicted by reason.",
		}, []string{"reason"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Recorded anomalies by kind.",
		}, []string{"kind"}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "utilization_ratio",
			Help:      "Utilization at the last maintenance tick.",
		}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "bytes",
			Help:      "Accounted bytes at the last maintenance tick.",
		}),
		snapshotTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "ticks_total",
			Help:      "Completed maintenance ticks.",
		}),
	}

	if reg != nil {
		reg.MustRegister(o.Collectors()...)
	}
	return o
}

// Collectors returns every metric owned by the observer.
func (o *Observer) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		o.lookups, o.loadLatency, o.evictions, o.evictedBytes,
		o.anomalies, o.utilization, o.snapshotBytes, o.snapshotTicks,
	}
}

// RecordLookup implements respool.MetricsCollector.
func (o *Observer) RecordLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	o.lookups.WithLabelValues(result).Inc()
}

// RecordLoad implements respool.MetricsCollector.
func (o *Observer) RecordLoad(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.loadLatency.WithLabelValues(status).Observe(d.Seconds())
}

// RecordEviction implements respool.MetricsCollector.
func (o *Observer) RecordEviction(reason respool.EvictionReason, sizeBytes int64) {
	o.evictions.WithLabelValues(reason.String()).Inc()
	o.evictedBytes.WithLabelValues(reason.String()).Add(float64(sizeBytes))
}

// RecordAnomaly implements respool.MetricsCollector.
func (o *Observer) RecordAnomaly(kind respool.AnomalyKind) {
	o.anomalies.WithLabelValues(kind.String()).Inc()
}

// RecordSnapshot implements respool.MetricsCollector.
func (o *Observer) RecordSnapshot(s respool.Stats) {
	o.utilization.Set(s.Utilization)
	o.snapshotBytes.Set(float64(s.CurrentBytes))
	o.snapshotTicks.Inc()
}

var _ respool.MetricsCollector = (*Observer)(nil)
