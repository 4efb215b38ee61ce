// Package telemetry exposes pool statistics to Prometheus.
//
// Exporter is a prometheus.Collector that reads a Stats snapshot on every
// scrape. Observer is a respool.MetricsCollector that records per-event
// histograms and counters as they happen. Both can be used together:
//
//	obs := telemetry.NewObserver(prometheus.DefaultRegisterer)
//	pool, _ := respool.New(cfg, respool.WithMetricsCollector(obs))
//	prometheus.MustRegister(telemetry.NewExporter(pool, nil))
package telemetry

const namespace = "respool"
