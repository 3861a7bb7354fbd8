// Package metrics provides observability hooks for scratch space tracking and
// garbage collection.
//
// The scratch Manager reports through a Recorder. NoopRecorder is used when no
// recorder is configured; PrometheusRecorder exports counters and gauges to a
// Prometheus registry:
//
//	reg := prometheus.NewRegistry()
//	m, err := scratch.New(scratch.WithRecorder(metrics.NewPrometheusRecorder(reg)))
package metrics
