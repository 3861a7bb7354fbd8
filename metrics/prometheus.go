package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "scratch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	recordWrites    prom.Counter
	recordSkips     *prom.CounterVec
	spacesDeleted   *prom.CounterVec
	deleteFailures  prom.Counter
	orphansPending  prom.Gauge
	collectDuration prom.Histogram
}

// NewPrometheusRecorder constructs the scratch metrics and registers them with
// reg. A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		recordWrites: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "usage_record_writes_total",
			Help:      "Usage records persisted to disk",
		}),
		recordSkips: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "usage_record_skips_total",
			Help:      "Space accesses that did not write a usage record, by reason",
		}, []string{"reason"}),
		spacesDeleted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "spaces_deleted_total",
			Help:      "Spaces removed, by kind of removal",
		}, []string{"kind"}),
		deleteFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "delete_failures_total",
			Help:      "Space deletions that failed during a sweep",
		}),
		orphansPending: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans_pending",
			Help:      "Unrecorded spaces waiting out the orphan grace period after the last sweep",
		}),
		collectDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "collect_duration_seconds",
			Help:      "Duration of garbage collection sweeps",
			Buckets:   prom.DefBuckets,
		}),
	}

	reg.MustRegister(pr.recordWrites, pr.recordSkips, pr.spacesDeleted, pr.deleteFailures, pr.orphansPending, pr.collectDuration)
	return pr
}

func (p *PrometheusRecorder) IncRecordWrite() { p.recordWrites.Inc() }

func (p *PrometheusRecorder) IncRecordSkip(reason SkipReason) {
	p.recordSkips.WithLabelValues(string(reason)).Inc()
}

func (p *PrometheusRecorder) IncSpaceDeleted(kind DeleteKind) {
	p.spacesDeleted.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusRecorder) IncDeleteFailure() { p.deleteFailures.Inc() }

func (p *PrometheusRecorder) SetOrphansPending(n int) { p.orphansPending.Set(float64(n)) }

func (p *PrometheusRecorder) ObserveCollectDuration(d time.Duration) {
	p.collectDuration.Observe(d.Seconds())
}
