package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dakshkarigar/marketplace-api/internal/app"
)

const namespace = "marketplace"

// Recorder exposes reassignment cycle statistics as Prometheus metrics.
type Recorder struct {
	cycles        prometheus.Counter
	scanFailures  prometheus.Counter
	orders        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	lastScanned   prometheus.Gauge
}

// NewRecorder registers the reassignment metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reassignment",
			Name:      "cycles_total",
			Help:      "Reassignment cycles that completed a scan.",
		}),
		scanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reassignment",
			Name:      "scan_failures_total",
			Help:      "Reassignment cycles aborted because the expiry scan failed.",
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reassignment",
			Name:      "orders_total",
			Help:      "Orders processed by reassignment cycles, by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reassignment",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of reassignment cycles.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		lastScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reassignment",
			Name:      "last_cycle_scanned_orders",
			Help:      "Stale assignments found by the most recent cycle.",
		}),
	}
	reg.MustRegister(r.cycles, r.scanFailures, r.orders, r.cycleDuration, r.lastScanned)
	return r
}

func (r *Recorder) RecordCycle(report app.CycleReport) {
	r.cycles.Inc()
	r.cycleDuration.Observe(report.Duration.Seconds())
	r.lastScanned.Set(float64(report.Scanned))

	r.orders.WithLabelValues(string(app.OutcomeReassigned)).Add(float64(report.Reassigned))
	r.orders.WithLabelValues(string(app.OutcomeExpired)).Add(float64(report.Expired))
	r.orders.WithLabelValues(string(app.OutcomeConflict)).Add(float64(report.Conflicts))
	r.orders.WithLabelValues(string(app.OutcomeFailed)).Add(float64(report.Failures))
}

func (r *Recorder) RecordScanFailure() {
	r.scanFailures.Inc()
}
