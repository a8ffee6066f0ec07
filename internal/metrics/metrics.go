package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the gate.
type Metrics struct {
	registry *prometheus.Registry

	// Scan decisions by status
	ScanOutcome *prometheus.CounterVec

	// Scan handling latency, including any registry wait
	ScanLatency prometheus.Histogram

	// Steward check-ins
	StewardCheckIns prometheus.Counter

	// Registry lookups by outcome
	RegistryOutcome *prometheus.CounterVec

	// Sessions closed by the reconcile job
	SessionsReconciled prometheus.Counter
}

// New creates a Metrics instance on its own registry, so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ScanOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_scans_total",
			Help: "Total badge scans by decision status",
		}, []string{"status"}), // status: "verified", "unlisted", "duplicate", "signed_out", "error"

		ScanLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gate_scan_duration_seconds",
			Help:    "Duration of scan handling including registry enrichment",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		StewardCheckIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "gate_steward_checkins_total",
			Help: "Total steward check-ins recorded by name",
		}),

		RegistryOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_registry_lookups_total",
			Help: "Total licence register lookups by outcome",
		}, []string{"outcome"}),

		SessionsReconciled: factory.NewCounter(prometheus.CounterOpts{
			Name: "gate_sessions_reconciled_total",
			Help: "Total stale sessions closed by reconciliation",
		}),
	}
}

// IncrementScan records a scan decision.
func (m *Metrics) IncrementScan(status string) {
	if m != nil {
		m.ScanOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveScanLatency records how long a scan took to answer.
func (m *Metrics) ObserveScanLatency(d time.Duration) {
	if m != nil {
		m.ScanLatency.Observe(d.Seconds())
	}
}

// IncrementSteward records a steward check-in.
func (m *Metrics) IncrementSteward() {
	if m != nil {
		m.StewardCheckIns.Inc()
	}
}

// IncrementRegistry records a registry lookup outcome.
func (m *Metrics) IncrementRegistry(outcome string) {
	if m != nil {
		m.RegistryOutcome.WithLabelValues(outcome).Inc()
	}
}

// AddReconciled records sessions closed by reconciliation.
func (m *Metrics) AddReconciled(n int64) {
	if m != nil && n > 0 {
		m.SessionsReconciled.Add(float64(n))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
