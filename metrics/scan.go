package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScanMetrics counts probes and scan outcomes. A nil *ScanMetrics is a no-op.
type ScanMetrics struct {
	probes        *prometheus.CounterVec
	probeDuration prometheus.Histogram
	scans         *prometheus.CounterVec
	analyses      *prometheus.CounterVec
	submissions   *prometheus.CounterVec
}

func NewScanMetrics(registerer prometheus.Registerer) *ScanMetrics {
	factory := promauto.With(registerer)
	return &ScanMetrics{
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txrace_probes_total",
			Help: "Number of simulation probes by result (hit, miss, error, unreachable)",
		}, []string{"result"}),
		probeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txrace_probe_duration_seconds",
			Help:    "Duration of a single simulation probe",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txrace_scans_total",
			Help: "Number of backward scans by outcome",
		}, []string{"outcome"}),
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txrace_analyses_total",
			Help: "Number of analyses by outcome",
		}, []string{"outcome"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txrace_monitored_submissions_total",
			Help: "Number of monitored bot submissions by receipt status",
		}, []string{"status"}),
	}
}

func (m *ScanMetrics) ObserveProbe(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result).Inc()
	m.probeDuration.Observe(duration.Seconds())
}

func (m *ScanMetrics) ObserveScan(outcome string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
}

func (m *ScanMetrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

func (m *ScanMetrics) ObserveSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}
