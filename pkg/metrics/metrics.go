// Package metrics defines the Prometheus collectors of the import pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "schedule_importer"

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	importsTotal    *prometheus.CounterVec
	rejectedUploads *prometheus.CounterVec
	decodeDuration  *prometheus.HistogramVec
	remoteDuration  prometheus.Histogram
	notifications   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		importsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Completed import submissions by outcome category and mode.",
		}, []string{"category", "mode"}),
		rejectedUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_uploads_total",
			Help:      "Uploads rejected before submission, by reason.",
		}, []string{"reason"}),
		decodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time to decode and canonicalize an uploaded file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"format"}),
		remoteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Duration of remote import calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_notifications_total",
			Help:      "Import completion notifications by success flag.",
		}, []string{"success"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Import sessions currently held in memory.",
		}),
	}
}

func (m *Metrics) ObserveImport(category, mode string) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(category, mode).Inc()
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejectedUploads.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveDecode(format string, d time.Duration) {
	if m == nil {
		return
	}
	m.decodeDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) ObserveRemote(d time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveNotification(success bool) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	m.notifications.WithLabelValues(label).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
