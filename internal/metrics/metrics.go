// Package metrics exposes Prometheus instruments for the sync client:
// storage requests, whole syncs and per-engine record counts.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sync15"

// Metrics holds every instrument the client records.
type Metrics struct {
	// StorageRequests counts storage and token server requests.
	// Labels: method, status (HTTP status code or "error")
	StorageRequests *prometheus.CounterVec

	// Syncs counts finished syncs by their overall status.
	// Labels: status
	Syncs *prometheus.CounterVec

	// SyncDuration observes how long a whole sync took.
	SyncDuration prometheus.Histogram

	// Records counts records per engine.
	// Labels: engine, outcome (applied, failed, reconciled, sent, send_failed)
	Records *prometheus.CounterVec
}

// New registers the instruments on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StorageRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests sent to the token server and storage node",
		}, []string{"method", "status"}),
		Syncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Finished syncs by service status",
		}, []string{"status"}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of a whole sync",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records processed per engine and outcome",
		}, []string{"engine", "outcome"}),
	}
}

// ObserveRequest records one HTTP exchange. status is 0 when the request
// never got a response.
func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.StorageRequests.WithLabelValues(method, label).Inc()
}

// ObserveSync records a finished sync.
func (m *Metrics) ObserveSync(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.Syncs.WithLabelValues(status).Inc()
	m.SyncDuration.Observe(took.Seconds())
}

// AddRecords adds n to the engine's outcome counter. Zero is ignored.
func (m *Metrics) AddRecords(engine, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Records.WithLabelValues(engine, outcome).Add(float64(n))
}
