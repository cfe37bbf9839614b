// Package metric exposes run counters for the target on a private
// Prometheus registry.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the target's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MessagesTotal       *prometheus.CounterVec
	RecordsWrittenTotal *prometheus.CounterVec
	BatchesTotal        *prometheus.CounterVec
	BatchWriteDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_csv",
				Name:      "messages_total",
				Help:      "Singer messages read, by message type",
			},
			[]string{"type"},
		),

		RecordsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_csv",
				Name:      "records_written_total",
				Help:      "CSV rows appended, by stream",
			},
			[]string{"stream"},
		),

		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_csv",
				Name:      "batches_total",
				Help:      "Batches drained to disk, by stream",
			},
			[]string{"stream"},
		),

		BatchWriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "target_csv",
				Name:      "batch_write_seconds",
				Help:      "Time spent sorting and appending one batch",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stream"},
		),
	}

	m.registry.MustRegister(
		m.MessagesTotal,
		m.RecordsWrittenTotal,
		m.BatchesTotal,
		m.BatchWriteDuration,
	)
	return m
}

// Registry returns the registry holding the target's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMessage counts one input message of the given type.
func (m *Metrics) ObserveMessage(msgType string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(msgType).Inc()
}

// ObserveBatch records a drained batch of n rows that took d to write.
func (m *Metrics) ObserveBatch(stream string, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(stream).Inc()
	m.RecordsWrittenTotal.WithLabelValues(stream).Add(float64(n))
	m.BatchWriteDuration.WithLabelValues(stream).Observe(d.Seconds())
}
