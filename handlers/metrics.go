package handlers

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/database"
	"github.com/kate8382/error-logger-viewer/hub"
)

// Metrics owns the Prometheus registry served on /metrics.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

// NewMetrics registers the service metrics on a fresh registry. feed may be nil.
func NewMetrics(feed *hub.Hub) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "error_logger_operations_total",
			Help: "Record operations by operation and outcome.",
		}, []string{"op", "outcome"}),
	}

	m.registry.MustRegister(
		m.operations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "error_logger_sqlite_busy_errors_total",
			Help: "SQLITE_BUSY failures in the local store.",
		}, func() float64 { return float64(database.SQLiteBusyErrorsTotal()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "error_logger_sqlite_locked_errors_total",
			Help: "SQLITE_LOCKED failures in the local store.",
		}, func() float64 { return float64(database.SQLiteLockedErrorsTotal()) }),
	)

	if feed != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "error_logger_change_feed_subscribers",
				Help: "Open change feed subscriptions.",
			}, func() float64 { return float64(feed.Subscribers()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "error_logger_change_feed_dropped_total",
				Help: "Change events dropped for slow subscribers.",
			}, func() float64 { return float64(feed.Dropped()) }),
		)
	}
	return m
}

// Observe counts one operation. The outcome is "ok" or the lowercased error code.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(core.WireCode(err))
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
