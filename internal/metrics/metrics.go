// Package metrics: коллекторы Prometheus сервиса на собственном реестре.
// Все методы безопасны для nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	dbRetries         *prometheus.CounterVec
	databaseConnected prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		dbRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_db_retries_total",
			Help: "Database attempts that failed and were retried, by operation.",
		}, []string{"op"}),
		databaseConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helpdesk_database_connected",
			Help: "1 when the availability gate considers the database reachable.",
		}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.dbRetries,
		m.databaseConnected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) IncDBRetry(op string) {
	if m == nil {
		return
	}
	m.dbRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) SetDatabaseConnected(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.databaseConnected.Set(1)
		return
	}
	m.databaseConnected.Set(0)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry нужен тестам.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
