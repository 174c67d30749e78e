// Package metrics exposes prometheus collectors for routed requests and flow runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restflow"

// Metrics owns its registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	flowRows     *prometheus.CounterVec
	stepFailures *prometheus.CounterVec
	publishFails prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "requests",
				Name:      "total",
				Help:      "Total number of routed requests by final status.",
			},
			[]string{"route", "status", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "requests",
				Name:      "duration_seconds",
				Help:      "Duration of routed requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"route"},
		),
		flowRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flows",
				Name:      "rows_total",
				Help:      "Rows processed by flow runs.",
			},
			[]string{"flow"},
		),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flows",
				Name:      "step_failures_total",
				Help:      "Failed flow steps by action type.",
			},
			[]string{"action"},
		),
		publishFails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "publish_failures_total",
				Help:      "Lifecycle events that could not be published.",
			},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.flowRows,
		m.stepFailures,
		m.publishFails,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return m
}

// Registry exposes the collectors, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, status string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(route, status, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) AddFlowRows(flow string, rows int) {
	if m == nil || rows <= 0 {
		return
	}

	m.flowRows.WithLabelValues(flow).Add(float64(rows))
}

func (m *Metrics) StepFailed(action string) {
	if m == nil {
		return
	}

	m.stepFailures.WithLabelValues(action).Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}

	m.publishFails.Inc()
}
