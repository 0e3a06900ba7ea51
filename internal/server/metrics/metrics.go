// Package metrics exposes the server's Prometheus collectors. All methods
// are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth decision outcomes.
const (
	OutcomeExcluded     = "excluded"
	OutcomeAllowed      = "allowed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
)

type Metrics struct {
	registry *prometheus.Registry

	authDecisions   *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		authDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Authentication decisions by strategy and outcome",
		}, []string{"strategy", "outcome"}),

		sessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Sessions created and destroyed",
		}, []string{"event"}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Password logins by outcome",
		}, []string{"method", "outcome"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling time by transport, route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "route", "status"}),
	}
}

// Registry is the registry backing Handler.
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
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackTable exports the size of an entity table as a gauge.
func (m *Metrics) TrackTable(namespace, kind string, count func() int) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "table_records",
		Help:        "Records held per entity table",
		ConstLabels: prometheus.Labels{"table": kind},
	}, func() float64 { return float64(count()) })
}

func (m *Metrics) ObserveAuth(strategy, outcome string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) ObserveSession(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveLogin(method, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveRequest(transport, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(transport, route, strconv.Itoa(status)).Observe(d.Seconds())
}
