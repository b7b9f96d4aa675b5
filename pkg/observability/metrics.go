package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream API metrics (Auth0 Management API, FGA API, board store)
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Machine token cache metrics
	TokenRefreshesTotal *prometheus.CounterVec
	TokenFetchFailures  *prometheus.CounterVec

	// Role synchronizer metrics
	RoleSyncTotal *prometheus.CounterVec

	// Sign-up metrics
	SignupsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginlab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loginlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginlab_upstream_requests_total",
				Help: "Total number of calls to upstream APIs",
			},
			[]string{"api", "operation", "status"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loginlab_upstream_request_duration_seconds",
				Help:    "Upstream API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api", "operation"},
		),
		TokenRefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginlab_token_refreshes_total",
				Help: "Total number of client-credentials token fetches",
			},
			[]string{"api"},
		),
		TokenFetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginlab_token_fetch_failures_total",
				Help: "Total number of failed client-credentials token fetches",
			},
			[]string{"api"},
		),
		RoleSyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginlab_role_sync_total",
				Help: "Role synchronizer invocations by outcome",
			},
			[]string{"outcome"},
		),
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginlab_signups_total",
				Help: "Sign-up attempts by result",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.TokenRefreshesTotal,
		m.TokenFetchFailures,
		m.RoleSyncTotal,
		m.SignupsTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveUpstreamRequest records a completed upstream API call
func (m *Metrics) ObserveUpstreamRequest(api, operation string, status int, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(api, operation, strconv.Itoa(status)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(api, operation).Observe(duration.Seconds())
}
