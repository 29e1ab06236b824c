package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Permission metrics
	PermissionChecksTotal    *prometheus.CounterVec
	RoleResolutionsTotal     *prometheus.CounterVec
	LeadershipSoftFailsTotal prometheus.Counter

	// Identity directory metrics
	DirectoryLookupsTotal   *prometheus.CounterVec
	DirectoryLookupDuration *prometheus.HistogramVec
	GroupCacheHitsTotal     prometheus.Counter
	GroupCacheMissesTotal   prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	RegistrationsTotal prometheus.Gauge
	EventsTotal        prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basecamp_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "basecamp_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basecamp_permission_checks_total",
				Help: "Permission gate decisions by gate and outcome",
			},
			[]string{"gate", "outcome"},
		),
		RoleResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basecamp_role_resolutions_total",
				Help: "Event role resolutions by resulting role",
			},
			[]string{"role"},
		),
		LeadershipSoftFailsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "basecamp_leadership_soft_fails_total",
				Help: "Leadership resolutions that soft-failed because a well-known group was absent",
			},
		),
		DirectoryLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basecamp_directory_lookups_total",
				Help: "Identity directory lookups by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		DirectoryLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "basecamp_directory_lookup_duration_seconds",
				Help:    "Identity directory lookup duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GroupCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "basecamp_group_cache_hits_total",
				Help: "Group-set cache hits",
			},
		),
		GroupCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "basecamp_group_cache_misses_total",
				Help: "Group-set cache misses",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basecamp_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basecamp_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		RegistrationsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basecamp_registrations_total",
				Help: "Total registrations across all events",
			},
		),
		EventsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basecamp_events_total",
				Help: "Total events",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionChecksTotal,
		m.RoleResolutionsTotal,
		m.LeadershipSoftFailsTotal,
		m.DirectoryLookupsTotal,
		m.DirectoryLookupDuration,
		m.GroupCacheHitsTotal,
		m.GroupCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RegistrationsTotal,
		m.EventsTotal,
	)

	return m
}

// ObservePermissionCheck records a gate decision.
func (m *Metrics) ObservePermissionCheck(gate string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.PermissionChecksTotal.WithLabelValues(gate, outcome).Inc()
}

// ObserveDirectoryLookup records one identity directory round trip.
func (m *Metrics) ObserveDirectoryLookup(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.DirectoryLookupsTotal.WithLabelValues(operation, outcome).Inc()
	m.DirectoryLookupDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus scrape handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
