package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the service. promauto registers everything with the
// default registry, exposed via /metrics.

var (
	// ==================== HTTP METRICS ====================

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// ==================== CACHE METRICS ====================

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"}, // get, set, delete
	)

	// ==================== RATE LIMITING METRICS ====================

	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of rate-limited requests",
		},
	)

	RateLimitAllowedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_allowed_requests_total",
			Help: "Total number of requests allowed by rate limiter",
		},
	)

	// ==================== BUSINESS METRICS ====================

	LinksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Total number of links created",
		},
	)

	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of successful redirects",
		},
	)

	ClicksRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_recorded_total",
			Help: "Total number of click events recorded",
		},
	)

	ClickRecordFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_record_failures_total",
			Help: "Total number of click events dropped because capture failed",
		},
	)

	GeoLookupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geo_lookup_failures_total",
			Help: "Total number of failed geolocation lookups",
		},
	)

	DashboardRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total number of dashboard aggregations served",
		},
	)

	// ==================== DATABASE METRICS ====================

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"operation"},
	)
)

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { CacheHitsTotal.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { CacheMissesTotal.Inc() }

// RecordLinkCreated increments the link creation counter.
func RecordLinkCreated() { LinksCreatedTotal.Inc() }

// RecordRedirect increments the redirect counter.
func RecordRedirect() { RedirectsTotal.Inc() }

// RecordClickRecorded increments the click capture counter.
func RecordClickRecorded() { ClicksRecordedTotal.Inc() }

// RecordClickRecordFailure counts a click event lost to a capture failure.
func RecordClickRecordFailure() { ClickRecordFailuresTotal.Inc() }

// RecordGeoLookupFailure counts a failed geolocation lookup.
func RecordGeoLookupFailure() { GeoLookupFailuresTotal.Inc() }

// RecordDashboardRequest increments the dashboard aggregation counter.
func RecordDashboardRequest() { DashboardRequestsTotal.Inc() }

// RecordRateLimited increments the rate-limited requests counter.
func RecordRateLimited() { RateLimitedRequestsTotal.Inc() }

// RecordRateLimitAllowed increments the allowed requests counter.
func RecordRateLimitAllowed() { RateLimitAllowedRequestsTotal.Inc() }
