package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Tenant resolution counter by mechanism
	TenantResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_tenant_resolutions_total",
			Help: "Total number of successful tenant resolutions by mechanism",
		},
		[]string{"method"}, // "header", "subdomain", "custom_domain", "query"
	)

	// Guard rejection counter
	GuardRejectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_guard_rejections_total",
			Help: "Total number of requests rejected by tenant guards",
		},
		[]string{"reason"}, // "no_tenant", "suspended", "past_due", "feature", "tier", "usage_limit"
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // "register", "access", "update", "stats", etc.
	)

	// Stripe webhook event counter
	WebhookEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_webhook_events_total",
			Help: "Total number of billing webhook events processed by type",
		},
		[]string{"type"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Scoped repository operation duration
	RepoOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_repository_operation_duration_seconds",
			Help:    "Duration of tenant-scoped repository operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity", "operation"}, // operation can be "list", "get", "create", "update", "delete", "count"
	)
)

// Gauge metrics
var (
	// Active tenants
	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_active_tenants",
			Help: "Number of currently active tenants",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_info",
			Help: "Information about the dashboard service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(TenantResolutionCounter)
	prometheus.MustRegister(GuardRejectionCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(WebhookEventCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RepoOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTenantsGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackRepoOperation measures scoped repository operation durations
func TrackRepoOperation(entity, operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		RepoOperationDuration.With(prometheus.Labels{
			"entity":    entity,
			"operation": operation,
		}).Observe(duration)
	}
}

// RecordResolution records a successful tenant resolution by mechanism
func RecordResolution(method string) {
	TenantResolutionCounter.With(prometheus.Labels{"method": method}).Inc()
}

// RecordGuardRejection records a request rejected by a tenant guard
func RecordGuardRejection(reason string) {
	GuardRejectionCounter.With(prometheus.Labels{"reason": reason}).Inc()
}

// RecordTenantOperation records a tenant operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordWebhookEvent records a processed billing webhook event
func RecordWebhookEvent(eventType string) {
	WebhookEventCounter.With(prometheus.Labels{"type": eventType}).Inc()
}

// UpdateActiveTenants updates the active tenants gauge
func UpdateActiveTenants(count int64) {
	ActiveTenantsGauge.Set(float64(count))
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}
