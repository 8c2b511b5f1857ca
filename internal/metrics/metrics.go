// Package metrics registers the Prometheus collectors of the vault.
// HTTP metrics are recorded by Middleware; business metrics are updated from the service layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localvault_http_requests_total",
			Help: "Total HTTP requests served by the local API",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "localvault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	// OperationsTotal counts registry actions by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localvault_operations_total",
			Help: "Registry actions by operation and result",
		},
		[]string{"operation", "result"},
	)

	// FilesTotal is the length of the in-memory file list.
	FilesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localvault_files_total",
			Help: "Files currently listed by the registry",
		},
	)

	// StoredBytes is the summed content size of listed files.
	StoredBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localvault_stored_bytes",
			Help: "Content bytes of the listed files",
		},
	)

	UsageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localvault_usage_bytes",
			Help: "Last storage usage estimate in bytes",
		},
	)

	QuotaBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localvault_quota_bytes",
			Help: "Last storage quota estimate in bytes",
		},
	)

	ObjectURLsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localvault_object_urls_live",
			Help: "Object URLs issued and not yet revoked",
		},
	)

	ObjectURLsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localvault_object_urls_created_total",
			Help: "Object URLs issued for previews and downloads",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localvault_notifications_total",
			Help: "Notifications emitted by level",
		},
		[]string{"level"},
	)
)

// Result labels for OperationsTotal.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Observe records the outcome of one registry action.
func Observe(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	OperationsTotal.WithLabelValues(operation, result).Inc()
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
