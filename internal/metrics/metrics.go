package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration observes HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PaymentsRecorded counts successfully appended payment records.
	PaymentsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_payments_recorded_total",
			Help: "Total number of payment records accepted by the ledger",
		},
	)

	// DuplicatesRejected counts replayed payment IDs rejected by the dedup
	// index. A nonzero rate is normal with at-least-once webhook delivery.
	DuplicatesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_duplicate_payments_rejected_total",
			Help: "Total number of duplicate payment IDs rejected",
		},
	)

	// WritesRejected counts writes refused by the access gate.
	WritesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_rejected_total",
			Help: "Total number of writes refused before reaching the log",
		},
		[]string{"reason"},
	)
)

// Middleware records request counts and latency for every route except the
// metrics endpoint itself.
func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	duration := time.Since(start).Seconds()
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
}
