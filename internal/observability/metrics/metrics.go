package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics tracks inbound request counts and latency.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleapay_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleapay_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GinMiddleware records request metrics for every handled route.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Metrics exposes domain-level instruments.
type Metrics struct {
	webhookEvents  *prometheus.CounterVec
	orphanEvents   *prometheus.CounterVec
	feeResolutions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		webhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleapay_webhook_events_total",
			Help: "Processor lifecycle events by provider, type and result.",
		}, []string{"provider", "event_type", "result"}),
		orphanEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleapay_orphan_events_total",
			Help: "Lifecycle events dropped because no ledger record matched.",
		}, []string{"event_type"}),
		feeResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleapay_fee_resolutions_total",
			Help: "Fee rate resolutions by tier and rate source.",
		}, []string{"tier", "source"}),
	}
}

func (m *Metrics) RecordWebhookEvent(provider, eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalize(provider), normalize(eventType), normalize(result)).Inc()
}

func (m *Metrics) RecordOrphanEvent(eventType string) {
	if m == nil {
		return
	}
	m.orphanEvents.WithLabelValues(normalize(eventType)).Inc()
}

func (m *Metrics) RecordFeeResolution(tier int, source string) {
	if m == nil {
		return
	}
	m.feeResolutions.WithLabelValues(strconv.Itoa(tier), normalize(source)).Inc()
}

func normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
