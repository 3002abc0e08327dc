package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentwallet/agentwallet-go/pkg/acp"
)

var (
	sandboxRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentwallet_sandbox_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	sandboxRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentwallet_sandbox_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	acpTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentwallet_sandbox_acp_transitions_total",
		Help: "ACP job transitions by transition and result.",
	}, []string{"transition", "result"})

	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agentwallet_sandbox_webhook_deliveries_total",
		Help: "Webhook delivery attempts by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		sandboxRequestsTotal.WithLabelValues(method, path, status).Inc()
		sandboxRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func recordTransition(t acp.Transition, ok bool) {
	result := "accepted"
	if !ok {
		result = "rejected"
	}
	acpTransitionsTotal.WithLabelValues(string(t), result).Inc()
}

// RecordWebhookDelivery records a webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		webhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		webhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
