// Package metrics provides Prometheus instrumentation for the dashboard service.
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

var (
	// StoreOperations counts persistence adapter calls by operation and result.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_store_operations_total",
		Help: "Persistent store operations by result",
	}, []string{"op", "result"})

	// NotificationsTotal counts notifications emitted by the state containers.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_notifications_total",
		Help: "Notifications emitted, partitioned by kind",
	}, []string{"kind"})

	// RejectedAdds counts add operations rejected by the membership rules.
	RejectedAdds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_rejected_adds_total",
		Help: "Portfolio and watchlist adds rejected as duplicates",
	}, []string{"collection"})

	// WebSocketClients tracks connected notification feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics labelled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
