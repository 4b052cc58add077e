package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	toolCalls      *prometheus.CounterVec
	toolLatency    *prometheus.HistogramVec
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New registers the collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dairy_mcp",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		}, []string{"tool", "status"}),
		toolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dairy_mcp",
			Subsystem: "tools",
			Name:      "call_duration_seconds",
			Help:      "MCP tool call duration including backend round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dairy_mcp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dairy_mcp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveTool records one tool call.
func (m *Metrics) ObserveTool(tool, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.requestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
