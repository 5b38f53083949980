package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics holds the Prometheus request instruments and their registry.
type HTTPMetrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics registers request counters, latency histograms and the Go runtime
// collectors on a dedicated registry.
func NewHTTPMetrics() *HTTPMetrics {
	m := &HTTPMetrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}
	m.registry.MustRegister(
		m.requestCounter,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *HTTPMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records one observation per request, labelled by route template.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.requestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
