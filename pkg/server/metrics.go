package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors. Each Metrics owns its
// registry so several servers can coexist in one process.
type Metrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	routeCounter    *prometheus.CounterVec
	routeDuration   *prometheus.HistogramVec
	initCounter     *prometheus.CounterVec
	liveRouters     prometheus.Gauge
	rateLimited     prometheus.Counter
}

// NewMetrics creates and registers the server collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routerd",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "routerd",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "path"},
		),
		routeCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routerd",
				Subsystem: "router",
				Name:      "routes_total",
				Help:      "Queries routed, by router kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		routeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "routerd",
				Subsystem: "router",
				Name:      "route_duration_seconds",
				Help:      "Time spent ranking candidates for one query.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"kind"},
		),
		initCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routerd",
				Subsystem: "router",
				Name:      "initializations_total",
				Help:      "InitializeAll runs, by result.",
			},
			[]string{"result"},
		),
		liveRouters: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "routerd",
			Subsystem: "router",
			Name:      "live",
			Help:      "Number of live router instances.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "routerd",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// Middleware records request counts and latency. Paths are recorded as the
// matched route template to keep label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requestCounter.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) observeRoute(kind, outcome string, d time.Duration) {
	m.routeCounter.WithLabelValues(kind, outcome).Inc()
	m.routeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) observeInit(ok bool, live int) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.initCounter.WithLabelValues(result).Inc()
	m.liveRouters.Set(float64(live))
}
