package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 结果缓存指标：批量读路径上 miss 意味着一致性缺陷，需要报警
	ResultsCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "results_cache_hits_total",
			Help: "Total number of results cache hits",
		},
	)

	ResultsCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "results_cache_misses_total",
			Help: "Total number of results cache misses for published evaluations",
		},
	)

	ResultsCacheRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "results_cache_refreshes_total",
			Help: "Total number of per-evaluation results cache refreshes",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ResultsCacheHits)
	prometheus.MustRegister(ResultsCacheMisses)
	prometheus.MustRegister(ResultsCacheRefreshes)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
