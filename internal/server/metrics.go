package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "code"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of response latency (seconds) for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
	monitorCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftmon_cycles_total",
			Help: "Total number of monitoring cycles by outcome",
		},
		[]string{"drift_detected", "retrained"},
	)
	monitorCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftmon_cycle_duration_seconds",
			Help:    "Histogram of monitoring cycle duration (seconds)",
			Buckets: prometheus.DefBuckets,
		},
	)
	referenceGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftmon_reference_generation",
			Help: "Generation counter of the currently held reference dataset",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(monitorCyclesTotal)
	prometheus.MustRegister(monitorCycleDuration)
	prometheus.MustRegister(referenceGeneration)
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(handler, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(handler, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func observeCycle(driftDetected, retrained bool, duration time.Duration, generation uint64) {
	monitorCyclesTotal.WithLabelValues(strconv.FormatBool(driftDetected), strconv.FormatBool(retrained)).Inc()
	monitorCycleDuration.Observe(duration.Seconds())
	referenceGeneration.Set(float64(generation))
}
