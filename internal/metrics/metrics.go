// Package metrics exposes Prometheus instrumentation for renders, the chart
// cache and the interactive sessions.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DatasetRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satexplorer_dataset_rows",
		Help: "Rows in the loaded score dataset",
	})

	Renders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "satexplorer_chart_renders_total",
		Help: "Chart renders by format and outcome",
	}, []string{"format", "outcome"})

	RenderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "satexplorer_chart_render_seconds",
		Help:    "Time spent filtering and rendering one chart",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "satexplorer_chart_cache_lookups_total",
		Help: "Chart cache lookups by result",
	}, []string{"result"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satexplorer_ws_sessions_active",
		Help: "Open interactive WebSocket sessions",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "satexplorer_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"route", "status"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(DatasetRows, Renders, RenderDuration, CacheLookups, ActiveSessions, HTTPRequests)
}

// ObserveRender records one render attempt.
func ObserveRender(format string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Renders.WithLabelValues(format, outcome).Inc()
	RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

// Middleware counts requests per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
