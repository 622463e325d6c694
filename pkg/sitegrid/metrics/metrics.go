// Package metrics exposes prometheus instrumentation: an HTTP middleware
// and gauges tracking the registered entity counts.
package metrics

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"sitegrid/pkg/sitegrid/models"
)

const namespace = "sitegrid"

// Metrics holds the HTTP request collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers and returns the HTTP metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Middleware records every request against the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RegisterEntityGauges exposes site and group counts as gauges queried
// from the store on scrape.
func RegisterEntityGauges(reg prometheus.Registerer, db *gorm.DB, logger *slog.Logger) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sites_total",
		Help:      "Registered sites",
	}, func() float64 {
		return countRows(db, &models.Site{}, logger)
	}))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "groups_total",
		Help:      "Registered groups",
	}, func() float64 {
		return countRows(db, &models.Group{}, logger)
	}))
}

func countRows(db *gorm.DB, model interface{}, logger *slog.Logger) float64 {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		if logger != nil {
			logger.Warn("metrics count failed", "error", err)
		}
		return 0
	}
	return float64(count)
}
