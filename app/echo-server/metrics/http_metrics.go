package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by route",
	}, []string{"method", "route", "status"})
)

func Init() {
	prometheus.MustRegister(RequestDuration, RequestTotal)
}

// Middleware records every request under its route template, so
// /customers/:id/profile stays one series.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			RequestDuration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			return nil
		}
	}
}
