package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_location_publishes_total",
		Help: "The total number of accepted location samples",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "delivery_location_active_streams",
		Help: "The number of currently open tracking streams",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_location_request_duration_seconds",
		Help:    "Time spent handling tracking requests",
		Buckets: prometheus.DefBuckets,
	})
)

func (s *Server) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		requestDuration.Observe(time.Since(start).Seconds())
		return err
	}
}
