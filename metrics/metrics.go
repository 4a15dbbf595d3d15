package metrics

import (
	"context"
	"strconv"
	"time"

	"govdocs/events"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "govdocs",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Committed workflow transitions",
		},
		[]string{"entity", "action", "to"},
	)

	uploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "govdocs",
			Subsystem: "files",
			Name:      "rejected_total",
			Help:      "Uploads refused by size or type checks",
		},
		[]string{"reason"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "govdocs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Observer counts committed transitions.
var Observer events.Observer = events.ObserverFunc(func(_ context.Context, t events.Transition) {
	transitionsTotal.WithLabelValues(t.Entity, t.Action, t.To).Inc()
})

// UploadRejected records a refused upload; reason is the error kind.
func UploadRejected(reason string) {
	uploadsRejected.WithLabelValues(reason).Inc()
}

// Middleware observes request latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		httpDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
