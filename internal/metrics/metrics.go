// Package metrics holds the Prometheus collectors of the service. They are
// registered on the default registry and exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Reservations
	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_attempts_total",
			Help: "Reservation creation attempts by outcome",
		},
		[]string{"outcome"}, // "created", "full", "closed", "error"
	)

	ReservationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_transitions_total",
			Help: "Reservation status transitions by target status",
		},
		[]string{"status"},
	)

	// Catalog
	SearchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_search_retries_total",
			Help: "Search attempts retried after a store fault",
		},
	)

	// Assistant
	AssistantIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intents_total",
			Help: "Decoded assistant intents by kind",
		},
		[]string{"intent"},
	)

	OracleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_errors_total",
			Help: "Failed oracle calls by operation",
		},
		[]string{"operation"}, // "classify", "stream", "synthesize"
	)
)

// RecordAPIRequest records one finished request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records every request under its route template, so
// /v1/restaurants/:id is one series rather than one per id.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			RecordAPIRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
