// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package metrics provides Prometheus instrumentation for the client:
// outbound API requests, bulk-fetch retries, circuit breaker state, and
// session invalidations.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts outbound API requests. The route label is the
	// path template ("/events/:id/join"), never the concrete path, to keep
	// cardinality bounded.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of outbound API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// APIRequestDuration observes outbound request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Outbound API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"method", "route"},
	)

	// APITransportFailures counts requests that never produced a response,
	// split by failure kind ("timeout", "no_response").
	APITransportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_transport_failures_total",
			Help: "Total number of requests with no usable response",
		},
		[]string{"kind"},
	)

	// FetchRetriesTotal counts retried attempts of the bulk event fetch
	// (the first attempt is not a retry).
	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_fetch_retries_total",
			Help: "Total number of retried bulk event fetch attempts",
		},
	)

	// CircuitBreakerState tracks breaker state: 0=closed, 1=half-open, 2=open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// SessionInvalidationsTotal counts forced logouts caused by a 401 from
	// an authenticated endpoint.
	SessionInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_invalidations_total",
			Help: "Total number of credential invalidations forced by the server",
		},
	)
)

// RecordAPIRequest records one completed round-trip. A status of 0 means
// no response was received.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
