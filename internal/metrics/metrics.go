// Package metrics provides Prometheus metrics for the matchrules engine and server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchrules"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeRefused = "refused"
)

// Rejection reasons of the HTTP middleware.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonRateLimited  = "rate_limited"
)

var (
	// OperationsTotal tracks engine operations by outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration tracks generate/apply duration in seconds
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Duration of rule generation and application in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// ServiceRequestsTotal tracks calls to the rule services
	ServiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "requests_total",
			Help:      "Total number of rule service calls by outcome",
		},
		[]string{"service", "outcome"},
	)

	// ServiceRequestDuration tracks rule service call duration
	ServiceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "request_duration_seconds",
			Help:      "Duration of rule service calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	// SkippedMatchesTotal tracks rule matches referencing unknown entities
	SkippedMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "skipped_matches_total",
			Help:      "Total number of rule matches skipped because an id was unknown",
		},
	)

	// ActiveSessions tracks sessions hosted by the server
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "sessions",
			Help:      "Number of sessions currently hosted",
		},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"method"},
	)

	// RejectedRequestsTotal tracks requests refused by the middleware
	RejectedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_requests_total",
			Help:      "Total number of HTTP requests rejected before reaching a handler",
		},
		[]string{"reason"},
	)

	// EventsPublishedTotal tracks events exported to Kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "events_published_total",
			Help:      "Total number of events published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// ObserveOperation records one engine operation.
func ObserveOperation(operation, outcome string, started time.Time) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	if outcome != OutcomeRefused {
		OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	}
}

// ObserveService records one rule service call.
func ObserveService(service string, err error, started time.Time) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	ServiceRequestsTotal.WithLabelValues(service, outcome).Inc()
	ServiceRequestDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
