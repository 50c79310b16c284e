package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Webhook metrics
	WebhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_requests_total",
			Help: "Webhook requests by response status",
		},
		[]string{"status"},
	)

	SignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_signature_failures_total",
			Help: "Webhook requests rejected for a bad signature",
		},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Inbound events by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "ok", "failed", "skipped"
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_event_duration_seconds",
			Help:    "Per-event processing time",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"kind"},
	)

	// Downstream metrics
	GenerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_generation_latency_seconds",
			Help:    "Generation backend latency",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		},
	)

	ReplyRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_reply_retries_total",
			Help: "Reply dispatches that needed a second attempt",
		},
	)
)
