// Package metrics provides Prometheus metrics for the Weft control plane:
// analytics emission, credential brokering, and outbound HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalyticsEventsQueued tracks events accepted onto the emission queue.
	// Labels: event (event name)
	AnalyticsEventsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weft_analytics_events_queued_total",
			Help: "Total number of analytics events queued for emission",
		},
		[]string{"event"},
	)

	// AnalyticsEventsDropped tracks events discarded without delivery.
	// Labels: reason (queue_full/disabled/encode_error)
	AnalyticsEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weft_analytics_events_dropped_total",
			Help: "Total number of analytics events dropped",
		},
		[]string{"reason"},
	)

	// AnalyticsBatchesSent tracks delivery attempts by outcome.
	// Labels: status (success/failure)
	AnalyticsBatchesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weft_analytics_batches_sent_total",
			Help: "Total number of analytics batches sent to the capture endpoint",
		},
		[]string{"status"},
	)

	// AnalyticsQueueDepth tracks the current emission queue depth.
	AnalyticsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weft_analytics_queue_depth",
			Help: "Current depth of the analytics emission queue",
		},
	)

	// CredentialFetches tracks credential retrievals by provider and outcome.
	// Labels: provider, source, status (success/failure)
	CredentialFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weft_credential_fetches_total",
			Help: "Total number of credential fetches from auth providers",
		},
		[]string{"provider", "source", "status"},
	)

	// CredentialFetchLatency tracks credential retrieval latency.
	// Labels: provider
	CredentialFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "weft_credential_fetch_latency_seconds",
			Help: "Credential fetch latency in seconds",
			Buckets: []float64{
				0.01, // local cache hits
				0.05,
				0.1,
				0.25,
				0.5,
				1,
				2.5,
				5,
				10,
			},
		},
		[]string{"provider"},
	)

	// HTTPRequests tracks outbound HTTP requests.
	// Labels: host, status (success/failure)
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weft_http_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"host", "status"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time since the timer was created.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
