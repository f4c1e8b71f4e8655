// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GenerationDuration tracks how long the assistant pipeline took per tier.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_generation_duration_seconds",
			Help:    "Assistant reply duration by the tier that produced it",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"tier"},
	)

	// GenerationTiersTotal counts which fallback tier produced each reply.
	GenerationTiersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_replies_total",
			Help: "Assistant replies by fallback tier",
		},
		[]string{"tier"},
	)

	// RetrievalFailuresTotal counts best-effort retrieval and indexing failures.
	RetrievalFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_retrieval_failures_total",
			Help: "Retrieval or indexing failures absorbed by the assistant pipeline",
		},
		[]string{"stage"},
	)

	// ContextCacheRejections counts conversation contexts the cache refused
	// to admit.
	ContextCacheRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_context_cache_rejections_total",
			Help: "Conversation contexts kept outside the cache because admission failed",
		},
	)

	// WSConnectionsActive tracks open real-time connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of open real-time connections",
		},
	)

	// PresenceUsers tracks users with a registered live connection.
	PresenceUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_users",
			Help: "Number of users with a live connection",
		},
	)

	// EventsDispatchedTotal counts outbound channel events.
	EventsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dispatched_total",
			Help: "Outbound real-time events by outcome",
		},
		[]string{"event", "outcome"},
	)

	// JournalPublishFailures counts records that could not be appended to the journal.
	JournalPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_publish_failures_total",
			Help: "Chat records that failed to publish to the JetStream journal",
		},
		[]string{"kind"},
	)

	// GroupsTotal tracks groups created.
	GroupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groups_total",
			Help: "Total groups created",
		},
	)

	// MessagesTotal tracks total messages stored.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages stored",
		},
		[]string{"kind"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordReply records which tier answered and how long the pipeline took.
func RecordReply(tier string, duration float64) {
	GenerationDuration.WithLabelValues(tier).Observe(duration)
	GenerationTiersTotal.WithLabelValues(tier).Inc()
}

// RecordDispatch records an outbound event as delivered or dropped.
func RecordDispatch(event string, delivered bool) {
	outcome := "dropped"
	if delivered {
		outcome = "delivered"
	}
	EventsDispatchedTotal.WithLabelValues(event, outcome).Inc()
}

// IncrementWSConnections increments the open connection count.
func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

// DecrementWSConnections decrements the open connection count.
func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
