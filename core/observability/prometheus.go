package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcp_stream_subscribers",
			Help: "Number of registered stream subscribers",
		},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_events_published_total",
			Help: "Total number of lifecycle events published",
		},
		[]string{"type"},
	)

	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_events_delivered_total",
			Help: "Total number of lifecycle events enqueued to subscribers",
		},
		[]string{"type"},
	)

	subscribersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_stream_subscribers_dropped_total",
			Help: "Subscribers disconnected by the server",
		},
		[]string{"reason"},
	)

	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_graph_queries_total",
			Help: "Total number of graph queries executed",
		},
		[]string{"graph", "status"},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_graph_query_duration_seconds",
			Help:    "Graph query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"graph"},
	)
)

func SetStreamSubscribers(n int) {
	streamSubscribers.Set(float64(n))
}

func RecordEventPublished(eventType string, delivered int) {
	eventsPublished.WithLabelValues(eventType).Inc()
	eventsDelivered.WithLabelValues(eventType).Add(float64(delivered))
}

func RecordSubscriberDropped(reason string) {
	subscribersDropped.WithLabelValues(reason).Inc()
}

func recordPromQuery(graph string, success bool, durationMS float64) {
	status := "success"
	if !success {
		status = "error"
	}
	queriesTotal.WithLabelValues(graph, status).Inc()
	queryDuration.WithLabelValues(graph).Observe(durationMS / 1000)
}
