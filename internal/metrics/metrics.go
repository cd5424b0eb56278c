package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections tracks currently open WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomchat_active_connections",
		Help: "Number of open WebSocket connections.",
	})

	// MessagesPersisted counts group messages durably appended.
	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomchat_messages_persisted_total",
		Help: "Group messages durably appended to the store.",
	})

	// PersistFailures counts group messages rejected by the store.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomchat_message_persist_failures_total",
		Help: "Group messages that failed to persist and were not broadcast.",
	})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
