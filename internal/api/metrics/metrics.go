// Package metrics defines the custom Prometheus metrics of the coordinates
// registry. It is the single source of truth for metric names, labels, and
// help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coordinates"

// ── Coordinates metrics ───────────────────────────────────────────────────────

// MutationsTotal counts create/alter/delete requests by outcome.
// Labels:
//   - operation: "create", "alter" or "delete"
//   - result: "ok", "not_found", "forbidden", "conflict", "unauthenticated" or "error"
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of coordinates mutations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Broadcast metrics ─────────────────────────────────────────────────────────

// BroadcastsTotal counts change notifications handled by the dispatcher.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var BroadcastsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Total number of change notifications, by delivery result.",
	},
	[]string{"result"},
)

// BroadcastQueueDepth tracks notifications waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var BroadcastQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcast_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// WebsocketClients tracks live websocket subscribers.
var WebsocketClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Number of connected websocket subscribers.",
	},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthResolutionsTotal counts what the authentication gate decided per request.
// Label:
//   - outcome: "anonymous", "authenticated", "rejected" or "error"
var AuthResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_resolutions_total",
		Help:      "Total number of bearer header resolutions, by outcome.",
	},
	[]string{"outcome"},
)
