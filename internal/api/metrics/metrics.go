// Package metrics defines and registers all custom Prometheus metrics for the
// marketplace web gateway. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package init
// through promauto and exposed on /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace_web"

// ── Notification metrics ──────────────────────────────────────────────────────

// EventsReceivedTotal counts frames read from real-time connections.
// Label:
//   - result: "decoded", "unknown_kind" or "invalid"
var EventsReceivedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Total number of real-time frames received, by decode result.",
	},
	[]string{"result"},
)

// EventsDispatchedTotal counts events handed to a scope's event bus.
var EventsDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dispatched_total",
		Help:      "Total number of notification events dispatched, by kind.",
	},
	[]string{"kind"},
)

// HandlerFailuresTotal counts handler errors and panics isolated by the bus.
var HandlerFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_handler_failures_total",
		Help:      "Total number of notification handler failures, by kind.",
	},
	[]string{"kind"},
)

// EventsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (redelivered, skipped) or "miss" (new event)
var EventsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// EventsDroppedTotal counts events discarded because a dispatcher worker was full
// or the owning scope no longer exists.
var EventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of notification events dropped before dispatch.",
	},
	[]string{"reason"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Real-time channel metrics ─────────────────────────────────────────────────

// ChannelDialsTotal counts websocket dial attempts.
// Label:
//   - result: "ok", "error" or "unauthorized"
var ChannelDialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_dials_total",
		Help:      "Total number of real-time dial attempts, by result.",
	},
	[]string{"result"},
)

// ChannelsConnected tracks live real-time connections.
var ChannelsConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "channels_connected",
		Help:      "Current number of connected real-time channels.",
	},
)

// ── Navigation and session metrics ────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - reason: "allow", "login_required", "registration_done", "registration_step",
//     "role_mismatch" or "forbidden"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by reason.",
	},
	[]string{"reason"},
)

// ScopesActive tracks open per-session scopes.
var ScopesActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scopes_active",
		Help:      "Current number of open session scopes.",
	},
)

// ── Backend API metrics ───────────────────────────────────────────────────────

// APIRequestsTotal counts backend API calls.
// Label:
//   - outcome: "ok" or one of the error kinds (e.g. "AUTH_ERROR")
var APIRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total number of backend API requests, by outcome.",
	},
	[]string{"outcome"},
)

// APIRequestDuration measures backend API round trips.
var APIRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of backend API requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)
