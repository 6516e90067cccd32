// Package metrics defines all custom Prometheus metrics for the tracker
// client core. It is the single source of truth for metric names, labels,
// and help strings; everything registers with the default registry via
// promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// RequestsTotal counts gateway calls by collection, verb and outcome.
// Labels:
//   - entity: "users", "projects", "tasks", "auth"
//   - verb: "list", "create", "update", "delete", "assign", "login", ...
//   - outcome: "ok" or an error kind ("network", "unauthorized", ...)
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Total number of remote gateway calls, by outcome.",
	},
	[]string{"entity", "verb", "outcome"},
)

// RequestDuration measures gateway call latency end-to-end.
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Duration of remote gateway calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"entity", "verb"},
)

// PlaceholderFallbacksTotal counts how often a store seeded placeholder data
// after a network-failed refresh. A non-zero value means the client ran in
// degraded offline mode.
var PlaceholderFallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_placeholder_fallbacks_total",
		Help:      "Total number of placeholder seedings after failed refreshes.",
	},
	[]string{"entity"},
)

// RollbacksTotal counts optimistic mutations that were rolled back.
// Labels:
//   - entity: the store name
//   - op: "create", "update", "delete", "assign"
var RollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_rollbacks_total",
		Help:      "Total number of optimistic mutations rolled back on failure.",
	},
	[]string{"entity", "op"},
)

// SessionExpiriesTotal counts forced logouts caused by a 401 response.
var SessionExpiriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_expiries_total",
		Help:      "Total number of sessions invalidated by an unauthorized response.",
	},
)
