// Package metrics defines and registers all custom Prometheus metrics for
// the CarRent session engine. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at init time; the
// router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carrent"

// ── Event synchronizer metrics ────────────────────────────────────────────────

// AuthEventsProcessedTotal counts auth events that resulted in a state
// transition.
// Label:
//   - type: the event type (e.g. "SIGNED_OUT", "INITIAL")
var AuthEventsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_processed_total",
		Help:      "Total number of auth events that produced a state transition.",
	},
	[]string{"type"},
)

// AuthEventsSkippedTotal counts events intentionally skipped without a full
// profile re-resolution.
// Label:
//   - reason: "signed_in", "session_only", "debounced", "unknown_type", "no_identity"
var AuthEventsSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_skipped_total",
		Help:      "Total number of auth events skipped by the synchronizer, by reason.",
	},
	[]string{"reason"},
)

// AuthEventsDroppedTotal counts events discarded by the loop guard. A steady
// rate here means the backend is re-firing in a feedback burst.
var AuthEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_dropped_total",
		Help:      "Total number of auth events dropped by the loop guard.",
	},
)

// ── Resolver metrics ──────────────────────────────────────────────────────────

// RoleResolutionsTotal counts role decisions by the tier that produced them.
// Labels:
//   - tier: "refresh_failopen", "store", "heuristic", "cache", "default"
//   - role: the resolved role
var RoleResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_resolutions_total",
		Help:      "Total number of role resolutions, by deciding tier and resolved role.",
	},
	[]string{"tier", "role"},
)

// ProfileResolutionsTotal counts profile resolutions by path.
// Label:
//   - path: "fast_admin", "fast_metadata", "store", "fallback"
var ProfileResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_resolutions_total",
		Help:      "Total number of profile resolutions, by resolution path.",
	},
	[]string{"path"},
)

// ── Operation metrics ─────────────────────────────────────────────────────────

// AuthOperationsTotal counts login/register/logout outcomes.
// Labels:
//   - op: "login", "register", "logout"
//   - result: "ok", "pending_confirmation", or the failure kind
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth operations, by operation and outcome.",
	},
	[]string{"op", "result"},
)

// BootstrapDuration measures how long session bootstrap takes end-to-end,
// including the profile resolution.
var BootstrapDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bootstrap_duration_seconds",
		Help:      "Duration of the startup session bootstrap.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)
