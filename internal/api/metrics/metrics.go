// Package metrics defines and registers all custom Prometheus metrics for the
// parcel tracking backend. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry at package init via
// promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "parcel"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// TransitionsAppliedTotal counts status transitions that were persisted.
// Labels:
//   - status: the new package status (e.g. "paid")
//   - via: origin of the transition ("api", "payment", "scan", "auto")
var TransitionsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_applied_total",
		Help:      "Total number of package status transitions successfully applied.",
	},
	[]string{"status", "via"},
)

// TransitionsRejectedTotal counts transition requests that were denied.
// Label:
//   - reason: "not_found", "forbidden", "invalid_transition", "conflict"
var TransitionsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_rejected_total",
		Help:      "Total number of package status transition requests rejected.",
	},
	[]string{"reason"},
)

// ── Auto-advance metrics ──────────────────────────────────────────────────────

// AutoAdvanceScheduledTotal counts deferred paid→processing advances scheduled.
var AutoAdvanceScheduledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auto_advance_scheduled_total",
		Help:      "Total number of deferred auto-advances scheduled.",
	},
)

// AutoAdvanceFiredTotal counts fired auto-advance timers by outcome.
// Label:
//   - result: "advanced" (transition applied), "noop" (status already moved
//     or package gone), "error" (store write failed)
var AutoAdvanceFiredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auto_advance_fired_total",
		Help:      "Total number of auto-advance timers fired, by outcome.",
	},
	[]string{"result"},
)

// SchedulerActiveTimers tracks the number of pending deferred transitions.
var SchedulerActiveTimers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_active_timers",
		Help:      "Current number of pending deferred transition timers.",
	},
)

// ── Scan event metrics ────────────────────────────────────────────────────────

// ScanEventsProcessedTotal counts scan events that completed processing.
// Label:
//   - status: the new package status applied by the scan
var ScanEventsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_events_processed_total",
		Help:      "Total number of courier scan events successfully processed.",
	},
	[]string{"status"},
)

// ScanEventsErrorsTotal counts scan events that failed processing.
// Label:
//   - reason: short description of the failure (e.g. "invalid_transition")
var ScanEventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_events_errors_total",
		Help:      "Total number of courier scan events that failed processing.",
	},
	[]string{"reason"},
)

// ScanEventsDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new event, processed)
var ScanEventsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_events_dedup_total",
		Help:      "Total number of scan event deduplication checks, by result (hit/miss).",
	},
	[]string{"result"},
)

// ── Package metrics ───────────────────────────────────────────────────────────

// PackagesCreatedTotal counts newly registered packages.
// Label:
//   - urgency: "standard" or "express"
var PackagesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packages_created_total",
		Help:      "Total number of packages registered, by urgency.",
	},
	[]string{"urgency"},
)
