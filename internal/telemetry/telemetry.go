// Package telemetry is a thin Prometheus binding for service.MetricsHook.
//
// It instruments the three observations the core lifecycle emits --
// state transitions, activity crashes, and drain duration -- as a counter
// vector, a counter vector, and a histogram vector respectively, following
// the metric-per-concern / promauto-registered-at-construction style used
// throughout this project's reference metrics package. The core itself
// never imports prometheus: a Hook built here is handed to service.New via
// service.WithMetricsHook and everything downstream only ever sees the
// service.MetricsHook interface.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/gomode/service"
)

// Hook implements service.MetricsHook against a Prometheus registerer.
type Hook struct {
	stateTransitions *prometheus.CounterVec
	activityCrashes  *prometheus.CounterVec
	drainDuration    *prometheus.HistogramVec
}

var _ service.MetricsHook = (*Hook)(nil)

// New registers gomode's lifecycle metrics against reg and returns a Hook
// observing them. Passing nil uses prometheus.DefaultRegisterer --
// promauto.With(nil) would otherwise build collectors that are never
// registered anywhere, silently dropping them from every gatherer.
func New(reg prometheus.Registerer) *Hook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Hook{
		stateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gomode_state_transitions_total",
				Help: "Total number of lifecycle state transitions, by node and resulting state.",
			},
			[]string{"node", "from", "to"},
		),
		activityCrashes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gomode_activity_crashes_total",
				Help: "Total number of activities whose crash propagated to their owning node.",
			},
			[]string{"node", "activity"},
		),
		drainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gomode_drain_duration_seconds",
				Help:    "Time spent draining a node's activity registry during Stop.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
	}
}

// StateChanged implements service.MetricsHook.
func (h *Hook) StateChanged(node string, from, to service.State) {
	h.stateTransitions.WithLabelValues(node, from.String(), to.String()).Inc()
}

// ActivityCrashed implements service.MetricsHook.
func (h *Hook) ActivityCrashed(node, activity string) {
	h.activityCrashes.WithLabelValues(node, activity).Inc()
}

// DrainDuration implements service.MetricsHook. ns is nanoseconds, matching
// the clock.Clock-derived duration the lifecycle measures internally.
func (h *Hook) DrainDuration(node string, ns int64) {
	h.drainDuration.WithLabelValues(node).Observe(time.Duration(ns).Seconds())
}
