package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/gomode/service"
)

func newTestHook(t *testing.T) (*Hook, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestHookStateChanged(t *testing.T) {
	h, reg := newTestHook(t)

	h.StateChanged("root", service.Init, service.Starting)
	h.StateChanged("root", service.Starting, service.Running)
	h.StateChanged("root", service.Init, service.Starting)

	got := testutil.ToFloat64(h.stateTransitions.WithLabelValues("root", "init", "starting"))
	if got != 2 {
		t.Fatalf("state transitions init->starting = %v, want 2", got)
	}

	problems, err := testutil.GatherAndLint(reg)
	if err != nil {
		t.Fatalf("GatherAndLint: %v", err)
	}
	for _, p := range problems {
		t.Logf("lint: %s", p.Text)
	}
}

func TestHookActivityCrashed(t *testing.T) {
	h, _ := newTestHook(t)

	h.ActivityCrashed("worker", "poll-loop")
	h.ActivityCrashed("worker", "poll-loop")
	h.ActivityCrashed("worker", "other")

	if got := testutil.ToFloat64(h.activityCrashes.WithLabelValues("worker", "poll-loop")); got != 2 {
		t.Fatalf("activity crashes = %v, want 2", got)
	}
}

func TestHookDrainDuration(t *testing.T) {
	h, _ := newTestHook(t)

	h.DrainDuration("root", int64(1_500_000_000)) // 1.5s

	count := testutil.CollectAndCount(h.drainDuration)
	if count == 0 {
		t.Fatal("drain duration histogram recorded no samples")
	}
}

func TestHookImplementsMetricsHook(t *testing.T) {
	var _ service.MetricsHook = New(prometheus.NewRegistry())
}
