package registry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/gomode/service/activity"
	"github.com/tomtom215/gomode/service/errs"
	"github.com/tomtom215/gomode/service/registry"
)

func TestDrainReturnsImmediatelyWithNoActivities(t *testing.T) {
	r := registry.New(context.Background(), "test", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Drain(ctx))
}

func TestFutureCrashPropagatesToOnCrash(t *testing.T) {
	var gotName string
	var gotErr error
	crashed := make(chan struct{})

	r := registry.New(context.Background(), "test", nil, func(name string, err error) {
		gotName = name
		gotErr = err
		close(crashed)
	})

	r.AddFuture("probe", func(context.Context) error {
		return errors.New("boom")
	})

	select {
	case <-crashed:
	case <-time.After(time.Second):
		t.Fatal("onCrash not called")
	}
	assert.Equal(t, "probe", gotName)
	assert.True(t, errs.Is(gotErr, errs.ActivityCrash))
}

func TestFuturePanicRecoveredAsCrash(t *testing.T) {
	crashed := make(chan error, 1)
	r := registry.New(context.Background(), "test", nil, func(_ string, err error) {
		crashed <- err
	})

	r.AddFuture("panicky", func(context.Context) error {
		panic("kaboom")
	})

	select {
	case err := <-crashed:
		assert.True(t, errs.Is(err, errs.ActivityCrash))
	case <-time.After(time.Second):
		t.Fatal("panic not recovered as crash")
	}
}

func TestTaskRunsUntilCancelAll(t *testing.T) {
	var calls atomic.Int32
	r := registry.New(context.Background(), "test", nil, nil)

	r.AddTask("looper", func(ctx context.Context) error {
		calls.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}, activity.LoopOptions{}, nil)

	time.Sleep(20 * time.Millisecond)
	r.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Drain(ctx))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDrainTimesOutWhenActivityHangs(t *testing.T) {
	r := registry.New(context.Background(), "test", nil, nil)
	r.AddTask("stuck", func(ctx context.Context) error {
		select {}
	}, activity.LoopOptions{OneShot: true}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Drain(ctx)
	assert.True(t, errs.Is(err, errs.Timeout))
}

// TestSuppressPolicyHandsActivityCrashBackToSuture exercises the composition
// the registry now relies on: a CrashPolicy deciding Suppress hands the
// activity back to suture, which restarts it on its own failure-threshold/
// backoff schedule instead of this package ever touching a timer itself.
// The policy suppressing the failure means onCrash is never called; suture
// retrying the activity is what keeps it running.
func TestSuppressPolicyHandsActivityCrashBackToSuture(t *testing.T) {
	var crashes atomic.Int32
	var runs atomic.Int32
	r := registry.New(context.Background(), "test", nil, func(string, error) {
		crashes.Add(1)
	})

	policy := suppressAlwaysPolicy{}
	r.AddTask("flaky", func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		runs.Add(1)
		return errors.New("transient")
	}, activity.LoopOptions{OneShot: true}, policy)

	time.Sleep(200 * time.Millisecond)
	r.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Drain(ctx))

	assert.Equal(t, int32(0), crashes.Load())
	assert.Greater(t, runs.Load(), int32(1))
}

// TestAlwaysPropagatePolicyStopsActivityForGood checks the other side of the
// same composition: a Propagate decision stops the activity permanently
// (suture.ErrDoNotRestart) instead of suture retrying it, after onCrash runs
// exactly once.
func TestAlwaysPropagatePolicyStopsActivityForGood(t *testing.T) {
	var crashes atomic.Int32
	var runs atomic.Int32
	r := registry.New(context.Background(), "test", nil, func(string, error) {
		crashes.Add(1)
	})

	r.AddTask("doomed", func(context.Context) error {
		runs.Add(1)
		return errors.New("fatal")
	}, activity.LoopOptions{OneShot: true}, activity.AlwaysPropagate{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Drain(ctx))

	assert.Equal(t, int32(1), crashes.Load())
	assert.Equal(t, int32(1), runs.Load())
}

type suppressAlwaysPolicy struct{}

func (suppressAlwaysPolicy) Decide(error) activity.CrashDecision { return activity.Suppress }
