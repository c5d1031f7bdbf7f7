package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/gomode/service"
	"github.com/tomtom215/gomode/service/errs"
	"github.com/tomtom215/gomode/service/internal/leakcheck"
)

// recordingService is a minimal Service that records when its Run method
// starts and stops, and raises hook flags other tests can assert against.
type recordingService struct {
	mu      sync.Mutex
	started bool
	stopped bool

	onStartErr error
}

func (s *recordingService) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingService) OnStart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return s.onStartErr
}

func (s *recordingService) OnStop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *recordingService) wasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *recordingService) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// TestSimpleLifecycleTransitions covers spec scenario 1: a lone node
// starting and stopping raises started/stopped in order and walks
// Init -> Starting -> Running -> Stopping -> Shutdown.
func TestSimpleLifecycleTransitions(t *testing.T) {
	svc := &recordingService{}
	b := service.New("root", svc)

	require.Equal(t, service.Init, b.State())

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, service.Running, b.State())
	assert.True(t, svc.wasStarted())

	require.NoError(t, b.Stop(context.Background()))
	assert.Equal(t, service.Shutdown, b.State())
	assert.True(t, svc.wasStopped())

	require.NoError(t, b.WaitUntilStarted(context.Background()))
	require.NoError(t, b.WaitUntilStopped(context.Background()))
}

// orderRecorder tracks start/stop order across a family of nodes under a
// single mutex, for scenario 2's ordering assertions.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) started(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, "start:"+name)
}

func (r *orderRecorder) stopped(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, "stop:"+name)
}

func (r *orderRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

type orderedChild struct {
	name string
	rec  *orderRecorder
	fail bool
}

func (c *orderedChild) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *orderedChild) OnStart(context.Context) error {
	if c.fail {
		return assertErr
	}
	c.rec.started(c.name)
	return nil
}

func (c *orderedChild) OnStop(context.Context) error {
	c.rec.stopped(c.name)
	return nil
}

var assertErr = errAssertionBoom{}

type errAssertionBoom struct{}

func (errAssertionBoom) Error() string { return "boom" }

// TestOrderedChildrenStartAndStopInDeclarationOrder covers spec scenario 2:
// a parent declaring children [A, B, C] starts them in that order and
// stops them in strict reverse, and the parent's own started flag only
// raises once every child has started.
func TestOrderedChildrenStartAndStopInDeclarationOrder(t *testing.T) {
	rec := &orderRecorder{}
	root := service.New("parent", &recordingService{})

	a := service.New("a", &orderedChild{name: "a", rec: rec})
	b := service.New("b", &orderedChild{name: "b", rec: rec})
	c := service.New("c", &orderedChild{name: "c", rec: rec})

	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))
	require.NoError(t, root.AddChild(c))

	require.NoError(t, root.Start(context.Background()))
	require.NoError(t, root.WaitUntilStarted(context.Background()))

	assert.Equal(t, []string{"start:a", "start:b", "start:c"}, rec.snapshot())

	require.NoError(t, root.Stop(context.Background()))
	assert.Equal(t, []string{
		"start:a", "start:b", "start:c",
		"stop:c", "stop:b", "stop:a",
	}, rec.snapshot())
}

// TestChildCrashDuringStartStopsEarlierSiblingsOnly covers spec scenario 3:
// a parent declares [A, B]; B's OnStart fails, so the parent crashes with a
// DependencyFailure wrapping the error, A (already started) is stopped,
// and B, whose own OnStart failed, ends up Crashed rather than Running.
func TestChildCrashDuringStartStopsEarlierSiblingsOnly(t *testing.T) {
	rec := &orderRecorder{}
	root := service.New("parent", &recordingService{})

	a := service.New("a", &orderedChild{name: "a", rec: rec})
	bSvc := &orderedChild{name: "b", rec: rec, fail: true}
	b := service.New("b", bSvc)

	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))

	err := root.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.DependencyFailure, errs.KindOf(err))

	assert.Equal(t, service.Shutdown, a.State())
	assert.Equal(t, service.Crashed, b.State())
	assert.Contains(t, rec.snapshot(), "start:a")
	assert.Contains(t, rec.snapshot(), "stop:a")
}

// loopingService runs a background loop task via AddTask, counting
// invocations until stopped.
type loopingService struct {
	count atomic.Int32
}

func (s *loopingService) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// TestBackgroundLoopRespectsStop covers spec scenario 4: a loop task fired
// roughly every 100ms stops promptly once Stop is called, having fired a
// bounded number of times.
func TestBackgroundLoopRespectsStop(t *testing.T) {
	svc := &loopingService{}
	b := service.New("looper", svc)
	b.AddTask("tick", func(ctx context.Context) error {
		svc.count.Add(1)
		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
		return nil
	}, false)

	require.NoError(t, b.Start(context.Background()))
	time.Sleep(350 * time.Millisecond)

	stopStart := time.Now()
	require.NoError(t, b.Stop(context.Background()))
	assert.Less(t, time.Since(stopStart), 500*time.Millisecond)

	n := svc.count.Load()
	assert.GreaterOrEqual(t, n, int32(3))
	assert.LessOrEqual(t, n, int32(5))
}

// TestRuntimeDependencyStartsAndStopsWithOwner covers spec scenario 6: a
// dependency added via AddRuntimeDependency while the owner is Running
// starts immediately and is visible in the owner's tree, then stops when
// the owner stops.
func TestRuntimeDependencyStartsAndStopsWithOwner(t *testing.T) {
	rec := &orderRecorder{}
	root := service.New("owner", &recordingService{})
	require.NoError(t, root.Start(context.Background()))

	dep := service.New("dep", &orderedChild{name: "dep", rec: rec})
	require.NoError(t, root.AddRuntimeDependency(context.Background(), dep))

	assert.Equal(t, service.Running, dep.State())
	assert.Contains(t, root.UnstoppedReport(), "dep")

	require.NoError(t, root.Stop(context.Background()))
	assert.Equal(t, service.Shutdown, dep.State())
	assert.Empty(t, root.UnstoppedReport())
}

// TestAddRuntimeDependencyBeforeStartIsInvalidState covers the invariant
// that a runtime dependency (as opposed to a declared child) can only be
// added once the owner is Starting or Running.
func TestAddRuntimeDependencyBeforeStartIsInvalidState(t *testing.T) {
	root := service.New("owner", &recordingService{})
	dep := service.New("dep", &recordingService{})

	err := root.AddRuntimeDependency(context.Background(), dep)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidState, errs.KindOf(err))
}

// TestRunScopedJoinsUntilShutdown covers spec scenario 7: RunScoped starts
// a node, runs the given function, and stops the node again regardless of
// whether the function errors, only returning once the node has reached
// Shutdown.
func TestRunScopedJoinsUntilShutdown(t *testing.T) {
	svc := &recordingService{}
	b := service.New("scoped", svc)

	var sawRunning service.State
	err := b.RunScoped(context.Background(), func(ctx context.Context) error {
		sawRunning = b.State()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, service.Running, sawRunning)
	assert.Equal(t, service.Shutdown, b.State())
	assert.True(t, svc.wasStopped())
}

// TestRunScopedStopsNodeEvenOnFunctionError ensures RunScoped's deferred
// Stop runs even when the scoped function itself returns an error.
func TestRunScopedStopsNodeEvenOnFunctionError(t *testing.T) {
	svc := &recordingService{}
	b := service.New("scoped", svc)

	err := b.RunScoped(context.Background(), func(ctx context.Context) error {
		return assertErr
	})

	require.ErrorIs(t, err, assertErr)
	assert.Equal(t, service.Shutdown, b.State())
}

// TestTreeStartStopLeavesNoGoroutinesBehind exercises a full parent/child
// tree through Start and Stop and asserts every activity and member
// goroutine it spawned has wound down by the time Stop returns.
func TestTreeStartStopLeavesNoGoroutinesBehind(t *testing.T) {
	baseline := leakcheck.Snapshot()

	rec := &orderRecorder{}
	root := service.New("root", &recordingService{})
	child := service.New("child", &orderedChild{name: "child", rec: rec})
	require.NoError(t, root.AddChild(child))

	root.AddTask("tick", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
		return nil
	}, false)

	require.NoError(t, root.Start(context.Background()))
	require.NoError(t, root.WaitUntilStarted(context.Background()))
	require.NoError(t, root.Stop(context.Background()))

	assert.NoError(t, leakcheck.Check(baseline))
}
