// Package registry hosts the background activities (futures, loop tasks,
// interval timers, cron timers) a service runs alongside its main body.
// Activities run under a github.com/thejerf/suture/v4 supervisor: a crash
// left to Propagate stops the activity for good and notifies the owning
// service, while one a CrashPolicy decides to Suppress is handed back to
// suture, which restarts it on its own failure-threshold/backoff schedule
// instead of this package reimplementing that logic.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/gomode/service/activity"
	"github.com/tomtom215/gomode/service/errs"
	"github.com/tomtom215/gomode/service/svclog"
)

// Defaults match suture's own package defaults, so a misbehaving activity
// backs off in seconds, not minutes, before a node's Stop/drain deadline
// would otherwise abandon it outright.
const (
	defaultFailureThreshold = 5.0
	defaultFailureDecay     = 30.0
	defaultFailureBackoff   = 15 * time.Second
	defaultServeTimeout     = 10 * time.Second
)

// CrashFunc is notified when a hosted activity terminates with an error
// (including a recovered panic) after its CrashPolicy, if any, decided to
// propagate.
type CrashFunc func(name string, err error)

// Registry runs and tracks a service's background activities.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc
	sup    *suture.Supervisor

	// wg tracks activities that have not yet reached a terminal outcome.
	// An activity Suppressed by its CrashPolicy is retried by suture and
	// stays outstanding; only a clean return, a cancellation, or a
	// Propagated crash marks it done.
	wg sync.WaitGroup

	sink    svclog.Sink
	onCrash CrashFunc
}

// New builds a Registry whose activities are all cancelled together when
// CancelAll is called, or when parent is cancelled. name identifies this
// registry's supervisor in logs emitted through sink.
func New(parent context.Context, name string, sink svclog.Sink, onCrash CrashFunc) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if sink == nil {
		sink = svclog.Nop{}
	}
	if onCrash == nil {
		onCrash = func(string, error) {}
	}

	hook := (&sutureslog.Handler{Logger: svclog.NewSlogLogger(sink)}).MustHook()
	sup := suture.New(name, suture.Spec{
		EventHook:        hook,
		FailureThreshold: defaultFailureThreshold,
		FailureDecay:     defaultFailureDecay,
		FailureBackoff:   defaultFailureBackoff,
		Timeout:          defaultServeTimeout,
	})

	r := &Registry{
		ctx:     ctx,
		cancel:  cancel,
		sup:     sup,
		sink:    sink,
		onCrash: onCrash,
	}
	go sup.Serve(ctx) //nolint:errcheck // Serve only returns ctx.Err(), surfaced via Drain/CancelAll instead
	return r
}

// Context is the shared cancellation context all hosted activities run
// under; it is cancelled by CancelAll.
func (r *Registry) Context() context.Context { return r.ctx }

// AddFuture runs fn once in its own suture-supervised goroutine.
func (r *Registry) AddFuture(name string, fn activity.Func) {
	r.spawn(name, activity.RunnerFunc(fn), activity.AlwaysPropagate{})
}

// AddTask runs fn as a loop task per opts (repeating unless OneShot).
func (r *Registry) AddTask(name string, fn activity.Func, opts activity.LoopOptions, policy activity.CrashPolicy) {
	if policy == nil {
		policy = activity.AlwaysPropagate{}
	}
	r.spawn(name, activity.NewLoop(fn, opts), policy)
}

// RegisterTimer hosts an already-constructed Runner (an interval or cron
// timer built via the activity package) under this registry.
func (r *Registry) RegisterTimer(name string, runner activity.Runner, policy activity.CrashPolicy) {
	if policy == nil {
		policy = activity.AlwaysPropagate{}
	}
	r.spawn(name, runner, policy)
}

func (r *Registry) spawn(name string, runner activity.Runner, policy activity.CrashPolicy) {
	r.wg.Add(1)
	r.sup.Add(&activityService{
		name:    name,
		runner:  runner,
		policy:  policy,
		sink:    r.sink,
		onCrash: r.onCrash,
		done:    r.wg.Done,
	})
}

// CancelAll cancels the shared context all hosted activities run under.
func (r *Registry) CancelAll() { r.cancel() }

// Drain blocks until every hosted activity has reached a terminal outcome
// or ctx is done, whichever comes first. A successful drain also winds down
// this registry's supervisor goroutine, since nothing further will be added
// once a node has finished draining.
func (r *Registry) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		return errs.Wrap("registry.Drain", errs.Timeout, ctx.Err())
	}
}

// activityService adapts a single background activity to suture.Service.
type activityService struct {
	name    string
	runner  activity.Runner
	policy  activity.CrashPolicy
	sink    svclog.Sink
	onCrash CrashFunc
	done    func()
}

func (s *activityService) String() string { return s.name }

// Serve implements suture.Service. Its return value tells suture whether to
// restart it: nil or an error wrapping suture.ErrDoNotRestart means stop for
// good; any other error means restart per the supervisor's failure-
// threshold/backoff.
func (s *activityService) Serve(ctx context.Context) error {
	err := s.runRecovered(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		s.done()
		return nil
	}

	s.sink.Error("activity terminated", svclog.Str("activity", s.name), svclog.Err(err))
	if s.policy.Decide(err) == activity.Propagate {
		s.onCrash(s.name, errs.Wrap("registry.activity", errs.ActivityCrash, err))
		s.done()
		return fmt.Errorf("%w: %w", err, suture.ErrDoNotRestart)
	}
	return err
}

func (s *activityService) runRecovered(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("activity %q panicked: %v", s.name, p)
		}
	}()
	return s.runner.Run(ctx)
}

var _ suture.Service = (*activityService)(nil)
