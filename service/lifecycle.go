package service

import (
	"context"
	"time"

	"github.com/tomtom215/gomode/service/activity"
	"github.com/tomtom215/gomode/service/cron"
	"github.com/tomtom215/gomode/service/errs"
	"github.com/tomtom215/gomode/service/registry"
	"github.com/tomtom215/gomode/service/svclog"
)

// Start brings the node from Init to Running: it runs the OnStart hook (if
// any), starts every declared child/member in order, then launches Run as
// the node's main background activity. If an activity crashes the node
// before it reaches Running, the node stays Crashed and Start returns that
// crash. Calling Start while already Starting or Running joins the
// in-flight attempt instead of erroring; calling it from any other state
// returns an InvalidState error.
func (b *Base) Start(ctx context.Context) error {
	b.mu.Lock()
	switch b.State() {
	case Starting, Running:
		b.mu.Unlock()
		return b.WaitUntilStarted(ctx)
	case Init:
		b.setState(Starting)
		b.mu.Unlock()
	default:
		b.mu.Unlock()
		return errs.New("service.Start", errs.InvalidState)
	}

	b.mu.Lock()
	b.reg = registry.New(context.Background(), b.name, b.sink, b.onActivityCrash)
	b.mu.Unlock()
	b.flushPending()
	b.graph.NodeUp(b.name, b.parentName())

	if declarer, ok := b.svc.(DeclareChildrener); ok && !b.firstStartDone.Load() {
		declared := declarer.DeclareChildren()
		b.mu.Lock()
		for _, child := range declared {
			if child == nil {
				continue
			}
			child.parent = b
			b.members = append(b.members, member{node: child, runtime: false})
		}
		b.mu.Unlock()
	}

	if !b.firstStartDone.Load() {
		if starter, ok := b.svc.(OnFirstStarter); ok {
			if err := starter.OnFirstStart(ctx); err != nil {
				wrapped := errs.Wrap("service.Start", errs.ActivityCrash, err)
				b.onActivityCrash("on_first_start", wrapped)
				return wrapped
			}
		}
		b.firstStartDone.Store(true)
	}

	if starter, ok := b.svc.(OnStarter); ok {
		if err := starter.OnStart(ctx); err != nil {
			wrapped := errs.Wrap("service.Start", errs.ActivityCrash, err)
			b.onActivityCrash("on_start", wrapped)
			return wrapped
		}
	}

	b.mu.Lock()
	members := append([]member(nil), b.members...)
	b.mu.Unlock()

	for _, m := range members {
		if err := m.node.startOrRestart(ctx); err != nil {
			b.stopMembersBestEffort(context.Background())
			wrapped := errs.Wrap("service.Start", errs.DependencyFailure, err)
			b.onActivityCrash(m.node.name, wrapped)
			return wrapped
		}
	}

	b.reg.AddFuture("run", func(runCtx context.Context) error {
		return b.svc.Run(runCtx)
	})

	if notifier, ok := b.svc.(OnStartedNotifier); ok {
		if err := notifier.OnStarted(ctx); err != nil {
			wrapped := errs.Wrap("service.Start", errs.ActivityCrash, err)
			b.onActivityCrash("on_started", wrapped)
			return wrapped
		}
	}

	b.mu.Lock()
	if b.State() == Crashed {
		crashErr := b.crashErr
		b.mu.Unlock()
		return errs.Wrap("service.Start", errs.ActivityCrash, crashErr)
	}
	b.setState(Running)
	b.mu.Unlock()
	b.startedFlag.Set()
	return nil
}

// startOrRestart starts a member for the first time, or, if the parent
// itself is being restarted after a previous full stop, restarts a member
// left in Shutdown/Crashed from that previous generation. A member still
// in Init (never started, e.g. added via AddChild between generations) is
// started normally.
func (b *Base) startOrRestart(ctx context.Context) error {
	switch b.State() {
	case Shutdown, Crashed:
		return b.Restart(ctx)
	default:
		return b.Start(ctx)
	}
}

func (b *Base) parentName() string {
	if b.parent == nil {
		return ""
	}
	return b.parent.name
}

// Stop brings the node to Shutdown: it signals ShouldStop/Sleep waiters,
// runs the OnStop hook, stops every member in strict reverse order, cancels
// and drains the activity registry (including Run), and finally runs
// OnShutdown. Stop is idempotent: calling it again once Shutdown has been
// reached is a no-op, and calling it concurrently joins the in-flight
// attempt.
func (b *Base) Stop(ctx context.Context) error {
	b.mu.Lock()
	switch b.State() {
	case Init:
		b.mu.Unlock()
		b.stoppedFlag.Set()
		return nil
	case Shutdown:
		b.mu.Unlock()
		return nil
	case Crashed:
		b.mu.Unlock()
		// A crashed node never reaches Shutdown on its own (only Restart
		// leaves Crashed), but spec §4.3 step 1 / invariant 4 still
		// requires stop() to raise stopped before returning.
		b.stoppedFlag.Set()
		return nil
	case Stopping:
		b.mu.Unlock()
		return b.WaitUntilStopped(ctx)
	default:
		b.setState(Stopping)
		close(b.stopSignal)
		b.mu.Unlock()
	}

	if stopper, ok := b.svc.(OnStopper); ok {
		if err := stopper.OnStop(ctx); err != nil {
			b.sink.Error("on_stop hook failed, continuing shutdown",
				svclog.Str("node", b.name), svclog.Err(err))
		}
	}

	b.stopMembersBestEffort(ctx)

	drainStart := b.clk.Now()
	drainErr := b.drainActivities(ctx)
	b.metricsMu.RLock()
	hook := b.metrics
	b.metricsMu.RUnlock()
	hook.DrainDuration(b.name, int64(b.clk.Now().Sub(drainStart)))

	if shutdowner, ok := b.svc.(OnShutdowner); ok {
		shutdowner.OnShutdown(ctx)
	}

	b.mu.Lock()
	// A crash observed while Stopping (spec §4.3: "{Stopping} -> Crashed,
	// but drain continues") leaves the node in Crashed rather than
	// Shutdown; drain above still ran to completion either way.
	if b.State() != Crashed {
		b.setState(Shutdown)
		b.shutdownFlag.Set()
	}
	b.mu.Unlock()
	b.stoppedFlag.Set()
	b.graph.NodeDown(b.name)

	return drainErr
}

// drainActivities implements spec §4.3 step 5. It runs once stopSignal has
// closed, OnStop has run and every member has been stopped: it cancels the
// context every hosted activity (including Run) runs under, then awaits
// them up to ctx's deadline. If that deadline elapses, it waits a further
// forceCancelGrace (see WithForceCancelGrace) before giving up and logging
// the activities left behind (spec §9 open question: "drop from registry,
// log, continue").
func (b *Base) drainActivities(ctx context.Context) error {
	if b.reg == nil {
		return nil
	}

	b.reg.CancelAll()
	if err := b.reg.Drain(ctx); err == nil {
		return nil
	}

	b.sink.Warn("drain deadline exceeded, waiting out force-cancel grace",
		svclog.Str("node", b.name), svclog.Dur("grace", b.forceCancelGrace))

	graceCtx, cancel := context.WithTimeout(context.Background(), b.forceCancelGrace)
	defer cancel()
	if err := b.reg.Drain(graceCtx); err != nil {
		b.sink.Error("activities did not exit after forced cancellation, abandoning",
			svclog.Str("node", b.name))
		return errs.Wrap("service.Stop", errs.Timeout, err)
	}
	return nil
}

// stopMembersBestEffort stops every member in reverse-declaration order,
// continuing past individual failures so every member gets a chance to
// shut down even if an earlier one errors or times out.
func (b *Base) stopMembersBestEffort(ctx context.Context) {
	b.mu.Lock()
	members := append([]member(nil), b.members...)
	b.mu.Unlock()

	for i := len(members) - 1; i >= 0; i-- {
		_ = members[i].node.Stop(ctx)
	}
}

// Restart resets a Shutdown or Crashed node back to Init and starts it
// again. It is InvalidState from any other state.
func (b *Base) Restart(ctx context.Context) error {
	b.mu.Lock()
	switch b.State() {
	case Shutdown, Crashed:
		b.mu.Unlock()
	default:
		b.mu.Unlock()
		return errs.New("service.Restart", errs.InvalidState)
	}

	if restarter, ok := b.svc.(OnRestarter); ok {
		restarter.OnRestart(ctx)
	}

	b.mu.Lock()
	b.resetGeneration()
	b.crashErr = nil
	b.setState(Init)
	b.mu.Unlock()

	return b.Start(ctx)
}

// WaitUntilStarted blocks until the node reaches Running, crashes, or ctx
// is cancelled, whichever comes first.
func (b *Base) WaitUntilStarted(ctx context.Context) error {
	select {
	case <-b.startedFlag.Done():
		return nil
	case <-b.crashedFlag.Done():
		return errs.Wrap("service.WaitUntilStarted", errs.ActivityCrash, b.crashErr)
	case <-ctx.Done():
		return errs.Wrap("service.WaitUntilStarted", errs.Cancelled, ctx.Err())
	}
}

// WaitUntilStopped blocks until the node reaches Shutdown or ctx is
// cancelled, whichever comes first.
func (b *Base) WaitUntilStopped(ctx context.Context) error {
	select {
	case <-b.stoppedFlag.Done():
		return nil
	case <-ctx.Done():
		return errs.Wrap("service.WaitUntilStopped", errs.Cancelled, ctx.Err())
	}
}

// WaitUntilCrashed blocks until the node crashes or ctx is cancelled,
// whichever comes first.
func (b *Base) WaitUntilCrashed(ctx context.Context) error {
	select {
	case <-b.crashedFlag.Done():
		return nil
	case <-ctx.Done():
		return errs.Wrap("service.WaitUntilCrashed", errs.Cancelled, ctx.Err())
	}
}

// RunScoped starts the node, runs fn, and stops the node again regardless
// of whether fn returns an error -- the "embedded join" pattern for a
// caller that wants a service's lifetime scoped to a block of code. Stop
// runs with a context detached from ctx so drain completes even if ctx was
// what fn was cancelled by.
func (b *Base) RunScoped(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = b.Stop(context.Background())
	}()
	return fn(ctx)
}

// schedule either runs fn against the live registry immediately (Starting
// or later), or -- called before Start has created one -- queues it to
// replay in order the moment Start does, so activities can be declared
// from a constructor as readily as from OnStart.
func (b *Base) schedule(fn func(*registry.Registry)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reg != nil {
		fn(b.reg)
		return
	}
	b.pending = append(b.pending, fn)
}

func (b *Base) flushPending() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, fn := range pending {
		fn(b.reg)
	}
}

// AddFuture runs fn once as a background activity under this node,
// following the same crash-propagation path as Run.
func (b *Base) AddFuture(name string, fn func(context.Context) error) {
	b.schedule(func(r *registry.Registry) { r.AddFuture(name, fn) })
}

// AddTask runs fn as a repeating (or one-shot) background loop task under
// this node.
func (b *Base) AddTask(name string, fn func(context.Context) error, oneShot bool) {
	b.schedule(func(r *registry.Registry) { r.AddTask(name, fn, activity.LoopOptions{OneShot: oneShot}, nil) })
}

// AddInterval registers fn to fire on a fixed cadence under this node,
// using the node's own clock (see WithClock). policy controls whether the
// first fire is immediate (activity.Eager) or after the first full
// interval (activity.Lazy); crashPolicy may be nil for the default
// always-propagate behavior.
func (b *Base) AddInterval(name string, d time.Duration, policy activity.FirePolicy, fn activity.Func, crashPolicy activity.CrashPolicy) {
	b.schedule(func(r *registry.Registry) {
		runner := activity.NewInterval(fn, activity.IntervalOptions{Interval: d, Policy: policy, Clock: b.clk})
		r.RegisterTimer(name, runner, crashPolicy)
	})
}

// AddCron registers fn to fire at each time produced by oracle, under this
// node's own clock. Cron timers are always lazy (spec §4.4); crashPolicy
// may be nil for the default always-propagate behavior.
func (b *Base) AddCron(name string, oracle cron.Oracle, fn activity.Func, crashPolicy activity.CrashPolicy) {
	b.schedule(func(r *registry.Registry) {
		runner := activity.NewCron(fn, activity.CronOptions{Oracle: oracle, Clock: b.clk})
		r.RegisterTimer(name, runner, crashPolicy)
	})
}
