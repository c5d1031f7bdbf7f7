package service

import (
	"context"

	"github.com/tomtom215/gomode/service/errs"
	"github.com/tomtom215/gomode/service/svclog"
)

// onActivityCrash is the registry.CrashFunc wired into every node's
// registry: it is called from the activity's own goroutine once its crash
// policy has decided the failure should propagate (spec §4.3 "Crash
// propagation"). name is the activity name, or "on_first_start",
// "on_start", "on_started" or a child's name for the call sites in Start
// that report synchronously instead of through the registry.
//
// The first crash to reach a node wins: it sets the exception, raises
// crashed, transitions the node to Crashed (from Starting, Running, or
// Stopping -- the last per spec §4.3's "{Stopping} -> Crashed, but drain
// continues"), stops every member best-effort, cancels the node's own
// activities, and finally notifies the parent so the propagation walks up
// the tree. Later crashes on an already-Crashed node are logged but
// otherwise discarded: the node already carries its first exception.
func (b *Base) onActivityCrash(name string, err error) {
	b.mu.Lock()
	cur := b.State()
	if cur == Shutdown {
		b.mu.Unlock()
		b.sink.Warn("activity crashed after shutdown, discarding",
			svclog.Str("node", b.name), svclog.Str("activity", name), svclog.Err(err))
		return
	}
	first := cur != Crashed
	if first {
		b.crashErr = err
		select {
		case <-b.stopSignal:
		default:
			close(b.stopSignal)
		}
		b.setState(Crashed)
	}
	b.mu.Unlock()

	b.metricsMu.RLock()
	hook := b.metrics
	b.metricsMu.RUnlock()
	hook.ActivityCrashed(b.name, name)
	b.sink.Error("activity crashed", svclog.Str("node", b.name), svclog.Str("activity", name), svclog.Err(err))

	if !first {
		return
	}
	b.crashedFlag.Set()
	b.graph.NodeDown(b.name)

	if crasher, ok := b.svc.(OnCrasher); ok {
		crasher.OnCrash(context.Background(), err)
	}

	// Stopping members and cancelling our own activities can block (a
	// member's own drain), so it runs off the activity goroutine that
	// reported the crash -- that goroutine must return promptly so the
	// registry's WaitGroup can complete.
	go func() {
		b.stopMembersBestEffort(context.Background())
		if b.reg != nil {
			b.reg.CancelAll()
		}
	}()

	if b.parent != nil {
		b.parent.onActivityCrash(b.name, errs.Wrap("service.crash-propagation", errs.DependencyFailure, err))
	}
}

// Exception returns the error that crashed this node, or nil if it has
// never crashed in its current lifecycle.
func (b *Base) Exception() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.crashErr
}
