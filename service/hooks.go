package service

import "context"

// Service is the minimal contract a node supervises: a body that runs
// until ctx is cancelled or it completes on its own. Returning a non-nil
// error (other than context.Canceled) is treated as a crash.
type Service interface {
	Run(ctx context.Context) error
}

// OnFirstStarter is called exactly once per construction of a node, the
// first time Start succeeds past Init -- including across a later
// Restart, since Restart reinitializes the lifecycle generation but not
// the underlying Base. Returning an error aborts that start and the node
// transitions to Crashed.
type OnFirstStarter interface {
	OnFirstStart(ctx context.Context) error
}

// OnStarter is implemented by a Service that needs to do setup work before
// its children start and Run is called. Returning an error aborts the
// start and the node transitions to Crashed.
type OnStarter interface {
	OnStart(ctx context.Context) error
}

// DeclareChildrener is implemented by a Service that wants its declared
// children computed once, just before its first Start, instead of (or in
// addition to) being wired up front via AddChild. Declared children are
// appended after any already added with AddChild, in the order returned.
// A nil or empty return is valid and means "no additional children".
type DeclareChildrener interface {
	DeclareChildren() []*Base
}

// Descriptor is implemented by a Service that wants to expose a short,
// host-facing summary of what it is without the host having to walk the
// tree or inspect its concrete type.
type Descriptor interface {
	Descriptor() string
}

// OnStartedNotifier is called once the node and all its declared children
// have finished starting and every activity has been scheduled, just
// before the started flag raises. Returning an error is treated as an
// activity crash (spec §4.3 start protocol step 5).
type OnStartedNotifier interface {
	OnStarted(ctx context.Context) error
}

// OnStopper is called when Stop begins, before children are stopped and
// before Run's context is cancelled. It is the place to signal Run's own
// loop to wind down cooperatively.
type OnStopper interface {
	OnStop(ctx context.Context) error
}

// OnShutdowner is called after every child has stopped and Run has
// returned, as the final step before the node reaches Shutdown.
type OnShutdowner interface {
	OnShutdown(ctx context.Context)
}

// OnCrasher is notified when the node itself crashes (Run or OnStart
// returned an error, or a hosted activity's crash propagated). It runs
// before the crash is reported to the node's parent.
type OnCrasher interface {
	OnCrash(ctx context.Context, err error)
}

// OnRestarter is called by Restart on a Shutdown or Crashed node, before
// the node is reset to Init and Start runs again.
type OnRestarter interface {
	OnRestart(ctx context.Context)
}

// Namer is implemented by a Service that wants to report its own name
// (e.g. derived from configuration); New uses it only when its name
// argument is empty.
type Namer interface {
	ServiceName() string
}

// MetricsHook observes state transitions and crashes across every node
// that shares it, for wiring into an external metrics system. All methods
// must be safe for concurrent use and must not block.
type MetricsHook interface {
	StateChanged(node string, from, to State)
	ActivityCrashed(node, activity string)
	DrainDuration(node string, ns int64)
}

// NopMetricsHook discards every observation. It is the default when no
// MetricsHook is configured.
type NopMetricsHook struct{}

func (NopMetricsHook) StateChanged(string, State, State) {}
func (NopMetricsHook) ActivityCrashed(string, string)    {}
func (NopMetricsHook) DrainDuration(string, int64)       {}

var _ MetricsHook = NopMetricsHook{}
