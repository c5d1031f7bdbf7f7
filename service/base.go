package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/gomode/service/beacon"
	"github.com/tomtom215/gomode/service/clock"
	"github.com/tomtom215/gomode/service/flag"
	"github.com/tomtom215/gomode/service/registry"
	"github.com/tomtom215/gomode/service/svclog"
)

// member is one edge in a Base's tree: a child or runtime dependency, in
// the order it was added. Stop walks members in reverse, regardless of
// whether the edge was declared before Start or added at runtime, so the
// most recently depended-upon node always stops first.
type member struct {
	node    *Base
	runtime bool
}

// Base is the control structure for one node in a supervision tree: a
// Service plus its lifecycle state, background activity registry, and
// edges to children / runtime dependencies.
type Base struct {
	name string
	svc  Service

	clk   clock.Clock
	sink  svclog.Sink
	graph beacon.Registry

	metricsMu sync.RWMutex
	metrics   MetricsHook

	mu             sync.Mutex
	state          atomic.Int32
	firstStartDone atomic.Bool // true once OnFirstStart has run, ever (survives Restart)

	startedFlag  *flag.Flag
	stoppedFlag  *flag.Flag
	shutdownFlag *flag.Flag
	crashedFlag  *flag.Flag

	stopSignal chan struct{} // closed when Stop begins; fresh each generation

	reg *registry.Registry

	parent  *Base // non-owning backref for crash propagation
	members []member

	crashErr error

	forceCancelGrace time.Duration

	// pending holds activity registrations made before Start creates the
	// registry (the "declared before start" half of spec §1's "added both
	// declaratively and dynamically"); Start replays them in order once
	// reg exists. Registrations made after Start (from OnStart onward, or
	// from a running activity) go straight to reg instead.
	pending []func(*registry.Registry)
}

// Option configures a Base at construction time.
type Option func(*Base)

// WithClock overrides the time source used by Sleep and timers. Defaults to
// clock.Real{}.
func WithClock(clk clock.Clock) Option {
	return func(b *Base) { b.clk = clk }
}

// WithSink configures where this node's structured log lines go. Defaults
// to svclog.Nop{}.
func WithSink(sink svclog.Sink) Option {
	return func(b *Base) { b.sink = sink }
}

// WithMetricsHook configures where this node's state transitions and
// crashes are reported. Defaults to NopMetricsHook{}.
func WithMetricsHook(hook MetricsHook) Option {
	return func(b *Base) { b.metrics = hook }
}

// WithGraphRegistry configures an external topology observer. Defaults to
// beacon.Nop{}.
func WithGraphRegistry(reg beacon.Registry) Option {
	return func(b *Base) { b.graph = reg }
}

// WithForceCancelGrace sets how much longer Stop keeps waiting for its
// already-cancelled activities once the deadline of the ctx passed to Stop
// has elapsed, before it gives up on them and returns a Timeout error
// (spec §7 Timeout). Defaults to 2s.
func WithForceCancelGrace(d time.Duration) Option {
	return func(b *Base) { b.forceCancelGrace = d }
}

// New builds a node wrapping svc. A non-empty name argument always wins, so
// the caller controls what appears in logs and the tree. If name is empty,
// svc's ServiceName method (see Namer) supplies it; if that is missing or
// also empty, a random id is used (see beacon.NewID).
func New(name string, svc Service, opts ...Option) *Base {
	if name == "" {
		if n, ok := svc.(Namer); ok {
			name = n.ServiceName()
		}
	}
	if name == "" {
		name = beacon.NewID()
	}

	b := &Base{
		name:             name,
		svc:              svc,
		clk:              clock.Real{},
		sink:             svclog.Nop{},
		graph:            beacon.Nop{},
		metrics:          NopMetricsHook{},
		forceCancelGrace: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.resetGeneration()
	return b
}

func (b *Base) resetGeneration() {
	b.startedFlag = &flag.Flag{}
	b.stoppedFlag = &flag.Flag{}
	b.shutdownFlag = &flag.Flag{}
	b.crashedFlag = &flag.Flag{}
	b.stopSignal = make(chan struct{})
}

// Name returns the node's name.
func (b *Base) Name() string { return b.name }

// State returns the node's current lifecycle state.
func (b *Base) State() State {
	return State(b.state.Load())
}

func (b *Base) setState(s State) {
	old := State(b.state.Swap(int32(s)))
	if old == s {
		return
	}
	b.metricsMu.RLock()
	hook := b.metrics
	b.metricsMu.RUnlock()
	hook.StateChanged(b.name, old, s)
	b.sink.Debug("state transition", svclog.Str("node", b.name), svclog.Str("from", old.String()), svclog.Str("to", s.String()))
}

// Sleep is the cancellable sleep primitive available to a node's Run and
// activity bodies: it returns early if Stop is requested or ctx is
// cancelled, and never busy-waits.
func (b *Base) Sleep(ctx context.Context, d time.Duration) clock.Wakeup {
	wakeup, _ := clock.Sleep(ctx, b.clk, d, b.stopSignal)
	return wakeup
}

// ShouldStop reports whether Stop has been requested for this node,
// without blocking.
func (b *Base) ShouldStop() bool {
	select {
	case <-b.stopSignal:
		return true
	default:
		return false
	}
}
