package main

import (
	"context"
	"time"

	"github.com/tomtom215/gomode/internal/telemetry"
	"github.com/tomtom215/gomode/service"
	"github.com/tomtom215/gomode/service/activity"
	"github.com/tomtom215/gomode/service/svclog"
)

// heartbeatRoot is the example root service: it does no work of its own
// in Run (it just waits out the tree's lifetime) but hosts a heartbeat
// interval activity and declares one child worker.
type heartbeatRoot struct {
	sink svclog.Sink
	hook *telemetry.Hook
}

func (r *heartbeatRoot) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// DeclareChildren implements service.DeclareChildrener.
func (r *heartbeatRoot) DeclareChildren() []*service.Base {
	return []*service.Base{
		service.New("worker", &exampleWorker{sink: r.sink},
			service.WithSink(r.sink), service.WithMetricsHook(r.hook)),
	}
}

// OnStarted implements service.OnStartedNotifier: it logs once the tree is
// live. The heartbeat itself is registered by buildTree before Start, so it
// goes through Base.schedule's pending-before-start path.
func (r *heartbeatRoot) OnStarted(ctx context.Context) error {
	r.sink.Info("root started")
	return nil
}

func (r *heartbeatRoot) OnShutdown(ctx context.Context) {
	r.sink.Info("root shutdown")
}

// exampleWorker is the one declared child: a long-running body that waits
// out the tree's lifetime. It hosts no activities of its own; the heartbeat
// interval runs on the root.
type exampleWorker struct {
	sink svclog.Sink
}

func (w *exampleWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (w *exampleWorker) OnStart(ctx context.Context) error {
	return nil
}

// buildTree assembles the example supervision tree: a heartbeatRoot
// hosting one exampleWorker child, wired to sink for logging and hook for
// metrics, with a heartbeat interval scheduled on the root itself.
func buildTree(name string, sink svclog.Sink, hook *telemetry.Hook, forceGrace time.Duration) *service.Base {
	root := &heartbeatRoot{sink: sink, hook: hook}
	b := service.New(name, root,
		service.WithSink(sink),
		service.WithMetricsHook(hook),
		service.WithForceCancelGrace(forceGrace),
	)
	b.AddInterval("heartbeat", 30*time.Second, activity.Eager, func(ctx context.Context) error {
		sink.Debug("heartbeat", svclog.Str("node", name))
		return nil
	}, activity.AlwaysPropagate{})
	return b
}
