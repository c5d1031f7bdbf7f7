// Package service implements a cooperative supervision engine for
// long-lived background work: a tree of nodes, each wrapping a Service,
// each with its own lifecycle state machine, background activities, and
// crash propagation up to its parent.
//
// A Service is any type with a Run method:
//
//	type Pump struct{}
//	func (Pump) Run(ctx context.Context) error {
//		<-ctx.Done()
//		return ctx.Err()
//	}
//
// A Service optionally implements any of the hook interfaces in hooks.go
// (OnStarter, OnStopper, OnCrasher, ...) to participate in more of the
// lifecycle; Base supplies every hook's default no-op behavior so a bare
// Run method is always enough to get started.
//
// A node is built with New, wired into a tree with AddChild (before Start)
// or AddRuntimeDependency (while Starting or Running), and driven with
// Start, Stop, and Restart:
//
//	root := service.New("root", myRootService)
//	root.AddChild(service.New("worker", myWorker))
//	if err := root.Start(ctx); err != nil { ... }
//	defer root.Stop(context.Background())
//
// Background activities (futures, loop tasks, interval timers, cron
// timers) run under a node's own registry.Registry, reachable through
// AddFuture, AddTask, AddInterval, and AddCron, and are drained alongside
// the node's own Run body when the node stops.
package service
