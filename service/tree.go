package service

import (
	"context"

	"github.com/tomtom215/gomode/service/errs"
)

// AddChild declares child as a member of this node's tree before Start is
// called. Declared children are started in declaration order and stopped
// in strict reverse order alongside any runtime dependencies added later.
// AddChild is InvalidState once this node has left Init.
func (b *Base) AddChild(child *Base) error {
	if child == nil {
		return errs.New("service.AddChild", errs.InvalidArgument)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() != Init {
		return errs.New("service.AddChild", errs.InvalidState)
	}
	child.parent = b
	b.members = append(b.members, member{node: child, runtime: false})
	return nil
}

// AddRuntimeDependency adds and starts child as a live member of this
// node's tree. Unlike AddChild, it is only valid while this node is
// Starting or Running, and it starts child immediately: "runtime
// dependency" means a dependency discovered and brought up while the owner
// is already live, not one known at construction time.
func (b *Base) AddRuntimeDependency(ctx context.Context, child *Base) error {
	if child == nil {
		return errs.New("service.AddRuntimeDependency", errs.InvalidArgument)
	}
	b.mu.Lock()
	state := b.State()
	if state != Starting && state != Running {
		b.mu.Unlock()
		return errs.New("service.AddRuntimeDependency", errs.InvalidState)
	}
	child.parent = b
	b.members = append(b.members, member{node: child, runtime: true})
	b.graph.EdgeAdded(b.name, child.name, true)
	b.mu.Unlock()

	if err := child.Start(ctx); err != nil {
		return errs.Wrap("service.AddRuntimeDependency", errs.DependencyFailure, err)
	}
	return nil
}

// UnstoppedReport returns the names of every member (recursively) that has
// not yet reached Shutdown, for diagnosing a drain that didn't fully
// complete.
func (b *Base) UnstoppedReport() []string {
	var report []string
	b.mu.Lock()
	members := append([]member(nil), b.members...)
	b.mu.Unlock()

	for _, m := range members {
		if m.node.State() != Shutdown {
			report = append(report, m.node.name)
		}
		report = append(report, m.node.UnstoppedReport()...)
	}
	return report
}
