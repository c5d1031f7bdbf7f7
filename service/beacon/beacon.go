// Package beacon provides the optional graph-registry collaborator a tree
// can report its topology to (for external visualization or audit), plus a
// uuid-based identity generator for services that don't supply their own
// name. Both are external, swappable concerns the core never hard-depends
// on: a Registry defaults to a no-op, and NewID defaults to a random UUID.
package beacon

import "github.com/google/uuid"

// Registry receives topology events as a tree starts, stops, and rewires
// runtime dependencies. Implementations should not block; NodeUp/NodeDown
// are fire-and-forget notifications, not lifecycle hooks.
type Registry interface {
	NodeUp(id, parent string)
	NodeDown(id string)
	EdgeAdded(parent, child string, runtime bool)
	EdgeRemoved(parent, child string)
}

// Nop discards every event. It is the default Registry when none is
// configured.
type Nop struct{}

func (Nop) NodeUp(string, string)          {}
func (Nop) NodeDown(string)                {}
func (Nop) EdgeAdded(string, string, bool) {}
func (Nop) EdgeRemoved(string, string)     {}

var _ Registry = Nop{}

// NewID returns a random identifier suitable for an unnamed service or
// activity instance.
func NewID() string {
	return uuid.NewString()
}
