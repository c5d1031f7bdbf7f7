package activity

import (
	gobreaker "github.com/sony/gobreaker/v2"
)

// CrashDecision is what a CrashPolicy decides to do with an activity's
// terminal error.
type CrashDecision int

const (
	// Propagate stops the activity for good: the registry tells its
	// supervisor not to restart it and notifies the owning service as a
	// real ActivityCrash, following the normal crash-propagation path.
	Propagate CrashDecision = iota
	// Suppress hands the crash back to the registry's supervisor instead
	// of notifying the owner: the activity is restarted on the
	// supervisor's own failure-threshold/decay/backoff schedule, same as
	// any other crashed suture.Service.
	Suppress
)

// CrashPolicy decides, given an activity's terminal error, whether it
// should propagate to the owning service or be left to the hosting
// registry's supervisor to restart.
type CrashPolicy interface {
	Decide(err error) CrashDecision
}

// AlwaysPropagate is the default CrashPolicy: every crash propagates.
type AlwaysPropagate struct{}

func (AlwaysPropagate) Decide(error) CrashDecision { return Propagate }

// CircuitBreakerPolicy layers a per-activity breaker on top of the
// registry's per-node restart/backoff: while the gobreaker circuit stays
// closed, a crash is Suppressed and the registry's supervisor keeps
// restarting the activity on its own schedule; once the breaker trips open
// the crash Propagates instead, stopping the activity for good and
// notifying the owner. The two are complementary, not redundant -- gobreaker
// tracks this one activity's failure rate and decides whether it's still
// worth retrying at all; the supervisor decides how fast to retry it.
type CircuitBreakerPolicy struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreakerPolicy builds a CircuitBreakerPolicy from gobreaker
// settings (ReadyToTrip, Interval, Timeout, etc. -- see gobreaker.Settings).
func NewCircuitBreakerPolicy(settings gobreaker.Settings) *CircuitBreakerPolicy {
	return &CircuitBreakerPolicy{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (p *CircuitBreakerPolicy) Decide(err error) CrashDecision {
	wasOpen := p.cb.State() == gobreaker.StateOpen
	_, _ = p.cb.Execute(func() (any, error) { return nil, err })
	isOpen := p.cb.State() == gobreaker.StateOpen

	if isOpen {
		return Propagate
	}
	if wasOpen {
		return Propagate
	}
	return Suppress
}

var (
	_ CrashPolicy = AlwaysPropagate{}
	_ CrashPolicy = (*CircuitBreakerPolicy)(nil)
)
