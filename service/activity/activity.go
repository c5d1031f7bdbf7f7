// Package activity implements the four background activity kinds a service
// can run alongside its main body: one-shot futures, repeating loop tasks,
// interval timers (eager or lazy), and cron timers driven by a pluggable
// next-fire-time oracle. All four reduce to the same Runner contract so the
// registry that hosts them never needs to know which kind it's driving.
package activity

import "context"

// Func is the unit of work a background activity executes on each firing.
// A non-nil return stops the activity and is reported to its crash policy.
type Func func(ctx context.Context) error

// Runner drives repeated or one-shot execution of a Func according to some
// timing policy. Run blocks until ctx is cancelled or the underlying Func
// returns a terminal error.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to Runner, used for the future (one
// shot) activity kind where no extra timing policy is needed.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

var _ Runner = RunnerFunc(nil)
