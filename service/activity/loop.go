package activity

import "context"

// LoopOptions configures a loop task.
type LoopOptions struct {
	// OneShot makes the loop behave like a future: run fn once and
	// return, instead of rerunning until cancelled.
	OneShot bool
}

type loopRunner struct {
	fn   Func
	opts LoopOptions
}

// NewLoop builds a Runner that invokes fn repeatedly until ctx is cancelled
// or fn returns a non-nil error, unless opts.OneShot is set, in which case
// it behaves like a future and runs fn exactly once.
func NewLoop(fn Func, opts LoopOptions) Runner {
	return &loopRunner{fn: fn, opts: opts}
}

func (r *loopRunner) Run(ctx context.Context) error {
	for {
		if err := r.fn(ctx); err != nil {
			return err
		}
		if r.opts.OneShot {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
