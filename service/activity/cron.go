package activity

import (
	"context"

	"github.com/tomtom215/gomode/service/clock"
	"github.com/tomtom215/gomode/service/cron"
)

// CronOptions configures a cron timer.
type CronOptions struct {
	Oracle cron.Oracle
	Clock  clock.Clock
}

type cronRunner struct {
	fn   Func
	opts CronOptions
}

// NewCron builds a Runner that fires fn at each time produced by the
// oracle. Cron timers are lazy only: the first fire is the oracle's next
// scheduled time after start, never immediate, since "fire now" has no
// sensible meaning for a crontab schedule.
//
// Each fire recomputes the next deadline from the oracle using the current
// wall-clock time, so DST transitions and daylight-saving skew are handled
// the way the oracle's underlying schedule library handles them.
func NewCron(fn Func, opts CronOptions) Runner {
	return &cronRunner{fn: fn, opts: opts}
}

func (r *cronRunner) Run(ctx context.Context) error {
	clk := r.opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	for {
		now := clk.Now()
		next := r.opts.Oracle.Next(now)
		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}

		wakeup, _ := clock.Sleep(ctx, clk, wait)
		if wakeup == clock.ContextDone {
			return ctx.Err()
		}

		if err := r.fn(ctx); err != nil {
			return err
		}
	}
}
