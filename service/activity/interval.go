package activity

import (
	"context"
	"time"

	"github.com/tomtom215/gomode/service/clock"
)

// FirePolicy controls whether an interval timer's first fire happens
// immediately (Eager) or only after the first full interval elapses (Lazy).
type FirePolicy int

const (
	// Lazy waits one full interval before the first fire.
	Lazy FirePolicy = iota
	// Eager fires immediately on start, then every interval thereafter.
	Eager
)

// IntervalOptions configures an interval timer.
type IntervalOptions struct {
	Interval time.Duration
	Policy   FirePolicy
	Clock    clock.Clock
}

type intervalRunner struct {
	fn   Func
	opts IntervalOptions
}

// NewInterval builds a Runner that fires fn on a fixed cadence. Fire times
// are anchored to the start time rather than to "interval after the
// previous fn returned", so a slow fn does not drift the schedule.
//
// A ticking goroutine feeds a depth-1 buffered channel; if fn is still
// running when the next tick is due, at most one extra fire queues in the
// buffer and any further ticks are dropped until the consumer catches up.
// This bounds the backlog to one instead of letting missed ticks pile up.
func NewInterval(fn Func, opts IntervalOptions) Runner {
	return &intervalRunner{fn: fn, opts: opts}
}

func (r *intervalRunner) Run(ctx context.Context) error {
	clk := r.opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	ticks := make(chan struct{}, 1)
	tickerDone := make(chan struct{})
	go r.tick(ctx, clk, ticks, tickerDone)
	defer func() { <-tickerDone }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			if err := r.fn(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *intervalRunner) tick(ctx context.Context, clk clock.Clock, ticks chan<- struct{}, done chan<- struct{}) {
	defer close(done)

	next := r.opts.Interval
	if r.opts.Policy == Eager {
		next = 0
	}

	anchor := clk.Now()
	fireCount := int64(0)
	for {
		wakeup, _ := clock.Sleep(ctx, clk, next)
		if wakeup == clock.ContextDone {
			return
		}

		select {
		case ticks <- struct{}{}:
		default:
			// buffer already holds one pending fire; drop this tick.
		}

		fireCount++
		if r.opts.Policy == Eager {
			// after the immediate first fire, resume fixed cadence
			// anchored at start time.
			target := anchor.Add(time.Duration(fireCount) * r.opts.Interval)
			next = target.Sub(clk.Now())
			if next < 0 {
				next = 0
			}
		} else {
			target := anchor.Add(time.Duration(fireCount+1) * r.opts.Interval)
			next = target.Sub(clk.Now())
			if next < 0 {
				next = 0
			}
		}
	}
}
