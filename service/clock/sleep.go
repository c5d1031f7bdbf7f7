package clock

import (
	"context"
	"reflect"
	"runtime"
	"time"
)

// Wakeup identifies why Sleep returned.
type Wakeup int

const (
	// TimerExpired means the requested duration elapsed.
	TimerExpired Wakeup = iota
	// Signaled means one of the supplied stop channels fired first.
	Signaled
	// ContextDone means ctx was cancelled first.
	ContextDone
)

func (w Wakeup) String() string {
	switch w {
	case TimerExpired:
		return "timer_expired"
	case Signaled:
		return "signaled"
	case ContextDone:
		return "context_done"
	default:
		return "unknown"
	}
}

// Sleep blocks until d elapses on clk, ctx is cancelled, or one of signals
// closes, whichever happens first. It never busy-waits: for d > 0 it blocks
// in a single select (built with reflect.Select since the number of signals
// is caller-determined).
//
// When d <= 0, Sleep yields once to the scheduler and returns TimerExpired
// without looking at ctx or signals.
//
// The returned index is meaningful only when wakeup == Signaled; it is the
// position in signals of the channel that fired, the lowest such position
// when several have closed.
func Sleep(ctx context.Context, clk Clock, d time.Duration, signals ...<-chan struct{}) (wakeup Wakeup, index int) {
	if d <= 0 {
		runtime.Gosched()
		return TimerExpired, -1
	}

	cases := make([]reflect.SelectCase, 0, len(signals)+2)
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(clk.After(d)),
	})

	for _, s := range signals {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(s),
		})
	}

	chosen, _, _ := reflect.Select(cases)
	switch chosen {
	case 0:
		return ContextDone, -1
	case 1:
		return TimerExpired, -1
	default:
		// reflect.Select picks among ready cases at random; report the
		// lowest-indexed signal that has closed.
		for i := 0; i < chosen-2; i++ {
			select {
			case <-signals[i]:
				return Signaled, i
			default:
			}
		}
		return Signaled, chosen - 2
	}
}
