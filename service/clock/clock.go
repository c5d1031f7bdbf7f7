// Package clock supplies the time source and cancellable sleep primitive the
// lifecycle core uses instead of calling time.Sleep or time.After directly,
// so interval timers, cron timers, and backoff delays can be driven by a
// fake clock in tests without a real wall-clock wait.
package clock

import "time"

// Clock abstracts time.Now and time.After.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Real is the production Clock, backed by the time package.
type Real struct{}

func (Real) Now() time.Time                  { return time.Now() }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ Clock = Real{}
