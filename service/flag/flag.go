// Package flag provides a level-triggered, fire-once signal: a latch that
// starts unset, can be set exactly once, and is safe to observe from any
// number of goroutines before or after the set happens.
//
// A Flag is built around closing a channel rather than a bool plus mutex:
// closing a channel is itself the broadcast, so IsSet, Done, and a select
// against the channel all observe the same event with no missed wakeups.
package flag

import "sync"

// Flag is a one-way latch. The zero value is unset and ready to use.
type Flag struct {
	once sync.Once
	ch   chan struct{}
	mu   sync.Mutex
}

func (f *Flag) init() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		f.ch = make(chan struct{})
	}
	return f.ch
}

// Set latches the flag. Subsequent calls are no-ops. Returns true the first
// time it actually latches the flag, false if it was already set.
func (f *Flag) Set() bool {
	ch := f.init()
	fired := false
	f.once.Do(func() {
		close(ch)
		fired = true
	})
	return fired
}

// IsSet reports whether the flag has been latched, without blocking.
func (f *Flag) IsSet() bool {
	select {
	case <-f.init():
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the flag is set. It is safe to
// call before or after Set, and safe to call concurrently.
func (f *Flag) Done() <-chan struct{} {
	return f.init()
}
