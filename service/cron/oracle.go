// Package cron provides the pluggable "next fire time" oracle the cron
// timer activity consults. The oracle is deliberately a narrow interface
// (one method) so a host can swap in a different schedule grammar without
// the activity package ever depending on a concrete parser.
package cron

import (
	"fmt"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// Oracle computes the next fire time strictly after from.
type Oracle interface {
	Next(from time.Time) time.Time
}

// Standard parses a standard five-field crontab expression (as understood
// by github.com/robfig/cron/v3's ParseStandard: minute hour dom month dow)
// into an Oracle. Schedules are evaluated in the given location, so DST
// transitions and fixed-offset skew are handled the way the underlying
// library handles them for any other cron consumer.
type Standard struct {
	schedule robfigcron.Schedule
	loc      *time.Location
}

// NewStandard parses expr and binds it to loc (time.Local if nil).
func NewStandard(expr string, loc *time.Location) (*Standard, error) {
	sched, err := robfigcron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: parse %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Standard{schedule: sched, loc: loc}, nil
}

// Next returns the first fire time strictly after from, evaluated in the
// oracle's configured location.
func (s *Standard) Next(from time.Time) time.Time {
	return s.schedule.Next(from.In(s.loc))
}

var _ Oracle = (*Standard)(nil)
