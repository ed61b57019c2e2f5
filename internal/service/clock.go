package service

import (
	"time"

	"github.com/habitleague/habitleague-server/internal/calendar"
)

// Clock reports the current instant and calendar day in the configured location.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock creates a clock for loc. A nil now uses time.Now.
func NewClock(loc *time.Location, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, loc: loc}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	return c.now()
}

// Today returns the current calendar day.
func (c *Clock) Today() calendar.Date {
	return c.DateOf(c.now())
}

// DateOf returns the calendar day t falls on.
func (c *Clock) DateOf(t time.Time) calendar.Date {
	return calendar.In(t, c.loc)
}
