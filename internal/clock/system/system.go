// Package system provides a real clock implementation.
package system

import "time"

// Clock implements scraper.Clock using time.Now in a fixed location, so all
// window math happens in the configured schedule timezone.
type Clock struct {
	loc *time.Location
}

// New creates a new Clock pinned to loc.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}
