package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manual time source shared by services under test. Deadlines and
// cron sweeps only move when a test moves the clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for service dependencies. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvancePast moves the clock one second beyond deadline. A clock already
// past deadline is left alone.
func (c *Clock) AdvancePast(deadline time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.now.After(deadline) {
		c.now = deadline.Add(time.Second)
	}
	return c.now
}
