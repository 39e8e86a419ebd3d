// Package clock abstracts the wall clock so expiry logic is deterministic
// under test. Production code injects Real(); tests inject Fake().
package clock

import (
	"math"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real returns a Clock backed by time.Now, normalized to UTC.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock is a manually driven Clock. Time stands still until Set or
// Advance is called. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake returns a FakeClock initialized to the given time.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial.UTC()}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// maxGrantHours is the largest whole number of hours a time.Duration holds.
const maxGrantHours = int64(math.MaxInt64 / int64(time.Hour))

// GrantDuration returns days*24h + hours*1h. ok is false for negative
// inputs or a total that does not fit in a time.Duration.
func GrantDuration(days, hours int) (d time.Duration, ok bool) {
	if days < 0 || hours < 0 {
		return 0, false
	}
	if int64(days) > maxGrantHours/24 {
		return 0, false
	}
	total := int64(days) * 24
	if int64(hours) > maxGrantHours-total {
		return 0, false
	}
	return time.Duration(total+int64(hours)) * time.Hour, true
}

// ExpiryAfter computes now + days*24h + hours*1h. ok is false when the
// grant is not a valid duration, see GrantDuration.
func ExpiryAfter(now time.Time, days, hours int) (t time.Time, ok bool) {
	d, ok := GrantDuration(days, hours)
	if !ok {
		return time.Time{}, false
	}
	return now.Add(d), true
}
