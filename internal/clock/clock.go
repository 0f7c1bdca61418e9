// Package clock provides the authoritative UTC time source for playout
// scheduling, plus timezone conversion helpers.
//
// All boundary math runs on UTC wall-clock values obtained from a Clock.
// The system clock guards against wall-clock steps: two NowUTC calls from
// the same process never return decreasing values.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTime is returned when an operation receives a zero timestamp.
// A zero time.Time carries no real instant and must never feed boundary math.
var ErrInvalidTime = errors.New("invalid time: zero timestamp")

// Clock is the read-only time source shared by all channel sessions.
type Clock interface {
	// NowUTC returns the current instant in UTC. Monotonic non-decreasing
	// for a single process.
	NowUTC() time.Time
}

// System is the production Clock backed by the OS wall clock.
type System struct {
	mu   sync.Mutex
	last time.Time
}

// NewSystem returns a system clock.
func NewSystem() *System {
	return &System{}
}

// NowUTC returns the current UTC time, clamped so that successive calls
// never go backwards even if the wall clock steps.
func (c *System) NowUTC() time.Time {
	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// NowLocal returns the current time in the named IANA timezone.
func NowLocal(c Clock, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return c.NowUTC().In(loc), nil
}

// SecondsSince returns the non-negative number of seconds elapsed since t.
func SecondsSince(c Clock, t time.Time) (float64, error) {
	if t.IsZero() {
		return 0, ErrInvalidTime
	}
	elapsed := c.NowUTC().Sub(t).Seconds()
	if elapsed < 0 {
		return 0, nil
	}
	return elapsed, nil
}

// ToUTC converts an aware timestamp to UTC.
func ToUTC(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidTime
	}
	return t.UTC(), nil
}

// ToLocal converts an aware UTC timestamp to the named IANA timezone.
func ToLocal(t time.Time, tz string) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidTime
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return t.In(loc), nil
}
