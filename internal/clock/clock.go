// Package clock normalizes instants to the single civil timezone the tracker
// runs in. The store keeps naive wall-clock values in that zone; everything
// that crosses a package boundary is an absolute time.Time.
package clock

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo
)

// DefaultTimezone is the zone the game servers announce restarts in (UTC+3).
const DefaultTimezone = "Europe/Simferopol"

// Clock supplies the current instant. The scheduler and the admin service take
// a Clock so tests can pin time.
type Clock interface {
	Now() time.Time
}

// Zone wraps the configured location.
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA zone name.
func LoadZone(name string) (*Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Zone{loc: loc}, nil
}

// NewZone wraps an already resolved location.
func NewZone(loc *time.Location) *Zone {
	return &Zone{loc: loc}
}

// Location returns the wrapped location.
func (z *Zone) Location() *time.Location { return z.loc }

// Now returns the current instant expressed in the zone.
func (z *Zone) Now() time.Time { return time.Now().In(z.loc) }

// In expresses t in the zone.
func (z *Zone) In(t time.Time) time.Time { return t.In(z.loc) }

// Naive strips the zone after converting t to local wall-clock time. The
// result carries UTC as a placeholder location and is only meant for storage.
func (z *Zone) Naive(t time.Time) time.Time {
	l := t.In(z.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// FromNaive reinterprets a stored wall-clock value as local time in the zone.
func (z *Zone) FromNaive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), z.loc)
}

// Date builds a local instant in the zone.
func (z *Zone) Date(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, z.loc)
}

// Fixed is a manually driven Clock.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a Fixed clock pinned at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
