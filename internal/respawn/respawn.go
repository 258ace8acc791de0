// Package respawn computes when a boss appears next. The calculation is pure:
// it looks only at the boss's last kill, the global restart anchor, the two
// interval parameters and the supplied "now".
package respawn

import "time"

// DefaultGrace is how long a just-passed first appearance is still reported
// as-is instead of being rolled forward. It must cover at least two scheduler
// ticks, otherwise an appearance that falls between ticks is never announced.
const DefaultGrace = 2 * time.Minute

// Params are the scheduling inputs for one boss.
type Params struct {
	LastKill          *time.Time
	RestartAt         *time.Time
	FirstSpawnMinutes *int // nil: appears right at restart
	RespawnMinutes    int
}

// Calculator computes next occurrences with a configurable grace window.
type Calculator struct {
	Grace time.Duration
}

// New returns a Calculator. A non-positive grace falls back to DefaultGrace.
func New(grace time.Duration) Calculator {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return Calculator{Grace: grace}
}

// Next returns the next occurrence, or false when the boss cannot be
// scheduled: a non-positive respawn interval, or neither a kill nor a restart
// to anchor to.
//
// A recorded kill wins and is stepped forward exactly once. Without a kill the
// first appearance is restart + first-spawn offset; once it is more than the
// grace window in the past it is advanced by whole intervals to the first
// occurrence strictly after now. An occurrence exactly at now is reported
// by Passed.
func (c Calculator) Next(p Params, now time.Time) (time.Time, bool) {
	if p.RespawnMinutes <= 0 {
		return time.Time{}, false
	}
	interval := time.Duration(p.RespawnMinutes) * time.Minute

	if p.LastKill != nil {
		return p.LastKill.Add(interval), true
	}
	if p.RestartAt == nil {
		return time.Time{}, false
	}

	first := p.first()
	elapsed := now.Sub(first)
	if elapsed <= c.grace() {
		return first, true
	}
	cycles := elapsed/interval + 1
	return first.Add(cycles * interval), true
}

// Passed returns the occurrence Next stepped over while catching up: the
// latest point of the restart grid at or before now. It reports false when
// Next did not catch up (kill-anchored, still pending, or inside the grace
// window). When now sits exactly on the grid, Passed is now itself.
func (c Calculator) Passed(p Params, now time.Time) (time.Time, bool) {
	if p.LastKill != nil || p.RestartAt == nil {
		return time.Time{}, false
	}
	next, ok := c.Next(p, now)
	if !ok {
		return time.Time{}, false
	}
	prev := next.Add(-time.Duration(p.RespawnMinutes) * time.Minute)
	if prev.Before(p.first()) {
		return time.Time{}, false
	}
	return prev, true
}

func (p Params) first() time.Time {
	first := *p.RestartAt
	if p.FirstSpawnMinutes != nil {
		first = first.Add(time.Duration(*p.FirstSpawnMinutes) * time.Minute)
	}
	return first
}

func (c Calculator) grace() time.Duration {
	if c.Grace <= 0 {
		return DefaultGrace
	}
	return c.Grace
}

// Next computes with DefaultGrace.
func Next(p Params, now time.Time) (time.Time, bool) {
	return Calculator{Grace: DefaultGrace}.Next(p, now)
}
