// Package ledger records which alerts were already sent so each
// (boss, occurrence, lead) triple goes out at most once, no matter how many
// ticks recompute the same occurrence.
package ledger

import (
	"sync"
	"time"
)

// Appearance is the lead value used for the "boss appeared" alert.
const Appearance = 0

// Key identifies one alert. Occurrence is the Unix minute of the occurrence
// instant, so recomputations that differ only in seconds collapse together.
type Key struct {
	BossID     int
	Occurrence int64
	Lead       int
}

// NewKey builds a key, truncating the occurrence to the minute.
func NewKey(bossID int, occurrence time.Time, lead int) Key {
	return Key{
		BossID:     bossID,
		Occurrence: occurrence.Unix() / 60,
		Lead:       lead,
	}
}

// OccurrenceTime returns the minute the key refers to.
func (k Key) OccurrenceTime() time.Time {
	return time.Unix(k.Occurrence*60, 0)
}

// Ledger is safe for concurrent use; ShouldFire is an atomic check-and-insert.
type Ledger struct {
	mu   sync.Mutex
	sent map[Key]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{sent: make(map[Key]struct{})}
}

// ShouldFire reports whether the alert has not been sent yet, and records it.
func (l *Ledger) ShouldFire(bossID int, occurrence time.Time, lead int) bool {
	k := NewKey(bossID, occurrence, lead)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.sent[k]; dup {
		return false
	}
	l.sent[k] = struct{}{}
	return true
}

// Seen reports whether the alert was recorded, without recording it.
func (l *Ledger) Seen(bossID int, occurrence time.Time, lead int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[NewKey(bossID, occurrence, lead)]
	return ok
}

// Len returns the number of recorded alerts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

// Prune forgets alerts whose occurrence is before cutoff and returns how many
// were dropped.
func (l *Ledger) Prune(cutoff time.Time) int {
	limit := cutoff.Unix() / 60
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k := range l.sent {
		if k.Occurrence < limit {
			delete(l.sent, k)
			n++
		}
	}
	return n
}
