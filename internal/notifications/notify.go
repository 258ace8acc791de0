// Package notifications turns computed respawn times into at-most-once alerts
// for every subscriber.
//
// Pipeline: load snapshot → compute next occurrence per boss → detect the due
// window → check the ledger → fan out to subscribers. A ticker drives one
// cycle per period; admin mutations can kick an extra cycle.
package notifications

import (
	"fmt"
	"time"

	"github.com/albapepper/bosswatch/internal/boss"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultTickInterval    = time.Minute
	defaultFirstDelay      = 10 * time.Second
	defaultDispatchTimeout = 10 * time.Second
	defaultConcurrency     = 8
)

// Half-width of the alert windows around the appearance instant and each
// lead time.
const window = time.Minute

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Kind classifies an alert.
type Kind string

const (
	KindAppeared Kind = "appeared"
	KindLead     Kind = "lead"
	KindRestart  Kind = "restart"
)

// Alert is one message about one boss occurrence.
type Alert struct {
	Kind       Kind      `json:"kind"`
	Boss       boss.Boss `json:"boss"`
	Occurrence time.Time `json:"occurrence"`
	// Lead is minutes before Occurrence; 0 for the appearance itself and for
	// restart announcements.
	Lead int `json:"lead"`
}

// Text renders the alert for chat transports.
func (a Alert) Text() string {
	line := fmt.Sprintf("%s | %d | %s | %d%%",
		a.Occurrence.Format("15:04"), a.Boss.ID, a.Boss.Name, a.Boss.ChancePercent)
	switch a.Kind {
	case KindAppeared:
		return "🔴 Boss appeared:\n" + line
	case KindRestart:
		first := 0
		if a.Boss.FirstSpawnMinutes != nil {
			first = *a.Boss.FirstSpawnMinutes
		}
		return fmt.Sprintf("🔴 Boss spawns %dm after restart:\n%s", first, line)
	default:
		unit := "minutes"
		if a.Lead == 1 {
			unit = "minute"
		}
		return fmt.Sprintf("⚠️ Respawn in %d %s:\n%s", a.Lead, unit, line)
	}
}

// Delivery is the outcome for one subscriber within a cycle.
type Delivery struct {
	Subscriber string
	Sent       int
	// Dropped counts alerts not attempted because the deadline passed.
	Dropped int
	Err     error
	Pruned  bool
}

// CycleReport summarizes one tick.
type CycleReport struct {
	At          time.Time
	Evaluated   int
	Unscheduled int
	Faults      int
	Alerts      []Alert
	Deliveries  []Delivery
	// NoSubscribers is set when the cycle was skipped before evaluation.
	NoSubscribers bool
}

// Pruned lists subscribers removed during the cycle.
func (r CycleReport) Pruned() []string {
	var out []string
	for _, d := range r.Deliveries {
		if d.Pruned {
			out = append(out, d.Subscriber)
		}
	}
	return out
}
