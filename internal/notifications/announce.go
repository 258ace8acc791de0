package notifications

import (
	"context"
	"time"

	"github.com/albapepper/bosswatch/internal/boss"
)

// RestartAlerts builds announcements for active bosses whose first spawn
// after restartAt is at most within away. within ≤ 0 disables them.
func RestartAlerts(bosses []boss.Boss, restartAt time.Time, within time.Duration) []Alert {
	if within <= 0 {
		return nil
	}
	var out []Alert
	for _, b := range bosses {
		if !b.Active || b.FirstSpawnMinutes == nil {
			continue
		}
		offset := time.Duration(*b.FirstSpawnMinutes) * time.Minute
		if offset > within {
			continue
		}
		out = append(out, Alert{Kind: KindRestart, Boss: b, Occurrence: restartAt.Add(offset)})
	}
	return out
}

// AnnounceRestart broadcasts RestartAlerts to current subscribers.
func (s *Scheduler) AnnounceRestart(ctx context.Context, restartAt time.Time, within time.Duration) ([]Alert, error) {
	st, err := s.source.ScheduleState(ctx)
	if err != nil {
		return nil, err
	}
	alerts := RestartAlerts(st.Bosses, s.zone.In(restartAt), within)
	s.Broadcast(ctx, alerts)
	if len(alerts) > 0 {
		s.logger.Info("restart announced", "bosses", len(alerts), "subscribers", s.subscribers.Len())
	}
	return alerts, nil
}
