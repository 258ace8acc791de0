package boss

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one row of the list view.
type Entry struct {
	Boss Boss       `json:"boss"`
	Next *time.Time `json:"next,omitempty"`
}

// List returns active bosses with their next occurrence, soonest first and
// unscheduled bosses last.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	st, err := s.store.ScheduleState(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(st.Bosses))
	for _, b := range st.Bosses {
		entries = append(entries, Entry{Boss: b, Next: s.next(b, st.RestartAt)})
	}
	SortEntries(entries)
	return entries, nil
}

// Describe returns one boss with its next occurrence.
func (s *Service) Describe(ctx context.Context, id int) (Entry, error) {
	b, err := s.store.GetBoss(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	restart, err := s.store.RestartAnchor(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("read restart anchor: %w", err)
	}
	return Entry{Boss: b, Next: s.next(b, restart)}, nil
}

// SortEntries orders by next occurrence, then id; unscheduled go last.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Next == nil && b.Next == nil:
			return a.Boss.ID < b.Boss.ID
		case a.Next == nil:
			return false
		case b.Next == nil:
			return true
		case !a.Next.Equal(*b.Next):
			return a.Next.Before(*b.Next)
		default:
			return a.Boss.ID < b.Boss.ID
		}
	})
}

// FormatList renders the list view as chat text:
// HH:MM | id | name | chance% | resp 10h | first 5h
func (s *Service) FormatList(entries []Entry) string {
	if len(entries) == 0 {
		return "No active bosses."
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s | %d | %s | %d%% | resp %s | first %s",
			s.zone.FormatShort(e.Next), e.Boss.ID, e.Boss.Name, e.Boss.ChancePercent,
			FormatInterval(e.Boss.RespawnMinutes), FormatFirst(e.Boss.FirstSpawnMinutes)))
	}
	return strings.Join(lines, "\n")
}
