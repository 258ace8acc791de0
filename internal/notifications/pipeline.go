package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/ledger"
)

// RunCycle evaluates every active boss at now, records due alerts in the
// ledger and dispatches them. A cycle with no subscribers is skipped without
// touching the ledger, so alerts still reach the first chat that joins
// inside their window.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) (CycleReport, error) {
	report := CycleReport{At: now}

	subs := s.subscribers.List()
	if len(subs) == 0 {
		report.NoSubscribers = true
		return report, nil
	}

	alerts, err := s.evaluate(ctx, now, &report)
	if err != nil {
		return report, err
	}
	report.Alerts = alerts
	if len(alerts) == 0 {
		return report, nil
	}

	report.Deliveries = s.dispatch(ctx, subs, alerts)
	return report, nil
}

// evaluate runs the per-boss loop under the cycle lock.
func (s *Scheduler) evaluate(ctx context.Context, now time.Time, report *CycleReport) ([]Alert, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	// 1. One consistent snapshot from the store
	st, err := s.source.ScheduleState(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := boss.NormalizeLeads(st.Leads)
	if err != nil {
		leads = boss.DefaultLeads
	}

	// 2. Per-boss decision, isolated so one fault cannot stop the rest
	var alerts []Alert
	for _, b := range st.Bosses {
		report.Evaluated++
		alert, scheduled, err := s.evaluateBoss(b, st.RestartAt, leads, now)
		if err != nil {
			report.Faults++
			s.logger.Error("boss evaluation failed", "boss_id", b.ID, "name", b.Name, "error", err)
			continue
		}
		if !scheduled {
			report.Unscheduled++
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

func (s *Scheduler) evaluateBoss(b boss.Boss, restart *time.Time, leads []int, now time.Time) (alert *Alert, scheduled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	p := b.Params(restart)

	// Catch-up rolls an occurrence landing exactly on now forward a whole
	// interval; it still gets its appearance.
	if passed, ok := s.calc.Passed(p, now); ok {
		if lead, due := Due(passed.Sub(now), nil); due && s.ledger.ShouldFire(b.ID, passed, lead) {
			return s.alert(b, passed, lead), true, nil
		}
	}

	next, ok := s.calc.Next(p, now)
	if !ok {
		return nil, false, nil
	}
	lead, due := Due(next.Sub(now), leads)
	if !due || !s.ledger.ShouldFire(b.ID, next, lead) {
		return nil, true, nil
	}
	return s.alert(b, next, lead), true, nil
}

func (s *Scheduler) alert(b boss.Boss, occurrence time.Time, lead int) *Alert {
	kind := KindLead
	if lead == ledger.Appearance {
		kind = KindAppeared
	}
	return &Alert{Kind: kind, Boss: b, Occurrence: s.zone.In(occurrence), Lead: lead}
}
