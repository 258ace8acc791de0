package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/respawn"
)

func intp(v int) *int { return &v }

type fakeSource struct {
	bosses  []boss.Boss
	restart *time.Time
	leads   []int
	err     error
	reads   int
}

func (f *fakeSource) ScheduleState(context.Context) (boss.ScheduleState, error) {
	f.reads++
	if f.err != nil {
		return boss.ScheduleState{}, f.err
	}
	return boss.ScheduleState{RestartAt: f.restart, Leads: f.leads, Bosses: f.bosses}, nil
}

type sent struct {
	sub   string
	alert Alert
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]error
}

func (r *recorder) Send(_ context.Context, sub string, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[sub]; err != nil {
		return err
	}
	r.sent = append(r.sent, sent{sub, a})
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func newTestScheduler(t *testing.T, src *fakeSource, sender Sender) (*Scheduler, *clock.Zone) {
	t.Helper()
	zone, err := clock.LoadZone(clock.DefaultTimezone)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(src, respawn.New(0), sender, zone, nil, Config{DispatchTimeout: time.Second}, logger)
	return s, zone
}

func TestDue(t *testing.T) {
	leads := []int{15, 5, 1}
	tests := []struct {
		delta time.Duration
		lead  int
		ok    bool
	}{
		{-90 * time.Second, 0, false},
		{-time.Minute, 0, false},
		{-59 * time.Second, 0, true},
		{0, 0, true},
		{time.Minute, 0, true},
		{61 * time.Second, 1, true},
		{2 * time.Minute, 1, true},
		{150 * time.Second, 0, false},
		{4*time.Minute + 30*time.Second, 5, true},
		{6 * time.Minute, 5, true},
		{10 * time.Minute, 0, false},
		{14 * time.Minute, 15, true},
		{16*time.Minute + time.Second, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.delta.String(), func(t *testing.T) {
			lead, ok := Due(tt.delta, leads)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.lead, lead)
			}
		})
	}
}

func TestDue_FirstMatchingLeadWins(t *testing.T) {
	lead, ok := Due(3*time.Minute, []int{4, 2})
	require.True(t, ok)
	assert.Equal(t, 4, lead)
}

func TestRunCycle_LeadFiresOnceAcrossTicks(t *testing.T) {
	src := &fakeSource{leads: []int{15, 5, 1}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(4*time.Minute + 30*time.Second).Add(-60 * time.Minute)
	src.bosses = []boss.Boss{{ID: 7, Name: "Cabrio", ChancePercent: 50, RespawnMinutes: 60, Active: true, LastKill: &kill}}
	s.Subscribers().Add("tg:1")

	report, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, 5, report.Alerts[0].Lead)
	assert.Equal(t, KindLead, report.Alerts[0].Kind)

	report, err = s.RunCycle(context.Background(), now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, report.Alerts)

	assert.Equal(t, 1, rec.count())
}

func TestRunCycle_AppearanceAfterLeads(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	restart := zone.Date(2024, 1, 1, 9, 0)
	src.restart = &restart
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 120, FirstSpawnMinutes: intp(60), Active: true}}
	s.Subscribers().Add("tg:1")
	ctx := context.Background()

	var kinds []Kind
	for now := zone.Date(2024, 1, 1, 9, 50); now.Before(zone.Date(2024, 1, 1, 10, 10)); now = now.Add(time.Minute) {
		r, err := s.RunCycle(ctx, now)
		require.NoError(t, err)
		for _, a := range r.Alerts {
			kinds = append(kinds, a.Kind)
			assert.True(t, a.Occurrence.Equal(zone.Date(2024, 1, 1, 10, 0)))
		}
	}
	assert.Equal(t, []Kind{KindLead, KindAppeared}, kinds)
}

func TestRunCycle_GraceLetsFirstAppearanceFire(t *testing.T) {
	src := &fakeSource{leads: []int{15}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	restart := zone.Date(2024, 1, 1, 11, 59).Add(30 * time.Second)
	src.restart = &restart
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 180, Active: true}}
	s.Subscribers().Add("tg:1")

	r, err := s.RunCycle(context.Background(), zone.Date(2024, 1, 1, 12, 0))
	require.NoError(t, err)
	require.Len(t, r.Alerts, 1)
	assert.Equal(t, KindAppeared, r.Alerts[0].Kind)
	assert.True(t, r.Alerts[0].Occurrence.Equal(restart))
}

func TestRunCycle_AppearanceExactlyOnCatchUpBoundary(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	restart := zone.Date(2024, 1, 1, 9, 0)
	src.restart = &restart
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 60, Active: true}}
	s.Subscribers().Add("tg:1")
	noon := zone.Date(2024, 1, 1, 12, 0)

	r, err := s.RunCycle(context.Background(), noon)
	require.NoError(t, err)
	require.Len(t, r.Alerts, 1)
	assert.Equal(t, KindAppeared, r.Alerts[0].Kind)
	assert.True(t, r.Alerts[0].Occurrence.Equal(noon))
	assert.Equal(t, 1, src.reads)

	r, err = s.RunCycle(context.Background(), noon.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, r.Alerts)
	assert.Equal(t, 1, rec.count())
}

func TestRunCycle_BoundaryAppearanceFiresOnceAcrossTicks(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	restart := zone.Date(2024, 1, 1, 9, 0)
	src.restart = &restart
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 60, Active: true}}
	s.Subscribers().Add("tg:1")
	noon := zone.Date(2024, 1, 1, 12, 0)

	for _, now := range []time.Time{noon.Add(-30 * time.Second), noon, noon.Add(30 * time.Second)} {
		_, err := s.RunCycle(context.Background(), now)
		require.NoError(t, err)
	}
	require.Equal(t, 1, rec.count())
	assert.Equal(t, KindAppeared, rec.sent[0].alert.Kind)
	assert.True(t, rec.sent[0].alert.Occurrence.Equal(noon))
}

func TestRunCycle_SkipsStaleAndUnscheduled(t *testing.T) {
	src := &fakeSource{leads: []int{15, 5, 1}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(-62 * time.Minute)
	src.bosses = []boss.Boss{
		{ID: 1, Name: "Stale", RespawnMinutes: 60, Active: true, LastKill: &kill},
		{ID: 2, Name: "NoAnchor", RespawnMinutes: 60, Active: true},
		{ID: 3, Name: "Broken", RespawnMinutes: 0, Active: true, LastKill: &kill},
	}
	s.Subscribers().Add("tg:1")

	r, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, r.Alerts)
	assert.Equal(t, 3, r.Evaluated)
	assert.Equal(t, 2, r.Unscheduled)
	assert.Zero(t, rec.count())
}

func TestRunCycle_NoSubscribersLeavesLedgerUntouched(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(5*time.Minute - time.Hour)
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 60, Active: true, LastKill: &kill}}

	r, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, r.NoSubscribers)
	assert.Zero(t, s.Ledger().Len())

	s.Subscribers().Add("ws:late")
	r, err = s.RunCycle(context.Background(), now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Len(t, r.Alerts, 1)
}

func TestRunCycle_PrunesPermanentFailures(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{fail: map[string]error{
		"tg:gone":  fmt.Errorf("blocked: %w", ErrPermanent),
		"tg:flaky": errors.New("timeout"),
	}}
	s, zone := newTestScheduler(t, src, rec)

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(5*time.Minute - time.Hour)
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 60, Active: true, LastKill: &kill}}
	for _, id := range []string{"tg:gone", "tg:flaky", "tg:ok"} {
		s.Subscribers().Add(id)
	}

	r, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"tg:gone"}, r.Pruned())
	assert.Equal(t, []string{"tg:flaky", "tg:ok"}, s.Subscribers().List())
	assert.Equal(t, 1, rec.count())
}

func TestRunCycle_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	var fast sync.WaitGroup
	fast.Add(1)
	sender := SenderFunc(func(ctx context.Context, sub string, _ Alert) error {
		if sub == "tg:slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		fast.Done()
		return nil
	})
	s, zone := newTestScheduler(t, src, sender)
	s.cfg.DispatchTimeout = 50 * time.Millisecond

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(5*time.Minute - time.Hour)
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 60, Active: true, LastKill: &kill}}
	s.Subscribers().Add("tg:slow")
	s.Subscribers().Add("tg:fast")

	start := time.Now()
	r, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	fast.Wait()
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, r.Deliveries, 2)
	assert.True(t, s.Subscribers().Contains("tg:slow"))
}

func TestRunCycle_HangingSubscriberBoundedByOneDeadline(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	sender := SenderFunc(func(ctx context.Context, sub string, _ Alert) error {
		if sub == "tg:hang" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	s, zone := newTestScheduler(t, src, sender)
	s.cfg.DispatchTimeout = 200 * time.Millisecond

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(-time.Hour)
	for id := 1; id <= 6; id++ {
		src.bosses = append(src.bosses, boss.Boss{ID: id, Name: fmt.Sprintf("B%d", id), RespawnMinutes: 60, Active: true, LastKill: &kill})
	}
	s.Subscribers().Add("tg:hang")
	s.Subscribers().Add("tg:ok")

	start := time.Now()
	r, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, r.Alerts, 6)

	byID := map[string]Delivery{}
	for _, d := range r.Deliveries {
		byID[d.Subscriber] = d
	}
	assert.Equal(t, 6, byID["tg:ok"].Sent)
	assert.Zero(t, byID["tg:hang"].Sent)
	assert.Equal(t, 5, byID["tg:hang"].Dropped)
	assert.ErrorIs(t, byID["tg:hang"].Err, context.DeadlineExceeded)
	assert.True(t, s.Subscribers().Contains("tg:hang"))
}

func TestRunCycle_IsolatesBossFaults(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(5*time.Minute - time.Hour)
	src.bosses = []boss.Boss{
		{ID: 1, Name: "A", RespawnMinutes: 60, Active: true, LastKill: &kill},
		{ID: 2, Name: "B", RespawnMinutes: 60, Active: true, LastKill: &kill},
	}
	s.Subscribers().Add("tg:1")

	// A nil ledger panics on use: every boss faults, none aborts the loop.
	s.ledger = nil
	r, err := s.RunCycle(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Evaluated)
	assert.Equal(t, 2, r.Faults)
	assert.Empty(t, r.Alerts)
}

func TestRunCycle_StoreErrorAbortsCycle(t *testing.T) {
	src := &fakeSource{leads: []int{5}, err: errors.New("db down")}
	s, _ := newTestScheduler(t, src, &recorder{})
	s.Subscribers().Add("tg:1")

	_, err := s.RunCycle(context.Background(), time.Now())
	assert.ErrorContains(t, err, "db down")
}

func TestRunCycle_ConcurrentCyclesFireOnce(t *testing.T) {
	src := &fakeSource{leads: []int{5}}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)

	now := zone.Date(2024, 1, 1, 12, 0)
	kill := now.Add(5*time.Minute - time.Hour)
	src.bosses = []boss.Boss{{ID: 1, Name: "A", RespawnMinutes: 60, Active: true, LastKill: &kill}}
	s.Subscribers().Add("tg:1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.RunCycle(context.Background(), now)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, rec.count())
}

func TestRestartAlerts(t *testing.T) {
	zone, err := clock.LoadZone(clock.DefaultTimezone)
	require.NoError(t, err)
	restart := zone.Date(2024, 1, 1, 12, 0)
	bosses := []boss.Boss{
		{ID: 1, Name: "Fast", FirstSpawnMinutes: intp(1), Active: true},
		{ID: 2, Name: "Edge", FirstSpawnMinutes: intp(5), Active: true},
		{ID: 3, Name: "Slow", FirstSpawnMinutes: intp(6), Active: true},
		{ID: 4, Name: "None", Active: true},
	}

	alerts := RestartAlerts(bosses, restart, 5*time.Minute)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Fast", alerts[0].Boss.Name)
	assert.True(t, alerts[0].Occurrence.Equal(restart.Add(time.Minute)))
	assert.Equal(t, KindRestart, alerts[1].Kind)

	assert.Nil(t, RestartAlerts(bosses, restart, 0))
}

func TestAnnounceRestart_Broadcasts(t *testing.T) {
	src := &fakeSource{}
	rec := &recorder{}
	s, zone := newTestScheduler(t, src, rec)
	src.bosses = []boss.Boss{{ID: 1, Name: "Fast", FirstSpawnMinutes: intp(1), RespawnMinutes: 60, Active: true}}
	s.Subscribers().Add("tg:1")
	s.Subscribers().Add("ws:2")

	alerts, err := s.AnnounceRestart(context.Background(), zone.Date(2024, 1, 1, 12, 0), 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, 2, rec.count())
}

func TestAlertText(t *testing.T) {
	zone, err := clock.LoadZone(clock.DefaultTimezone)
	require.NoError(t, err)
	b := boss.Boss{ID: 3, Name: "Cabrio", ChancePercent: 50, FirstSpawnMinutes: intp(2)}
	at := zone.Date(2024, 1, 1, 14, 0)

	assert.Equal(t, "🔴 Boss appeared:\n14:00 | 3 | Cabrio | 50%", Alert{Kind: KindAppeared, Boss: b, Occurrence: at}.Text())
	assert.Equal(t, "⚠️ Respawn in 1 minute:\n14:00 | 3 | Cabrio | 50%", Alert{Kind: KindLead, Boss: b, Occurrence: at, Lead: 1}.Text())
	assert.Equal(t, "⚠️ Respawn in 15 minutes:\n14:00 | 3 | Cabrio | 50%", Alert{Kind: KindLead, Boss: b, Occurrence: at, Lead: 15}.Text())
	assert.Equal(t, "🔴 Boss spawns 2m after restart:\n14:00 | 3 | Cabrio | 50%", Alert{Kind: KindRestart, Boss: b, Occurrence: at}.Text())
}

func TestRouter(t *testing.T) {
	tg := &recorder{}
	r := NewRouter()
	r.Handle("tg", tg)

	require.NoError(t, r.Send(context.Background(), "tg:5", Alert{}))
	assert.Equal(t, 1, tg.count())

	assert.True(t, IsPermanent(r.Send(context.Background(), "ws:1", Alert{})))
	assert.True(t, IsPermanent(r.Send(context.Background(), "plain", Alert{})))
}

func TestSubscribers(t *testing.T) {
	s := NewSubscribers()
	assert.True(t, s.Add("b"))
	assert.False(t, s.Add("b"))
	s.Add("a")
	assert.Equal(t, []string{"a", "b"}, s.List())
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 1, s.Len())
}

func TestKickNeverBlocks(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeSource{}, &recorder{})
	for i := 0; i < 10; i++ {
		s.Kick()
	}
	assert.Len(t, s.kick, 1)
}
