package boss_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/respawn"
	"github.com/albapepper/bosswatch/internal/testutil"
)

func intp(v int) *int { return &v }

type fixture struct {
	svc   *boss.Service
	store boss.Store
	zone  *clock.Zone
	clk   *clock.Fixed
	ctx   context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	zone := testutil.Zone(t)
	store := testutil.SQLiteStore(t, zone)
	clk := clock.NewFixed(zone.Date(2024, 1, 1, 12, 0))
	return fixture{
		svc:   boss.NewService(store, zone, clk, respawn.New(0), nil),
		store: store,
		zone:  zone,
		clk:   clk,
		ctx:   context.Background(),
	}
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   boss.Input
		err  error
	}{
		{"ok", boss.Input{Name: "A", ChancePercent: 50, RespawnMinutes: 60}, nil},
		{"blank name", boss.Input{Name: "  ", RespawnMinutes: 60}, boss.ErrInvalidName},
		{"zero interval", boss.Input{Name: "A", RespawnMinutes: 0}, boss.ErrInvalidInterval},
		{"chance over 100", boss.Input{Name: "A", ChancePercent: 101, RespawnMinutes: 1}, boss.ErrInvalidChance},
		{"negative first", boss.Input{Name: "A", RespawnMinutes: 1, FirstSpawnMinutes: intp(-5)}, boss.ErrInvalidFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestInputValidate_ZeroFirstBecomesOne(t *testing.T) {
	in, err := boss.Input{Name: " Cabrio ", RespawnMinutes: 60, FirstSpawnMinutes: intp(0)}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Cabrio", in.Name)
	require.NotNil(t, in.FirstSpawnMinutes)
	assert.Equal(t, 1, *in.FirstSpawnMinutes)
}

func TestService_KillReturnsNext(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "Cabrio", ChancePercent: 50, RespawnMinutes: 600})
	require.NoError(t, err)

	var changes []boss.Change
	f.svc.Observe(func(c boss.Change) { changes = append(changes, c) })

	killed := f.zone.Date(2024, 1, 1, 10, 0)
	got, next, err := f.svc.Kill(f.ctx, b.ID, killed, "manual")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(f.zone.Date(2024, 1, 1, 20, 0)))
	assert.Equal(t, boss.ScheduledFromKill, got.State())

	require.Len(t, changes, 1)
	assert.Equal(t, "kill", changes[0].Kind)
	assert.Equal(t, b.ID, changes[0].BossID)

	kills, err := f.store.ListKills(f.ctx, b.ID, 5)
	require.NoError(t, err)
	require.Len(t, kills, 1)
	assert.Equal(t, "manual", kills[0].Note)
}

func TestService_KillUnknown(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Kill(f.ctx, 42, f.clk.Now(), "")
	assert.ErrorIs(t, err, boss.ErrNotFound)
	assert.True(t, boss.IsNotFound(err))
}

func TestService_RestartClearsKills(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "A", RespawnMinutes: 600, FirstSpawnMinutes: intp(300)})
	require.NoError(t, err)
	_, err = f.svc.AddBoss(f.ctx, boss.Input{Name: "B", RespawnMinutes: 60})
	require.NoError(t, err)
	_, _, err = f.svc.Kill(f.ctx, a.ID, f.zone.Date(2024, 1, 1, 11, 0), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Restart(f.ctx, f.zone.Date(2024, 1, 1, 11, 30)))

	entries, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Nil(t, e.Boss.LastKill)
	}
	// A: 11:30 + 5h.
	require.NotNil(t, entries[0].Next)
	assert.Equal(t, "A", entries[0].Boss.Name)
	assert.True(t, entries[0].Next.Equal(f.zone.Date(2024, 1, 1, 16, 30)))
	// B has no offset: first occurrence is the anchor itself, 30m ago, so it
	// catches up to 12:30.
	require.NotNil(t, entries[1].Next)
	assert.True(t, entries[1].Next.Equal(f.zone.Date(2024, 1, 1, 12, 30)))
}

func TestService_ListWithoutRestartLeavesUnscheduledLast(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "Never", RespawnMinutes: 60})
	require.NoError(t, err)
	b, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "Killed", RespawnMinutes: 60})
	require.NoError(t, err)
	_, _, err = f.svc.Kill(f.ctx, b.ID, f.zone.Date(2024, 1, 1, 11, 50), "")
	require.NoError(t, err)

	entries, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].Boss.ID)
	assert.Equal(t, a.ID, entries[1].Boss.ID)
	assert.Nil(t, entries[1].Next)
}

func TestService_EditKeepsKill(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "Orfen", RespawnMinutes: 60})
	require.NoError(t, err)
	_, _, err = f.svc.Kill(f.ctx, b.ID, f.zone.Date(2024, 1, 1, 11, 0), "")
	require.NoError(t, err)

	edited, err := f.svc.EditBoss(f.ctx, b.ID, boss.Input{Name: "Orfen", ChancePercent: 33, RespawnMinutes: 120, FirstSpawnMinutes: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, 33, edited.ChancePercent)
	assert.Equal(t, 1, *edited.FirstSpawnMinutes)
	require.NotNil(t, edited.LastKill)

	e, err := f.svc.Describe(f.ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, e.Next)
	assert.True(t, e.Next.Equal(f.zone.Date(2024, 1, 1, 13, 0)))
}

func TestService_DuplicateAndDelete(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "Zaken", RespawnMinutes: 60})
	require.NoError(t, err)

	_, err = f.svc.AddBoss(f.ctx, boss.Input{Name: "Zaken", RespawnMinutes: 30})
	assert.ErrorIs(t, err, boss.ErrDuplicateName)

	removed, err := f.svc.DeleteBoss(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Zaken", removed.Name)

	_, err = f.svc.DeleteBoss(f.ctx, b.ID)
	assert.ErrorIs(t, err, boss.ErrNotFound)
}

func TestService_SetActive(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.AddBoss(f.ctx, boss.Input{Name: "Core", RespawnMinutes: 60})
	require.NoError(t, err)

	_, err = f.svc.SetActive(f.ctx, b.ID, false)
	require.NoError(t, err)

	entries, err := f.svc.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "No active bosses.", f.svc.FormatList(entries))
}

func TestService_SetNotificationLeads(t *testing.T) {
	f := newFixture(t)
	leads, err := f.svc.SetNotificationLeads(f.ctx, []int{1, 15, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{15, 5, 1}, leads)

	_, err = f.svc.SetNotificationLeads(f.ctx, []int{0})
	assert.ErrorIs(t, err, boss.ErrInvalidLeads)

	stored, err := f.store.NotificationLeads(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{15, 5, 1}, stored)
}

func TestService_RestoreRejectsNewerVersion(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Restore(f.ctx, boss.Snapshot{Version: boss.SnapshotVersion + 1})
	assert.Error(t, err)
}

func TestFormatList(t *testing.T) {
	f := newFixture(t)
	next := f.zone.Date(2024, 1, 1, 14, 5)
	entries := []boss.Entry{
		{Boss: boss.Boss{ID: 2, Name: "Idle", ChancePercent: 100, RespawnMinutes: 90}},
		{Boss: boss.Boss{ID: 1, Name: "Cabrio", ChancePercent: 50, RespawnMinutes: 600, FirstSpawnMinutes: intp(300)}, Next: &next},
	}
	boss.SortEntries(entries)

	want := "14:05 | 1 | Cabrio | 50% | resp 10h | first 5h\n" +
		"--:-- | 2 | Idle | 100% | resp 1h30m | first —"
	assert.Equal(t, want, f.svc.FormatList(entries))
}

func TestSortEntries_TiesByID(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []boss.Entry{
		{Boss: boss.Boss{ID: 3}, Next: &at},
		{Boss: boss.Boss{ID: 1}, Next: &at},
	}
	boss.SortEntries(entries)
	assert.Equal(t, 1, entries[0].Boss.ID)
}
