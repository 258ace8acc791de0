package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
)

func TestSQLiteStore_RestartRollsBackAsOne(t *testing.T) {
	ctx := context.Background()
	zone, err := clock.LoadZone(clock.DefaultTimezone)
	require.NoError(t, err)
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "bosswatch.db"), zone)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	b, err := store.CreateBoss(ctx, boss.Boss{Name: "Baium", RespawnMinutes: 60, Active: true})
	require.NoError(t, err)
	kill := zone.Date(2024, 1, 1, 10, 0)
	require.NoError(t, store.SetLastKill(ctx, b.ID, kill, ""))

	// Make the second half of the restart fail.
	_, err = store.db.ExecContext(ctx, `CREATE TRIGGER refuse_unkill BEFORE UPDATE OF last_kill ON bosses
		WHEN NEW.last_kill IS NULL BEGIN SELECT RAISE(ABORT, 'unkill refused'); END`)
	require.NoError(t, err)

	err = store.Restart(ctx, zone.Date(2024, 1, 1, 11, 0))
	require.ErrorContains(t, err, "unkill refused")

	st, err := store.ScheduleState(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.RestartAt, "anchor must not move without the kills clearing")
	require.Len(t, st.Bosses, 1)
	require.NotNil(t, st.Bosses[0].LastKill)
	assert.True(t, st.Bosses[0].LastKill.Equal(kill))
}
