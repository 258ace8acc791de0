package respawn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msk = time.FixedZone("MSK", 3*60*60)

func at(h, m, s int) time.Time {
	return time.Date(2026, time.February, 4, h, m, s, 0, msk)
}

func ptr[T any](v T) *T { return &v }

func TestNext_Scenarios(t *testing.T) {
	now := at(12, 0, 0)

	cases := []struct {
		name string
		p    Params
		now  time.Time
		want time.Time
	}{
		{
			name: "restart with offset catches up past now",
			p:    Params{RestartAt: ptr(at(9, 0, 0)), FirstSpawnMinutes: ptr(60), RespawnMinutes: 120},
			now:  now,
			want: at(14, 0, 0),
		},
		{
			name: "restart without offset anchors at restart",
			p:    Params{RestartAt: ptr(at(9, 0, 0)), RespawnMinutes: 120},
			now:  now,
			want: at(13, 0, 0),
		},
		{
			name: "kill wins over restart",
			p:    Params{LastKill: ptr(at(11, 30, 0)), RestartAt: ptr(at(9, 0, 0)), FirstSpawnMinutes: ptr(60), RespawnMinutes: 120},
			now:  now,
			want: at(13, 30, 0),
		},
		{
			name: "within grace window the first appearance is kept",
			p:    Params{RestartAt: ptr(at(11, 59, 30)), RespawnMinutes: 180},
			now:  now,
			want: at(11, 59, 30),
		},
		{
			name: "ninety seconds stale is still inside grace",
			p:    Params{RestartAt: ptr(at(11, 58, 30)), RespawnMinutes: 180},
			now:  now,
			want: at(11, 58, 30),
		},
		{
			name: "past grace window catches up one cycle",
			p:    Params{RestartAt: ptr(at(11, 55, 0)), RespawnMinutes: 180},
			now:  now,
			want: at(14, 55, 0),
		},
		{
			name: "future restart stays pending",
			p:    Params{RestartAt: ptr(at(13, 0, 0)), FirstSpawnMinutes: ptr(30), RespawnMinutes: 120},
			now:  now,
			want: at(13, 30, 0),
		},
		{
			name: "one minute first spawn lands just after now",
			p:    Params{RestartAt: ptr(at(9, 0, 0)), FirstSpawnMinutes: ptr(1), RespawnMinutes: 180},
			now:  now,
			want: at(12, 1, 0),
		},
		{
			name: "restart two days ago",
			p:    Params{RestartAt: ptr(time.Date(2026, time.February, 2, 9, 0, 0, 0, msk)), FirstSpawnMinutes: ptr(360), RespawnMinutes: 480},
			now:  now,
			want: at(15, 0, 0),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Next(tc.p, tc.now)
			require.True(t, ok)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
		})
	}
}

func TestNext_Unschedulable(t *testing.T) {
	now := at(12, 0, 0)

	for _, interval := range []int{0, -1, -120} {
		_, ok := Next(Params{LastKill: ptr(at(11, 0, 0)), RestartAt: ptr(at(9, 0, 0)), RespawnMinutes: interval}, now)
		assert.False(t, ok, "interval %d", interval)
	}

	_, ok := Next(Params{RespawnMinutes: 60}, now)
	assert.False(t, ok, "no kill and no restart")

	_, ok = Next(Params{FirstSpawnMinutes: ptr(10), RespawnMinutes: 60}, now)
	assert.False(t, ok, "offset without restart")
}

func TestNext_KillIgnoresNow(t *testing.T) {
	kill := at(1, 0, 0)
	p := Params{LastKill: &kill, RespawnMinutes: 30}

	for _, now := range []time.Time{at(0, 0, 0), at(1, 30, 0), at(23, 0, 0)} {
		got, ok := Next(p, now)
		require.True(t, ok)
		assert.True(t, got.Equal(at(1, 30, 0)))
	}
}

func TestNext_ZeroOffsetEqualsNil(t *testing.T) {
	now := at(12, 0, 0)
	restart := at(10, 7, 0)
	a, _ := Next(Params{RestartAt: &restart, RespawnMinutes: 45}, now)
	b, _ := Next(Params{RestartAt: &restart, FirstSpawnMinutes: ptr(0), RespawnMinutes: 45}, now)
	assert.True(t, a.Equal(b))
}

func TestNext_GraceBoundary(t *testing.T) {
	restart := at(11, 58, 0)
	p := Params{RestartAt: &restart, RespawnMinutes: 60}

	got, _ := Next(p, at(12, 0, 0))
	assert.True(t, got.Equal(restart), "exactly two minutes is still inside grace")

	got, _ = Next(p, at(12, 0, 1))
	assert.True(t, got.Equal(at(12, 58, 0)))
}

func TestNext_CustomGrace(t *testing.T) {
	restart := at(11, 55, 0)
	p := Params{RestartAt: &restart, RespawnMinutes: 180}

	got, _ := New(10*time.Minute).Next(p, at(12, 0, 0))
	assert.True(t, got.Equal(restart))

	got, _ = New(0).Next(p, at(12, 0, 0))
	assert.True(t, got.Equal(at(14, 55, 0)), "zero grace falls back to the default")
}

func TestNext_ExactBoundary(t *testing.T) {
	now := at(12, 0, 0)

	cases := []struct {
		name       string
		p          Params
		wantNext   time.Time
		wantPassed time.Time
	}{
		{
			name:       "offset grid hits now",
			p:          Params{RestartAt: ptr(at(9, 0, 0)), FirstSpawnMinutes: ptr(60), RespawnMinutes: 120},
			wantNext:   at(14, 0, 0),
			wantPassed: at(12, 0, 0),
		},
		{
			name:       "hourly grid hits now",
			p:          Params{RestartAt: ptr(at(9, 0, 0)), RespawnMinutes: 60},
			wantNext:   at(13, 0, 0),
			wantPassed: at(12, 0, 0),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(0)
			next, ok := c.Next(tc.p, now)
			require.True(t, ok)
			assert.True(t, next.Equal(tc.wantNext), "next %s", next)

			passed, ok := c.Passed(tc.p, now)
			require.True(t, ok)
			assert.True(t, passed.Equal(tc.wantPassed), "passed %s", passed)
		})
	}
}

func TestPassed_OnlyAfterCatchUp(t *testing.T) {
	c := New(0)
	now := at(12, 0, 0)

	cases := map[string]Params{
		"kill anchored": {LastKill: ptr(at(11, 0, 0)), RestartAt: ptr(at(9, 0, 0)), RespawnMinutes: 60},
		"pending":       {RestartAt: ptr(at(11, 0, 0)), FirstSpawnMinutes: ptr(90), RespawnMinutes: 60},
		"inside grace":  {RestartAt: ptr(at(11, 59, 0)), RespawnMinutes: 60},
		"no anchor":     {RespawnMinutes: 60},
		"bad interval":  {RestartAt: ptr(at(9, 0, 0)), RespawnMinutes: 0},
	}
	for name, p := range cases {
		_, ok := c.Passed(p, now)
		assert.False(t, ok, name)
	}

	passed, ok := c.Passed(Params{RestartAt: ptr(at(11, 55, 0)), RespawnMinutes: 180}, now)
	require.True(t, ok)
	assert.True(t, passed.Equal(at(11, 55, 0)), "first catch-up step passes the first appearance")
}

// Catch-up must land on the anchor grid, strictly after now, and never more
// than one interval ahead; the step it passed is at or before now.
func TestNext_CatchUpProperty(t *testing.T) {
	restart := at(0, 0, 0)
	first := restart.Add(17 * time.Minute)

	for _, interval := range []int{1, 7, 60, 179} {
		step := time.Duration(interval) * time.Minute
		p := Params{RestartAt: &restart, FirstSpawnMinutes: ptr(17), RespawnMinutes: interval}

		for offset := 2*time.Minute + time.Second; offset < 20*time.Hour; offset += 13*time.Minute + 7*time.Second {
			now := first.Add(offset)
			got, ok := Next(p, now)
			require.True(t, ok)
			assert.True(t, got.After(now), "interval %d offset %s", interval, offset)
			assert.LessOrEqual(t, got.Sub(now), step)
			assert.Zero(t, got.Sub(first)%step)

			passed, ok := New(0).Passed(p, now)
			require.True(t, ok)
			assert.False(t, passed.After(now))
			assert.Equal(t, step, got.Sub(passed))
		}
	}
}

func TestNext_VeryStaleAnchor(t *testing.T) {
	restart := at(12, 0, 0).AddDate(0, 0, -60)
	got, ok := Next(Params{RestartAt: &restart, RespawnMinutes: 1}, at(12, 0, 30))
	require.True(t, ok)
	assert.True(t, got.Equal(at(12, 1, 0)))
}
