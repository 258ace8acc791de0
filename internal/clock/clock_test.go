package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testZone(t *testing.T) *Zone {
	t.Helper()
	z, err := LoadZone(DefaultTimezone)
	require.NoError(t, err)
	return z
}

func TestNaiveRoundTrip(t *testing.T) {
	z := testZone(t)
	local := z.Date(2026, time.February, 4, 12, 0)

	naive := z.Naive(local)
	assert.Equal(t, time.UTC, naive.Location())
	assert.Equal(t, 12, naive.Hour())

	back := z.FromNaive(naive)
	assert.True(t, back.Equal(local))
}

func TestNaiveFromOtherZone(t *testing.T) {
	z := testZone(t)
	utc := time.Date(2026, time.February, 4, 9, 0, 0, 0, time.UTC)
	// Simferopol is UTC+3 all year.
	assert.Equal(t, 12, z.Naive(utc).Hour())
}

func TestParseRestart(t *testing.T) {
	z := testZone(t)
	now := z.Date(2026, time.February, 4, 12, 0)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"", now},
		{"now", now},
		{"NOW", now},
		{"14:30", z.Date(2026, time.February, 4, 14, 30)},
		{"11:00", z.Date(2026, time.February, 5, 11, 0)},
		{"12:00", z.Date(2026, time.February, 5, 12, 0)},
		{"01.02.2026 14:30", z.Date(2026, time.February, 1, 14, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := z.ParseRestart(tc.in, now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
		})
	}
}

func TestParseKill(t *testing.T) {
	z := testZone(t)
	now := z.Date(2026, time.February, 4, 12, 0)

	got, err := z.ParseKill("11:30", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(z.Date(2026, time.February, 4, 11, 30)))

	got, err = z.ParseKill("17:30", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(z.Date(2026, time.February, 3, 17, 30)))

	got, err = z.ParseKill("02.02.2026 13:59", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(z.Date(2026, time.February, 2, 13, 59)))
}

func TestParseRejectsGarbage(t *testing.T) {
	z := testZone(t)
	now := z.Date(2026, time.February, 4, 12, 0)

	for _, in := range []string{"tomorrow", "25:00", "12:61", "31.02.2026 10:00", ""} {
		_, err := z.ParseKill(in, now)
		assert.ErrorIs(t, err, ErrBadTime, in)
	}
}

func TestFormat(t *testing.T) {
	z := testZone(t)
	at := z.Date(2026, time.February, 4, 9, 5)

	assert.Equal(t, "--:--", z.FormatShort(nil))
	assert.Equal(t, "09:05", z.FormatShort(&at))
	assert.Equal(t, "04.02.2026 09:05", z.FormatFull(at))
}

func TestFixed(t *testing.T) {
	start := time.Date(2026, time.February, 4, 12, 0, 0, 0, time.UTC)
	f := NewFixed(start)
	f.Advance(30 * time.Second)
	assert.Equal(t, start.Add(30*time.Second), f.Now())
	f.Set(start)
	assert.Equal(t, start, f.Now())
}
