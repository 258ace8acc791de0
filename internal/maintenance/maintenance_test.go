package maintenance

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/ledger"
)

func TestPruneLedger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	l := ledger.New()
	l.ShouldFire(1, now.Add(-72*time.Hour), 0)
	l.ShouldFire(1, now.Add(-time.Hour), 5)
	l.ShouldFire(2, now.Add(time.Hour), 15)

	assert.Equal(t, 1, PruneLedger(l, now, 48*time.Hour, logger))
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Seen(1, now.Add(-time.Hour), 5))
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge() int { p.n++; return 3 }

type countingKicker struct{ n int }

func (k *countingKicker) Kick() { k.n++ }

func TestAfterChange(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, k := &countingPurger{}, &countingKicker{}
	hook := AfterChange(p, k, logger)

	hook(boss.Change{Kind: "kill", BossID: 1})
	hook(boss.Change{Kind: "restart"})

	assert.Equal(t, 2, p.n)
	assert.Equal(t, 2, k.n)

	assert.NotPanics(t, func() { AfterChange(nil, nil, logger)(boss.Change{}) })
}
