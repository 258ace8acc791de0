// Package maintenance runs periodic background tasks as Go tickers: ledger
// pruning and store health probing.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/ledger"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	LedgerPruneInterval time.Duration // Drop ledger entries past retention
	LedgerRetention     time.Duration
	HealthInterval      time.Duration // Ping the store and log failures
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		LedgerPruneInterval: 30 * time.Minute,
		LedgerRetention:     48 * time.Hour,
		HealthInterval:      5 * time.Minute,
	}
}

// Pinger is the store health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, l *ledger.Ledger, store Pinger, clk clock.Clock, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"ledger_prune", cfg.LedgerPruneInterval,
		"ledger_retention", cfg.LedgerRetention,
		"health", cfg.HealthInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Prune: bound ledger memory for long-running processes
	if cfg.LedgerPruneInterval > 0 && cfg.LedgerRetention > 0 {
		t := time.NewTicker(cfg.LedgerPruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "ledger_prune", func() {
			PruneLedger(l, clk.Now(), cfg.LedgerRetention, logger)
		})
	}

	// Health: surface store outages between ticks
	if cfg.HealthInterval > 0 && store != nil {
		t := time.NewTicker(cfg.HealthInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "health", func() { probe(ctx, store, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// PruneLedger drops entries whose occurrence is older than retention. An
// occurrence that old can no longer fall inside any alert window.
func PruneLedger(l *ledger.Ledger, now time.Time, retention time.Duration, logger *slog.Logger) int {
	n := l.Prune(now.Add(-retention))
	if n > 0 {
		logger.Info("Ledger pruned", "removed", n, "remaining", l.Len())
	}
	return n
}

func probe(ctx context.Context, store Pinger, logger *slog.Logger) {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := store.Ping(pctx); err != nil {
		logger.Warn("Store health probe failed", "error", err, "duration", time.Since(start).Round(time.Millisecond))
	}
}
