package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/ledger"
	"github.com/albapepper/bosswatch/internal/respawn"
)

// Source is the read side of the store a cycle needs. ScheduleState must
// return the anchor, leads and bosses from one consistent read.
type Source interface {
	ScheduleState(ctx context.Context) (boss.ScheduleState, error)
}

// Config controls the tick loop. Zero values fall back to defaults.
type Config struct {
	Interval        time.Duration
	FirstDelay      time.Duration
	DispatchTimeout time.Duration
	Concurrency     int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        defaultTickInterval,
		FirstDelay:      defaultFirstDelay,
		DispatchTimeout: defaultDispatchTimeout,
		Concurrency:     defaultConcurrency,
	}
}

// Scheduler owns the ledger and the subscriber set. Independent instances
// share nothing.
type Scheduler struct {
	source Source
	calc   respawn.Calculator
	sender Sender
	clock  clock.Clock
	zone   *clock.Zone
	cfg    Config
	logger *slog.Logger

	ledger      *ledger.Ledger
	subscribers *Subscribers

	// cycleMu serializes the evaluation part of cycles so ledger
	// check-and-record never interleaves across overlapping ticks.
	cycleMu sync.Mutex
	kick    chan struct{}
}

// NewScheduler builds a scheduler. clk defaults to the zone's wall clock.
func NewScheduler(source Source, calc respawn.Calculator, sender Sender, zone *clock.Zone, clk clock.Clock, cfg Config, logger *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.FirstDelay < 0 {
		cfg.FirstDelay = def.FirstDelay
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = def.DispatchTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if clk == nil {
		clk = zone
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:      source,
		calc:        calc,
		sender:      sender,
		clock:       clk,
		zone:        zone,
		cfg:         cfg,
		logger:      logger,
		ledger:      ledger.New(),
		subscribers: NewSubscribers(),
		kick:        make(chan struct{}, 1),
	}
}

// Subscribers exposes the subscriber set.
func (s *Scheduler) Subscribers() *Subscribers { return s.subscribers }

// Ledger exposes the dedup ledger.
func (s *Scheduler) Ledger() *ledger.Ledger { return s.ledger }

// Kick requests an extra cycle as soon as the loop is idle. Never blocks.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Start runs cycles every Interval after FirstDelay, plus one per Kick.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Tick scheduler started",
		"interval", s.cfg.Interval, "first_delay", s.cfg.FirstDelay,
		"dispatch_timeout", s.cfg.DispatchTimeout, "grace", s.calc.Grace)

	select {
	case <-time.After(s.cfg.FirstDelay):
	case <-ctx.Done():
		s.logger.Info("Tick scheduler stopped")
		return
	}
	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.kick:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("Tick scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.RunCycle(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("tick error", "error", err)
		return
	}
	if len(report.Alerts) > 0 || report.Faults > 0 {
		s.logger.Info("tick",
			"alerts", len(report.Alerts),
			"evaluated", report.Evaluated,
			"faults", report.Faults,
			"pruned", len(report.Pruned()))
	}
}
