// Command bosswatch is the boss respawn tracker service: Telegram bot, tick
// scheduler, admin HTTP API with the alert feed, and background maintenance.
//
// Usage:
//
//	bosswatch
//	STORE_DRIVER=sqlite TELEGRAM_BOT_TOKEN=... bosswatch

// @title Bosswatch API
// @version 1.0.0
// @description Boss respawn tracker: next spawn times, kill history, server restarts and a websocket alert feed.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @license.name MIT
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/albapepper/bosswatch/internal/admins"
	"github.com/albapepper/bosswatch/internal/api"
	"github.com/albapepper/bosswatch/internal/api/feed"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/bot"
	"github.com/albapepper/bosswatch/internal/cache"
	"github.com/albapepper/bosswatch/internal/config"
	"github.com/albapepper/bosswatch/internal/db"
	"github.com/albapepper/bosswatch/internal/listener"
	"github.com/albapepper/bosswatch/internal/maintenance"
	"github.com/albapepper/bosswatch/internal/notifications"
	"github.com/albapepper/bosswatch/internal/respawn"

	_ "github.com/albapepper/bosswatch/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Bosswatch stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Bosswatch stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zone, err := cfg.Zone()
	if err != nil {
		return err
	}

	// Open the store
	logger.Info("Opening store...", "driver", cfg.StoreDriver)
	store, pool, err := db.Open(ctx, cfg, zone, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if pool != nil {
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	}

	calc := respawn.New(cfg.GraceWindow)
	svc := boss.NewService(store, zone, zone, calc, logger)

	// Alert routing: every transport registers its subscriber id prefix
	router := notifications.NewRouter()
	sched := notifications.NewScheduler(store, calc, router, zone, zone, notifications.Config{
		Interval:        cfg.TickInterval,
		FirstDelay:      cfg.TickFirstDelay,
		DispatchTimeout: cfg.DispatchTimeout,
		Concurrency:     cfg.DispatchConcurrency,
	}, logger)

	// Initialize cache and the post-mutation hook
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)
	onChange := maintenance.AfterChange(appCache, sched, logger)
	svc.Observe(onChange)

	g, ctx := errgroup.WithContext(ctx)

	// Tick scheduler
	g.Go(func() error {
		sched.Start(ctx)
		return nil
	})

	// Maintenance tickers (ledger pruning, store health)
	g.Go(func() error {
		maintenance.Start(ctx, sched.Ledger(), store, zone, maintenance.Config{
			LedgerPruneInterval: cfg.LedgerPruneInterval,
			LedgerRetention:     cfg.LedgerRetention,
			HealthInterval:      5 * time.Minute,
		}, logger)
		return nil
	})

	// LISTEN/NOTIFY consumer: mutations from bossctl or other replicas
	if cfg.StoreDriver == config.DriverPostgres && cfg.ListenEnabled {
		g.Go(func() error {
			listener.Start(ctx, cfg.DatabaseURL, onChange, logger)
			return nil
		})
	}

	// Telegram bot
	if cfg.BotToken != "" {
		if err := startBot(ctx, g, cfg, svc, sched, router, logger); err != nil {
			return err
		}
	} else {
		logger.Info("Telegram bot disabled (no TELEGRAM_BOT_TOKEN)")
	}

	// HTTP API and websocket feed
	if cfg.APIEnabled {
		hub := feed.NewHub(sched.Subscribers(), logger)
		router.Handle(feed.Prefix, hub)
		startHTTP(ctx, g, cfg, api.NewRouter(svc, sched, hub, appCache, cfg), logger)
	}

	return g.Wait()
}

func startBot(ctx context.Context, g *errgroup.Group, cfg *config.Config, svc *boss.Service, sched *notifications.Scheduler, router *notifications.Router, logger *slog.Logger) error {
	adm, err := admins.Open(cfg.AdminsFile)
	if err != nil {
		return err
	}
	client, poller, err := bot.Connect(tgbotapi.APIEndpoint, cfg.BotToken, cfg.DispatchTimeout)
	if err != nil {
		return err
	}
	logger.Info("Telegram authorized", "bot", client.Self.UserName)

	tg := bot.New(client, svc, sched, sched.Subscribers(), adm, bot.Config{
		RestartAnnounceWithin: cfg.RestartAnnounceWithin,
		BackupDir:             cfg.BackupDir,
	}, logger)
	router.Handle(bot.Prefix, tg)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = bot.PollTimeout
	updates := poller.GetUpdatesChan(u)
	g.Go(func() error {
		defer poller.StopReceivingUpdates()
		return tg.Run(ctx, updates)
	})
	return nil
}

func startHTTP(ctx context.Context, g *errgroup.Group, cfg *config.Config, handler http.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Starting Bosswatch API",
			"addr", srv.Addr,
			"environment", cfg.Environment,
			"docs", "/docs/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
}
