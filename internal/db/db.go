// Package db provides the boss stores: a pgxpool-based Postgres store with
// prepared statement registration, and a SQLite store for single-host
// deployments. Both apply the embedded goose migrations.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Open builds the store selected by cfg.StoreDriver, migrating first when
// AUTO_MIGRATE is on. The returned Pool is nil for SQLite.
func Open(ctx context.Context, cfg *config.Config, zone *clock.Zone, logger *slog.Logger) (boss.Store, *Pool, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLitePath, zone)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, nil, err
			}
			logger.Info("SQLite migrations applied", "path", cfg.SQLitePath)
		}
		return store, nil, nil

	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := MigratePostgres(ctx, cfg.DatabaseURL); err != nil {
				return nil, nil, err
			}
			logger.Info("Postgres migrations applied")
		}
		pool, err := New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(pool, zone), pool, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// registerPreparedStatements registers all statements the Postgres store
// uses. Prepared statements eliminate parse overhead on every tick.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Bosses
		"boss_by_id":     "SELECT " + bossColumns + " FROM bosses WHERE id = $1",
		"bosses_all":     "SELECT " + bossColumns + " FROM bosses ORDER BY id",
		"bosses_active":  "SELECT " + bossColumns + " FROM bosses WHERE active ORDER BY id",
		"boss_insert":    "INSERT INTO bosses (name, chance_percent, first_spawn_minutes, respawn_minutes, active, last_kill) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		"boss_update":    "UPDATE bosses SET name = $2, chance_percent = $3, first_spawn_minutes = $4, respawn_minutes = $5, active = $6, last_kill = $7 WHERE id = $1",
		"boss_delete":    "DELETE FROM bosses WHERE id = $1",
		"boss_set_kill":  "UPDATE bosses SET last_kill = $2 WHERE id = $1",
		"bosses_unkill":  "UPDATE bosses SET last_kill = NULL WHERE last_kill IS NOT NULL",
		"kill_log_add":   "INSERT INTO kill_log (boss_id, killed_at, note) VALUES ($1, $2, $3)",
		"kill_log_boss":  "SELECT id, boss_id, killed_at, note FROM kill_log WHERE boss_id = $1 ORDER BY killed_at DESC, id DESC LIMIT $2",
		"kill_log_all":   "SELECT id, boss_id, killed_at, note FROM kill_log ORDER BY id",
		"state_get":      "SELECT restart_at, notification_leads FROM server_state WHERE id = 1",
		"state_restart":  "INSERT INTO server_state (id, restart_at) VALUES (1, $1) ON CONFLICT (id) DO UPDATE SET restart_at = EXCLUDED.restart_at",
		"state_leads":    "INSERT INTO server_state (id, notification_leads) VALUES (1, $1) ON CONFLICT (id) DO UPDATE SET notification_leads = EXCLUDED.notification_leads",
		"state_replace":  "INSERT INTO server_state (id, restart_at, notification_leads) VALUES (1, $1, $2) ON CONFLICT (id) DO UPDATE SET restart_at = EXCLUDED.restart_at, notification_leads = EXCLUDED.notification_leads",
		"boss_restore":   "INSERT INTO bosses (id, name, chance_percent, first_spawn_minutes, respawn_minutes, active, last_kill) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		"kill_restore":   "INSERT INTO kill_log (id, boss_id, killed_at, note) VALUES ($1, $2, $3, $4)",
		"bosses_reseq":   "SELECT setval(pg_get_serial_sequence('bosses', 'id'), GREATEST((SELECT MAX(id) FROM bosses), 1), (SELECT COUNT(*) > 0 FROM bosses))",
		"kill_log_reseq": "SELECT setval(pg_get_serial_sequence('kill_log', 'id'), GREATEST((SELECT MAX(id) FROM kill_log), 1), (SELECT COUNT(*) > 0 FROM kill_log))",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

const bossColumns = "id, name, chance_percent, first_spawn_minutes, respawn_minutes, active, last_kill"
