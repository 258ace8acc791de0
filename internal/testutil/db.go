// Package testutil builds real stores for tests: a temp-dir SQLite file and a
// PostgreSQL testcontainer, both migrated with the embedded goose migrations.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/config"
	"github.com/albapepper/bosswatch/internal/db"
)

// Zone is the zone tests run in unless they need another.
func Zone(tb testing.TB) *clock.Zone {
	tb.Helper()
	z, err := clock.LoadZone(clock.DefaultTimezone)
	if err != nil {
		tb.Fatalf("loading zone: %v", err)
	}
	return z
}

// SQLiteStore opens a migrated SQLite store in tb's temp dir.
func SQLiteStore(tb testing.TB, zone *clock.Zone) *db.SQLiteStore {
	tb.Helper()
	ctx := context.Background()

	store, err := db.OpenSQLite(ctx, filepath.Join(tb.TempDir(), "bosswatch.db"), zone)
	if err != nil {
		tb.Fatalf("opening sqlite store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}
	return store
}

// PostgresDSN starts a PostgreSQL testcontainer, applies migrations and
// returns its DSN. Skipped under -short.
func PostgresDSN(tb testing.TB) string {
	tb.Helper()
	if testing.Short() {
		tb.Skip("postgres container skipped in -short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Fatalf("starting postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			tb.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("getting connection string: %v", err)
	}
	if err := db.MigratePostgres(ctx, dsn); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}
	return dsn
}

// PostgresStore returns a store on a fresh migrated container.
func PostgresStore(tb testing.TB, zone *clock.Zone) (*db.PostgresStore, *db.Pool, string) {
	tb.Helper()
	dsn := PostgresDSN(tb)

	pool, err := db.New(context.Background(), &config.Config{
		DatabaseURL:    dsn,
		DBPoolMinConns: 1,
		DBPoolMaxConns: 4,
		DBPoolMaxLife:  30 * time.Minute,
	})
	if err != nil {
		tb.Fatalf("connecting to test db: %v", err)
	}
	tb.Cleanup(pool.Close)
	return db.NewPostgresStore(pool, zone), pool, dsn
}
