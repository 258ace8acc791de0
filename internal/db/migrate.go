package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/albapepper/bosswatch/internal/db/migrations"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// MigratePostgres runs goose migrations on the given DSN.
func MigratePostgres(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	return migrate(ctx, sqlDB, "postgres", "postgres")
}

func migrate(ctx context.Context, sqlDB *sql.DB, dialect, dir string) error {
	sub, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dir, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
