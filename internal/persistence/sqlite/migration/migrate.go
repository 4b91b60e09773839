package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const migrationsDir = "migrations"

// goose keeps its base filesystem and dialect in package state.
var gooseMu sync.Mutex

// gooseUpContext is replaced in tests to simulate migration failures.
var gooseUpContext = goose.UpContext

// Up applies every embedded migration that has not been applied yet.
func Up(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return NewMigrationError("", "set dialect", err)
	}

	if err := gooseUpContext(ctx, db, migrationsDir); err != nil {
		return NewMigrationError("", "up", fmt.Errorf("%w: %w", ErrMigrationFailed, err))
	}
	return nil
}

// Version reports the schema version recorded by goose.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, NewMigrationError("", "set dialect", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, NewMigrationError("", "version", err)
	}
	return version, nil
}
