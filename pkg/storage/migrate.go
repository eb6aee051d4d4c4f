package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/platinummonkey/labstock/pkg/query"
	"github.com/platinummonkey/labstock/pkg/storage/migrations"
)

// goose keeps its base filesystem and dialect in package state.
var migrateMu sync.Mutex

// RunMigrations applies the embedded migrations for dialect. A nil logger
// silences goose.
func RunMigrations(ctx context.Context, db *sql.DB, dialect query.Dialect, logger goose.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if logger == nil {
		logger = goose.NopLogger()
	}
	goose.SetLogger(logger)

	switch dialect {
	case query.Postgres:
		goose.SetBaseFS(migrations.Postgres)
		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}
		if err := goose.UpContext(ctx, db, "postgres"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	case query.SQLite:
		goose.SetBaseFS(migrations.SQLite)
		if err := goose.SetDialect("sqlite3"); err != nil {
			return err
		}
		if err := goose.UpContext(ctx, db, "sqlite"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	default:
		return fmt.Errorf("unsupported dialect: %d", dialect)
	}
	return nil
}
