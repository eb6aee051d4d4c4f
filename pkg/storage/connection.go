package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/labstock/pkg/query"
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Driver      string
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Open connects to the configured database, applies the pool settings and
// verifies the connection.
func Open(ctx context.Context, config ConnectionConfig) (*sql.DB, query.Dialect, error) {
	dialect, err := query.ParseDialect(config.Driver)
	if err != nil {
		return nil, 0, err
	}

	driver := "postgres"
	if dialect == query.SQLite {
		driver = "sqlite3"
	}

	db, err := sql.Open(driver, config.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if dialect == query.SQLite {
		// An in-memory database lives and dies with its connection.
		db.SetMaxOpenConns(1)
		if !strings.Contains(config.URL, "_foreign_keys") && !strings.Contains(config.URL, "_fk") {
			if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
				db.Close()
				return nil, 0, fmt.Errorf("failed to enable foreign keys: %w", err)
			}
		}
	} else {
		db.SetMaxOpenConns(config.MaxConns)
		db.SetMaxIdleConns(config.MinConns)
		db.SetConnMaxLifetime(config.MaxLifetime)
		db.SetConnMaxIdleTime(config.MaxIdleTime)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}
