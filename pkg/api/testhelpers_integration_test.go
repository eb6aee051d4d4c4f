//go:build integration

package api

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/labstock/pkg/query"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// setupPostgresContainer starts a PostgreSQL container and returns an open
// pool to it. The container is terminated on test cleanup with a fresh
// context, since the test context may already be cancelled by then.
func setupPostgresContainer(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("labstock_test"),
		postgres.WithUsername("labstock"),
		postgres.WithPassword("labstock_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, dialect, err := storage.Open(ctx, storage.ConnectionConfig{
		Driver:   "postgres",
		URL:      connStr,
		MaxConns: 5,
		MinConns: 1,
	})
	require.NoError(t, err)
	require.Equal(t, query.Postgres, dialect)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newPostgresTestServer(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, setupPostgresContainer(t), query.Postgres, nil)
}
