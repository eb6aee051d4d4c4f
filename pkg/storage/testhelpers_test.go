package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/labstock/pkg/query"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := Open(ctx, ConnectionConfig{Driver: "sqlite3", URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Equal(t, query.SQLite, dialect)

	require.NoError(t, RunMigrations(ctx, db, dialect, nil))

	store := NewStore(dialect)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store, db
}

func boolPtr(v bool) *bool { return &v }

func mustGroup(t *testing.T, s *Store, db *sql.DB, name, permission string) *Group {
	t.Helper()
	g := &Group{Name: name, Permission: permission}
	require.NoError(t, s.CreateGroup(context.Background(), db, g))
	return g
}

func mustUser(t *testing.T, s *Store, db *sql.DB, name string, groupID *int64) *User {
	t.Helper()
	u := &User{Name: name, PasswordHash: "hash-" + name, GroupID: groupID}
	require.NoError(t, s.CreateUser(context.Background(), db, u))
	return u
}
