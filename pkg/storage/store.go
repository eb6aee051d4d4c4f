package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/query"
)

// UserStore persists principals.
type UserStore interface {
	CreateUser(ctx context.Context, db dbx.DBTX, u *User) error
	GetUserByName(ctx context.Context, db dbx.DBTX, name string) (*User, error)
	UpdateUser(ctx context.Context, db dbx.DBTX, u *User) error
	ListUsers(ctx context.Context, db dbx.DBTX, f UserFilter) ([]*User, error)
	CountUsers(ctx context.Context, db dbx.DBTX, f UserFilter) (int64, error)
}

// GroupStore persists groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, db dbx.DBTX, g *Group) error
	GetGroupByName(ctx context.Context, db dbx.DBTX, name string) (*Group, error)
	GetGroupByID(ctx context.Context, db dbx.DBTX, id int64) (*Group, error)
	UpdateGroup(ctx context.Context, db dbx.DBTX, g *Group) error
	ListGroups(ctx context.Context, db dbx.DBTX, f GroupFilter) ([]*Group, error)
	CountGroups(ctx context.Context, db dbx.DBTX, f GroupFilter) (int64, error)
}

// TokenStore persists access tokens and resolves them to sessions.
type TokenStore interface {
	auth.SessionStore
	CreateToken(ctx context.Context, db dbx.DBTX, t *Token) error
	DeleteToken(ctx context.Context, db dbx.DBTX, userID int64, hash string) (bool, error)
	DeleteUserTokens(ctx context.Context, db dbx.DBTX, userID int64) (int64, error)
}

// ItemStore persists chemical items.
type ItemStore interface {
	CreateItem(ctx context.Context, db dbx.DBTX, it *Item) error
	GetItem(ctx context.Context, db dbx.DBTX, id int64) (*Item, error)
	UpdateItem(ctx context.Context, db dbx.DBTX, it *Item) error
	ListItems(ctx context.Context, db dbx.DBTX, f ItemFilter) ([]*Item, error)
	CountItems(ctx context.Context, db dbx.DBTX, f ItemFilter) (int64, error)
}

// Store implements every store interface over database/sql.
type Store struct {
	builder *query.Builder
	now     func() time.Time
}

var (
	_ UserStore  = (*Store)(nil)
	_ GroupStore = (*Store)(nil)
	_ TokenStore = (*Store)(nil)
	_ ItemStore  = (*Store)(nil)
)

// NewStore creates a Store for the given dialect.
func NewStore(dialect query.Dialect) *Store {
	return &Store{
		builder: query.NewBuilder(dialect),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Builder returns the query builder bound to the store's dialect.
func (s *Store) Builder() *query.Builder {
	return s.builder
}

func (s *Store) q(stmt string) string {
	return query.Rebind(s.builder.Dialect(), stmt)
}

// resolveGroupID maps a group name to its id. A name that matches no group
// yields ok=false so that the caller drops the predicate.
func (s *Store) resolveGroupID(ctx context.Context, db dbx.DBTX, name string) (int64, bool, error) {
	g, err := s.GetGroupByName(ctx, db, name)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return g.ID, true, nil
}
