package storage

import (
	"context"

	"github.com/platinummonkey/labstock/pkg/dbx"
)

// EntityCounts returns the row count of each entity kind, keyed by kind.
func (s *Store) EntityCounts(ctx context.Context, db dbx.DBTX) (map[string]int64, error) {
	users, err := s.CountUsers(ctx, db, UserFilter{})
	if err != nil {
		return nil, err
	}
	groups, err := s.CountGroups(ctx, db, GroupFilter{})
	if err != nil {
		return nil, err
	}
	items, err := s.CountItems(ctx, db, ItemFilter{})
	if err != nil {
		return nil, err
	}
	tokens, err := s.CountTokens(ctx, db)
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"users":  users,
		"groups": groups,
		"items":  items,
		"tokens": tokens,
	}, nil
}
