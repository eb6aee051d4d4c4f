package storage

import (
	"context"
	"fmt"

	"github.com/platinummonkey/labstock/pkg/dbx"
)

// BootstrapAdmin creates an administrator group and principal when the
// database holds no groups yet. It reports whether anything was created.
func (s *Store) BootstrapAdmin(ctx context.Context, db dbx.DBTX, groupName, permission, userName, passwordHash string) (bool, error) {
	n, err := s.CountGroups(ctx, db, GroupFilter{})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	group := &Group{Name: groupName, Note: "bootstrap administrators", Permission: permission}
	if err := s.CreateGroup(ctx, db, group); err != nil {
		return false, fmt.Errorf("bootstrap group: %w", err)
	}
	user := &User{Name: userName, PasswordHash: passwordHash, GroupID: &group.ID}
	if err := s.CreateUser(ctx, db, user); err != nil {
		return false, fmt.Errorf("bootstrap user: %w", err)
	}
	return true, nil
}
