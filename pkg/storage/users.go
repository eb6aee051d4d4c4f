package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/query"
)

// UsersTable is the query metadata of the users relation.
var UsersTable = query.Table{
	Name: "users",
	Columns: []string{
		"id", "name", "password_hash", "group_id", "allow_multi",
		"last_access_at", "last_access_ip", "disabled", "updated_at",
	},
}

// UserFilter narrows user listings.
type UserFilter struct {
	Name      string
	GroupName string
	Disabled  *bool
	Skip      int
	Take      int
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.GroupID, &u.AllowMulti,
		&u.LastAccessAt, &u.LastAccessIP, &u.Disabled, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CreateUser inserts u and sets its id. A name already taken in any letter
// case returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, db dbx.DBTX, u *User) error {
	u.UpdatedAt = s.now()
	err := db.QueryRowContext(ctx, s.q(`
		INSERT INTO users (name, password_hash, group_id, allow_multi, last_access_ip, disabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		u.Name, u.PasswordHash, u.GroupID, u.AllowMulti, u.LastAccessIP, u.Disabled, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Name, ErrConflict)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByName looks a user up case-insensitively.
func (s *Store) GetUserByName(ctx context.Context, db dbx.DBTX, name string) (*User, error) {
	row := db.QueryRowContext(ctx, s.q(`
		SELECT id, name, password_hash, group_id, allow_multi,
		       last_access_at, last_access_ip, disabled, updated_at
		FROM users WHERE LOWER(name) = LOWER(?)`), name)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUser writes the mutable fields of u.
func (s *Store) UpdateUser(ctx context.Context, db dbx.DBTX, u *User) error {
	u.UpdatedAt = s.now()
	res, err := db.ExecContext(ctx, s.q(`
		UPDATE users
		SET password_hash = ?, group_id = ?, allow_multi = ?, disabled = ?, updated_at = ?
		WHERE id = ?`),
		u.PasswordHash, u.GroupID, u.AllowMulti, u.Disabled, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) userFilter(ctx context.Context, db dbx.DBTX, f UserFilter) (query.Filter, error) {
	q := query.Filter{Skip: f.Skip, Take: f.Take}
	if f.Name != "" {
		q = q.Where(query.Contains("name", f.Name))
	}
	if f.GroupName != "" {
		id, ok, err := s.resolveGroupID(ctx, db, f.GroupName)
		if err != nil {
			return q, err
		}
		if ok {
			q = q.Where(query.Equals("group_id", id))
		}
	}
	if f.Disabled != nil {
		q = q.Where(query.Equals("disabled", *f.Disabled))
	}
	return q, nil
}

// ListUsers lists users matching f in id order.
func (s *Store) ListUsers(ctx context.Context, db dbx.DBTX, f UserFilter) ([]*User, error) {
	qf, err := s.userFilter(ctx, db, f)
	if err != nil {
		return nil, err
	}
	stmt, args, err := s.builder.List(UsersTable, qf)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers counts users matching f.
func (s *Store) CountUsers(ctx context.Context, db dbx.DBTX, f UserFilter) (int64, error) {
	qf, err := s.userFilter(ctx, db, f)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, db, UsersTable, qf)
}

func (s *Store) count(ctx context.Context, db dbx.DBTX, t query.Table, f query.Filter) (int64, error) {
	stmt, args, err := s.builder.Count(t, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.Name, err)
	}
	return n, nil
}
