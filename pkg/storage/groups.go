package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/query"
)

// GroupsTable is the query metadata of the user_groups relation.
var GroupsTable = query.Table{
	Name:    "user_groups",
	Columns: []string{"id", "name", "note", "permission", "disabled", "updated_at"},
}

// GroupFilter narrows group listings.
type GroupFilter struct {
	Name     string
	Disabled *bool
	Skip     int
	Take     int
}

func scanGroup(row scanner) (*Group, error) {
	var g Group
	if err := row.Scan(&g.ID, &g.Name, &g.Note, &g.Permission, &g.Disabled, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts g and sets its id.
func (s *Store) CreateGroup(ctx context.Context, db dbx.DBTX, g *Group) error {
	g.UpdatedAt = s.now()
	err := db.QueryRowContext(ctx, s.q(`
		INSERT INTO user_groups (name, note, permission, disabled, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		g.Name, g.Note, g.Permission, g.Disabled, g.UpdatedAt,
	).Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %q: %w", g.Name, ErrConflict)
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroupByName looks a group up case-insensitively.
func (s *Store) GetGroupByName(ctx context.Context, db dbx.DBTX, name string) (*Group, error) {
	row := db.QueryRowContext(ctx, s.q(`
		SELECT id, name, note, permission, disabled, updated_at
		FROM user_groups WHERE LOWER(name) = LOWER(?)`), name)

	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// GetGroupByID looks a group up by id.
func (s *Store) GetGroupByID(ctx context.Context, db dbx.DBTX, id int64) (*Group, error) {
	row := db.QueryRowContext(ctx, s.q(`
		SELECT id, name, note, permission, disabled, updated_at
		FROM user_groups WHERE id = ?`), id)

	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// UpdateGroup writes the mutable fields of g.
func (s *Store) UpdateGroup(ctx context.Context, db dbx.DBTX, g *Group) error {
	g.UpdatedAt = s.now()
	res, err := db.ExecContext(ctx, s.q(`
		UPDATE user_groups
		SET note = ?, permission = ?, disabled = ?, updated_at = ?
		WHERE id = ?`),
		g.Note, g.Permission, g.Disabled, g.UpdatedAt, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("group %d: %w", g.ID, ErrNotFound)
	}
	return nil
}

func groupFilter(f GroupFilter) query.Filter {
	q := query.Filter{Skip: f.Skip, Take: f.Take}
	if f.Name != "" {
		q = q.Where(query.Contains("name", f.Name))
	}
	if f.Disabled != nil {
		q = q.Where(query.Equals("disabled", *f.Disabled))
	}
	return q
}

// ListGroups lists groups matching f in id order.
func (s *Store) ListGroups(ctx context.Context, db dbx.DBTX, f GroupFilter) ([]*Group, error) {
	stmt, args, err := s.builder.List(GroupsTable, groupFilter(f))
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CountGroups counts groups matching f.
func (s *Store) CountGroups(ctx context.Context, db dbx.DBTX, f GroupFilter) (int64, error) {
	return s.count(ctx, db, GroupsTable, groupFilter(f))
}
