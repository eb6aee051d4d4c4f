package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/query"
)

// ItemsTable is the query metadata of the items relation.
var ItemsTable = query.Table{
	Name: "items",
	Columns: []string{
		"id", "name", "cas_number", "formula", "quantity", "unit",
		"location", "hazard_class", "group_id", "note", "disabled", "updated_at",
	},
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Name      string
	GroupName string
	Hazard    HazardClass
	Disabled  *bool
	Skip      int
	Take      int
}

func scanItem(row scanner) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.CASNumber, &it.Formula, &it.Quantity, &it.Unit,
		&it.Location, &it.Hazard, &it.GroupID, &it.Note, &it.Disabled, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem inserts it and sets its id.
func (s *Store) CreateItem(ctx context.Context, db dbx.DBTX, it *Item) error {
	if it.Hazard == "" {
		it.Hazard = HazardNone
	}
	it.UpdatedAt = s.now()
	err := db.QueryRowContext(ctx, s.q(`
		INSERT INTO items (name, cas_number, formula, quantity, unit, location,
		                   hazard_class, group_id, note, disabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		it.Name, it.CASNumber, it.Formula, it.Quantity, it.Unit, it.Location,
		string(it.Hazard), it.GroupID, it.Note, it.Disabled, it.UpdatedAt,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem looks an item up by id.
func (s *Store) GetItem(ctx context.Context, db dbx.DBTX, id int64) (*Item, error) {
	row := db.QueryRowContext(ctx, s.q(`
		SELECT id, name, cas_number, formula, quantity, unit, location,
		       hazard_class, group_id, note, disabled, updated_at
		FROM items WHERE id = ?`), id)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return it, nil
}

// UpdateItem writes the mutable fields of it.
func (s *Store) UpdateItem(ctx context.Context, db dbx.DBTX, it *Item) error {
	it.UpdatedAt = s.now()
	res, err := db.ExecContext(ctx, s.q(`
		UPDATE items
		SET quantity = ?, location = ?, group_id = ?, note = ?, disabled = ?, updated_at = ?
		WHERE id = ?`),
		it.Quantity, it.Location, it.GroupID, it.Note, it.Disabled, it.UpdatedAt, it.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %d: %w", it.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) itemFilter(ctx context.Context, db dbx.DBTX, f ItemFilter) (query.Filter, error) {
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
	if f.Hazard != "" {
		q = q.Where(query.Equals("hazard_class", string(f.Hazard)))
	}
	if f.Disabled != nil {
		q = q.Where(query.Equals("disabled", *f.Disabled))
	}
	return q, nil
}

// ListItems lists items matching f in id order.
func (s *Store) ListItems(ctx context.Context, db dbx.DBTX, f ItemFilter) ([]*Item, error) {
	qf, err := s.itemFilter(ctx, db, f)
	if err != nil {
		return nil, err
	}
	stmt, args, err := s.builder.List(ItemsTable, qf)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountItems counts items matching f.
func (s *Store) CountItems(ctx context.Context, db dbx.DBTX, f ItemFilter) (int64, error) {
	qf, err := s.itemFilter(ctx, db, f)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, db, ItemsTable, qf)
}
