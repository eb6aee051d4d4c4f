package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/query"
)

// Tracker writes audit records through the caller's database handle.
type Tracker interface {
	Track(ctx context.Context, db dbx.DBTX, rec *Record) error
}

// NoOpTracker discards every record.
type NoOpTracker struct{}

// Track implements Tracker
func (NoOpTracker) Track(context.Context, dbx.DBTX, *Record) error { return nil }

// Table is the query metadata of the audit_records relation.
var Table = query.Table{
	Name: "audit_records",
	Columns: []string{
		"id", "level", "actor_id", "table_name", "row_id", "field",
		"note", "old_value", "new_value", "created_at",
	},
}

// DBTracker stores records in the audit_records table.
type DBTracker struct {
	builder *query.Builder
	now     func() time.Time
}

// NewDBTracker creates a tracker for the builder's dialect.
func NewDBTracker(builder *query.Builder) *DBTracker {
	return &DBTracker{
		builder: builder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Track inserts rec and fills in its id and timestamp.
func (t *DBTracker) Track(ctx context.Context, db dbx.DBTX, rec *Record) error {
	if rec.Level == "" {
		rec.Level = LevelInfo
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.now()
	}

	stmt := query.Rebind(t.builder.Dialect(), `
		INSERT INTO audit_records (
			level, actor_id, table_name, row_id, field,
			note, old_value, new_value, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := db.QueryRowContext(ctx, stmt,
		string(rec.Level), rec.ActorID, rec.Table, rec.RowID, rec.Field,
		rec.Note, rec.OldValue, rec.NewValue, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (t *DBTracker) filter(f SearchFilter) query.Filter {
	q := query.Filter{Skip: f.Skip, Take: f.Take}
	if f.Table != "" {
		q = q.Where(query.Equals("table_name", f.Table))
	}
	if f.RowID != nil {
		q = q.Where(query.Equals("row_id", *f.RowID))
	}
	if f.ActorID != nil {
		q = q.Where(query.Equals("actor_id", *f.ActorID))
	}
	if f.Field != "" {
		q = q.Where(query.Equals("field", f.Field))
	}
	if f.Level != "" {
		q = q.Where(query.Equals("level", string(f.Level)))
	}
	return q
}

// Search lists records matching f in id order.
func (t *DBTracker) Search(ctx context.Context, db dbx.DBTX, f SearchFilter) ([]*Record, error) {
	stmt, args, err := t.builder.List(Table, t.filter(f))
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			rec   Record
			level string
		)
		if err := rows.Scan(&rec.ID, &level, &rec.ActorID, &rec.Table, &rec.RowID, &rec.Field,
			&rec.Note, &rec.OldValue, &rec.NewValue, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Level = Level(level)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Count counts records matching f. Skip and take are ignored.
func (t *DBTracker) Count(ctx context.Context, db dbx.DBTX, f SearchFilter) (int64, error) {
	stmt, args, err := t.builder.Count(Table, t.filter(f))
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return n, nil
}
