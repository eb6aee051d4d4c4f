// Package query builds the filtered, paginated list and count statements used
// by every listing endpoint. Statements only ever string-build identifiers that
// come from Table metadata; every value is a bound parameter.
package query

import (
	"fmt"
	"strings"
)

// Dialect selects the placeholder style of the generated SQL.
type Dialect int

const (
	// Postgres uses numbered $n placeholders.
	Postgres Dialect = iota
	// SQLite uses positional ? placeholders.
	SQLite
)

// ParseDialect maps a driver name onto a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported dialect: %s", driver)
	}
}

// Table describes a listable relation.
type Table struct {
	Name     string
	IDColumn string
	Columns  []string
}

func (t Table) id() string {
	if t.IDColumn == "" {
		return "id"
	}
	return t.IDColumn
}

func (t Table) has(column string) bool {
	if column == t.id() {
		return true
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Builder renders statements for one dialect.
type Builder struct {
	dialect Dialect
}

// NewBuilder creates a Builder for the given dialect.
func NewBuilder(dialect Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// List renders the SELECT for f over t, ordered by id ascending.
//
// With a skip, the first returned row is found by a subquery selecting the id
// of the (skip+1)-th match. When fewer matches exist the subquery yields NULL
// and the outer comparison matches nothing.
func (b *Builder) List(t Table, f Filter) (string, []any, error) {
	if err := b.check(t, f); err != nil {
		return "", nil, err
	}

	args := &argList{dialect: b.dialect}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(t.Columns, ", "), t.Name)

	if f.Skip > 0 {
		fmt.Fprintf(&sb, " WHERE %s >= (SELECT %s FROM %s", t.id(), t.id(), t.Name)
		if conds := args.render(f.Predicates); conds != "" {
			sb.WriteString(" WHERE " + conds)
		}
		fmt.Fprintf(&sb, " ORDER BY %s LIMIT 1 OFFSET %s)", t.id(), args.add(f.Skip))
		if conds := args.render(f.Predicates); conds != "" {
			sb.WriteString(" AND " + conds)
		}
	} else if conds := args.render(f.Predicates); conds != "" {
		sb.WriteString(" WHERE " + conds)
	}

	fmt.Fprintf(&sb, " ORDER BY %s", t.id())
	if f.Take > 0 {
		sb.WriteString(" LIMIT " + args.add(f.Take))
	}
	return sb.String(), args.values, nil
}

// Count renders a COUNT(*) over the predicates of f. Skip and take are ignored.
func (b *Builder) Count(t Table, f Filter) (string, []any, error) {
	if err := b.check(t, f); err != nil {
		return "", nil, err
	}

	args := &argList{dialect: b.dialect}
	stmt := "SELECT COUNT(*) FROM " + t.Name
	if conds := args.render(f.Predicates); conds != "" {
		stmt += " WHERE " + conds
	}
	return stmt, args.values, nil
}

func (b *Builder) check(t Table, f Filter) error {
	if t.Name == "" || len(t.Columns) == 0 {
		return fmt.Errorf("table metadata is incomplete")
	}
	for _, p := range f.Predicates {
		if !t.has(p.Column) {
			return fmt.Errorf("unknown column %q for table %s", p.Column, t.Name)
		}
	}
	return nil
}

type argList struct {
	dialect Dialect
	values  []any
}

func (a *argList) add(v any) string {
	a.values = append(a.values, v)
	if a.dialect == Postgres {
		return fmt.Sprintf("$%d", len(a.values))
	}
	return "?"
}

func (a *argList) render(preds []Predicate) string {
	if len(preds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		switch p.Op {
		case OpContains:
			parts = append(parts, fmt.Sprintf(`LOWER(%s) LIKE LOWER(%s) ESCAPE '\'`, p.Column, a.add(p.Value)))
		default:
			parts = append(parts, fmt.Sprintf("%s = %s", p.Column, a.add(p.Value)))
		}
	}
	return strings.Join(parts, " AND ")
}
