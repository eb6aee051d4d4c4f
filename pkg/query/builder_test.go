package query

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widgets = Table{
	Name:    "widgets",
	Columns: []string{"id", "name", "group_id", "disabled"},
}

func TestList_NoFilter(t *testing.T) {
	stmt, args, err := NewBuilder(Postgres).List(widgets, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, group_id, disabled FROM widgets ORDER BY id", stmt)
	assert.Empty(t, args)
}

func TestList_PredicatesAndTake(t *testing.T) {
	f := Filter{Take: 10}.Where(Contains("name", "ace"), Equals("group_id", int64(3)))

	stmt, args, err := NewBuilder(Postgres).List(widgets, f)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT id, name, group_id, disabled FROM widgets WHERE LOWER(name) LIKE LOWER($1) ESCAPE '\' AND group_id = $2 ORDER BY id LIMIT $3`,
		stmt)
	assert.Equal(t, []any{"%ace%", int64(3), 10}, args)
}

func TestList_SkipRepeatsPredicatesWithFreshPlaceholders(t *testing.T) {
	f := Filter{Skip: 5, Take: 2}.Where(Equals("disabled", false))

	stmt, args, err := NewBuilder(Postgres).List(widgets, f)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name, group_id, disabled FROM widgets WHERE id >= (SELECT id FROM widgets WHERE disabled = $1 ORDER BY id LIMIT 1 OFFSET $2) AND disabled = $3 ORDER BY id LIMIT $4",
		stmt)
	assert.Equal(t, []any{false, 5, false, 2}, args)
}

func TestList_SkipWithoutPredicates(t *testing.T) {
	stmt, args, err := NewBuilder(SQLite).List(widgets, Filter{Skip: 1})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name, group_id, disabled FROM widgets WHERE id >= (SELECT id FROM widgets ORDER BY id LIMIT 1 OFFSET ?) ORDER BY id",
		stmt)
	assert.Equal(t, []any{1}, args)
}

func TestList_NonPositiveSkipAndTakeAreAbsent(t *testing.T) {
	a, _, err := NewBuilder(SQLite).List(widgets, Filter{Skip: -3, Take: 0})
	require.NoError(t, err)
	b, _, err := NewBuilder(SQLite).List(widgets, Filter{})
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestList_UnknownColumn(t *testing.T) {
	_, _, err := NewBuilder(SQLite).List(widgets, Filter{}.Where(Equals("name; DROP TABLE x", 1)))
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	stmt, args, err := NewBuilder(SQLite).Count(widgets, Filter{Skip: 3, Take: 4}.Where(Contains("name", "a")))
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM widgets WHERE LOWER(name) LIKE LOWER(?) ESCAPE '\'`, stmt)
	assert.Equal(t, []any{"%a%"}, args)
}

func TestContains_EscapesLikeMetacharacters(t *testing.T) {
	p := Contains("name", `50%_a\b`)
	assert.Equal(t, `%50\%\_a\\b%`, p.Value)
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("oracle")
	assert.Error(t, err)
}

func setupWidgets(t *testing.T, names ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE widgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		group_id INTEGER,
		disabled BOOLEAN NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	for i, n := range names {
		_, err = db.Exec(`INSERT INTO widgets (name, group_id, disabled) VALUES (?, ?, ?)`, n, i%2, i%3 == 0)
		require.NoError(t, err)
	}
	return db
}

func runList(t *testing.T, db *sql.DB, f Filter) []string {
	t.Helper()
	stmt, args, err := NewBuilder(SQLite).List(widgets, f)
	require.NoError(t, err)
	rows, err := db.Query(stmt, args...)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			id       int64
			name     string
			groupID  sql.NullInt64
			disabled bool
		)
		require.NoError(t, rows.Scan(&id, &name, &groupID, &disabled))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func runCount(t *testing.T, db *sql.DB, f Filter) int {
	t.Helper()
	stmt, args, err := NewBuilder(SQLite).Count(widgets, f)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(stmt, args...).Scan(&n))
	return n
}

func TestList_SQLiteSemantics(t *testing.T) {
	db := setupWidgets(t, "alpha", "Beta", "gamma", "delta", "epsilon", "alphabet", "50%off")

	t.Run("substring is case insensitive", func(t *testing.T) {
		assert.Equal(t, []string{"Beta", "alphabet"}, runList(t, db, Filter{}.Where(Contains("name", "BET"))))
	})

	t.Run("metacharacters match literally", func(t *testing.T) {
		assert.Equal(t, []string{"50%off"}, runList(t, db, Filter{}.Where(Contains("name", "%"))))
		assert.Empty(t, runList(t, db, Filter{}.Where(Contains("name", "_"))))
	})

	t.Run("skip without predicates", func(t *testing.T) {
		assert.Equal(t, []string{"gamma", "delta", "epsilon", "alphabet", "50%off"}, runList(t, db, Filter{Skip: 2}))
	})

	t.Run("skip and take with predicate", func(t *testing.T) {
		f := Filter{Skip: 1, Take: 2}.Where(Equals("group_id", 0))
		assert.Equal(t, []string{"gamma", "epsilon"}, runList(t, db, f))
	})

	t.Run("skip past the end is empty", func(t *testing.T) {
		assert.Empty(t, runList(t, db, Filter{Skip: 7}))
		assert.Empty(t, runList(t, db, Filter{Skip: 3}.Where(Equals("group_id", 1))))
	})

	t.Run("count agrees with list", func(t *testing.T) {
		for _, f := range []Filter{
			{},
			Filter{}.Where(Equals("group_id", 1)),
			Filter{}.Where(Equals("disabled", false)),
			Filter{}.Where(Contains("name", "a"), Equals("disabled", false)),
		} {
			assert.Len(t, runList(t, db, f), runCount(t, db, f))
		}
	})

	t.Run("pages concatenate to the full list", func(t *testing.T) {
		all := runList(t, db, Filter{})
		var paged []string
		for skip := 0; skip < len(all); skip += 3 {
			paged = append(paged, runList(t, db, Filter{Skip: skip, Take: 3})...)
		}
		assert.Equal(t, all, paged)
	})
}
