package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/fluentdb/internal/core"
)

// newSQLiteDB returns a DB over a private in-memory database with a users table.
func newSQLiteDB(t *testing.T, opts ...core.Option) *core.DB {
	t.Helper()

	db := core.New(SQLite{}, core.Config{}, opts...)
	t.Cleanup(func() { _ = db.Destroy() })

	_, err := db.SQL(t.Context(), `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		age INTEGER,
		score REAL,
		team_id INTEGER,
		created_at TEXT
	)`)
	require.NoError(t, err)

	_, err = db.SQL(t.Context(), `CREATE TABLE teams (id INTEGER PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)

	return db
}

func seedUsers(t *testing.T, db *core.DB) {
	t.Helper()

	users := []map[string]any{
		{"name": "ann", "age": 31, "score": 1.5, "team_id": 1, "created_at": "2024-01-31 10:00:00"},
		{"name": "bob", "age": 25, "score": 2.5, "team_id": 1, "created_at": "2024-02-01 09:30:00"},
		{"name": "cid", "age": 19, "score": 4.0, "team_id": 2, "created_at": "2024-02-02 18:45:00"},
	}
	for _, u := range users {
		_, err := db.Table("users").Insert(t.Context(), u)
		require.NoError(t, err)
	}

	_, err := db.SQL(t.Context(), "INSERT INTO teams (id, title) VALUES (?, ?), (?, ?)", 1, "red", 2, "blue")
	require.NoError(t, err)
}

func TestSQLite_InsertAndGet(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := t.Context()

	res, err := db.Table("users").Insert(ctx, map[string]any{"name": "O'Hara", "age": 40})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Value)

	res, err = db.Table("users").Select("id", "name", "age", "score").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, []string{"id", "name", "age", "score"}, res.Columns)

	row := res.First()
	assert.Equal(t, int64(1), row["id"])
	assert.Equal(t, "O'Hara", row["name"])
	assert.Equal(t, int64(40), row["age"])
	assert.Nil(t, row["score"])
}

func TestSQLite_Filtering(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db)
	ctx := t.Context()

	tests := []struct {
		name  string
		build func(b *core.Builder) *core.Builder
		want  []any
	}{
		{"equality", func(b *core.Builder) *core.Builder { return b.Where("name", "bob") }, []any{"bob"}},
		{"operator", func(b *core.Builder) *core.Builder { return b.Where("age", ">", 20) }, []any{"ann", "bob"}},
		{"or", func(b *core.Builder) *core.Builder { return b.Where("name", "ann").OrWhere("name", "cid") }, []any{"ann", "cid"}},
		{
			"group",
			func(b *core.Builder) *core.Builder {
				return b.Where("team_id", 1).WhereGroup(func(q *core.Builder) {
					q.Where("age", "<", 20).OrWhere("score", ">", 2)
				})
			},
			[]any{"bob"},
		},
		{"in", func(b *core.Builder) *core.Builder { return b.WhereIn("name", []string{"ann", "cid"}) }, []any{"ann", "cid"}},
		{"empty in", func(b *core.Builder) *core.Builder { return b.WhereIn("name") }, nil},
		{"empty not in", func(b *core.Builder) *core.Builder { return b.WhereNotIn("name") }, []any{"ann", "bob", "cid"}},
		{"between", func(b *core.Builder) *core.Builder { return b.WhereBetween("age", 20, 30) }, []any{"bob"}},
		{"like", func(b *core.Builder) *core.Builder { return b.Where("name", "like", "%i%") }, []any{"cid"}},
		{"date", func(b *core.Builder) *core.Builder { return b.WhereDate("created_at", "2024-02-01") }, []any{"bob"}},
		{"column", func(b *core.Builder) *core.Builder { return b.WhereColumn("id", "team_id") }, []any{"ann"}},
		{"null", func(b *core.Builder) *core.Builder { return b.WhereNull("score") }, nil},
		{"limit offset", func(b *core.Builder) *core.Builder { return b.Limit(1, 1) }, []any{"bob"}},
		{"skip only", func(b *core.Builder) *core.Builder { return b.Skip(2) }, []any{"cid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.build(db.Table("users").OrderBy("id")).Pluck(ctx, "name")
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, res.Value)
				return
			}
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestSQLite_Aggregates(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db)
	ctx := t.Context()

	res, err := db.Table("users").Count(ctx)
	require.NoError(t, err)
	n, err := res.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	res, err = db.Table("users").Max(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, int64(31), res.Value)

	res, err = db.Table("users").Sum(ctx, "score")
	require.NoError(t, err)
	f, err := res.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 8.0, f, 0.0001)

	res, err = db.Table("users").Where("age", ">", 100).Min(ctx, "age")
	require.NoError(t, err)
	assert.Nil(t, res.Value)

	res, err = db.Table("users").Where("name", "ann").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, res.Bool())

	res, err = db.Table("users").Where("name", "zed").DoesntExist(ctx)
	require.NoError(t, err)
	assert.True(t, res.Bool())
}

func TestSQLite_GroupByHaving(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db)

	res, err := db.Table("users").
		Select("team_id", db.Raw("COUNT(*) AS members")).
		GroupBy("team_id").
		HavingRaw("COUNT(*) > ?", 1).
		Get(t.Context())
	require.NoError(t, err)

	require.Equal(t, 1, res.Len())
	assert.Equal(t, int64(1), res.First()["team_id"])
	assert.Equal(t, int64(2), res.First()["members"])
}

func TestSQLite_Joins(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db)
	ctx := t.Context()

	res, err := db.Table("users").
		Select("users.name", "teams.title").
		Join("teams", "teams.id", "=", "users.team_id").
		Where("teams.title", "blue").
		Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "cid", res.First()["name"])
	assert.Equal(t, "blue", res.First()["title"])

	_, err = db.Table("teams").Insert(ctx, map[string]any{"id": 3, "title": "green"})
	require.NoError(t, err)

	res, err = db.Table("teams").
		Select("teams.title").
		LeftJoin("users", "users.team_id", "=", "teams.id").
		WhereNull("users.id").
		Pluck(ctx, "teams.title")
	require.NoError(t, err)
	assert.Equal(t, []any{"green"}, res.Value)
}

func TestSQLite_Mutations(t *testing.T) {
	db := newSQLiteDB(t)
	seedUsers(t, db)
	ctx := t.Context()

	res, err := db.Table("users").Where("name", "bob").Update(ctx, map[string]any{"age": 26, "nickname": "b"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Value)

	res, err = db.Table("users").Where("name", "bob").Increment(ctx, "age", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Value)

	res, err = db.Table("users").Where("name", "bob").Decrement(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Value)

	res, err = db.Table("users").Where("name", "bob").Value(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, int64(29), res.Value)

	res, err = db.Table("users").Where("age", "<", 20).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Value)

	_, err = db.Table("users").Truncate(ctx)
	require.NoError(t, err)

	res, err = db.Table("users").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Value)
}

func TestSQLite_InsertOnlyExisting(t *testing.T) {
	db := newSQLiteDB(t, core.WithColumnCache(4))
	ctx := t.Context()

	names, err := db.Table("users").ColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age", "score", "team_id", "created_at"}, names)

	res, err := db.Table("users").ToSQL().Insert(ctx, map[string]any{"name": "dee", "b": "x"}, true)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name") VALUES ('dee')`, res.SQL)

	_, err = db.Table("users").Insert(ctx, map[string]any{"name": "dee", "b": "x", "created_at": "datetime('now')"}, true)
	require.NoError(t, err)

	res, err = db.Table("users").Where("name", "dee").WhereNotNull("created_at").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, res.Bool())
}

func TestSQLite_Drop(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := t.Context()

	_, err := db.Table("teams").Drop(ctx)
	require.NoError(t, err)

	_, err = db.Table("teams").Get(ctx)
	var execErr *core.SQLExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Error(), "no such table")
}

func TestSQLite_Lifecycle(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := t.Context()

	require.NoError(t, db.Destroy())
	_, err := db.Table("users").Get(ctx)
	assert.ErrorIs(t, err, core.ErrConnectionDestroyed)

	require.NoError(t, db.ReConnect(ctx))
	res, err := db.SQL(ctx, "SELECT ? AS v", "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.First()["v"])

	require.NoError(t, db.End(ctx))
	assert.Equal(t, core.StateDestroyed, db.State())
}

func TestSQLite_Escape(t *testing.T) {
	db := core.New(SQLite{}, core.Config{})
	defer func() { _ = db.Destroy() }()

	s, err := db.Escape(context.Background(), "it's")
	require.NoError(t, err)
	assert.Equal(t, "'it''s'", s)
	assert.Equal(t, core.StateConnected, db.State())
}

func TestSQLite_Registered(t *testing.T) {
	db, err := core.Open(core.Config{Driver: "sqlite"})
	require.NoError(t, err)
	defer func() { _ = db.Destroy() }()

	res, err := db.SQL(t.Context(), "SELECT 1 + 1 AS two")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.First()["two"])
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", SQLiteDSN(core.Config{}))
	assert.Equal(t, "app.db", SQLiteDSN(core.Config{Database: "app.db"}))
	assert.Equal(t, "/tmp/x.db", SQLiteDSN(core.Config{Host: "/tmp/x.db", Database: "ignored"}))
	assert.Equal(t, "app.db?_pragma=foreign_keys%281%29",
		SQLiteDSN(core.Config{Database: "app.db", Params: map[string]string{"_pragma": "foreign_keys(1)"}}))
}
