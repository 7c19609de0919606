//go:build integration

package test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coregx/fluentdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQL_Builder(t *testing.T) {
	setup := SetupMySQLTestDB(t)
	defer setup.Close()

	db := setup.Open(t)
	CreateUsersTable(t, db)
	ctx := t.Context()

	t.Run("where groups", func(t *testing.T) {
		res, err := db.Table("users").
			Where("team_id", 1).
			WhereGroup(func(q *fluentdb.Builder) {
				q.Where("age", "<", 20).OrWhere("score", ">", 2)
			}).
			Pluck(ctx, "name")
		require.NoError(t, err)
		assert.Equal(t, []any{"bob"}, res.Value)
	})

	t.Run("union", func(t *testing.T) {
		res, err := db.Table("users").
			Select("name").Where("age", ">", 30).
			Union(db.Table("users").Select("name").Where("age", "<", 20)).
			Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Len())
	})

	t.Run("right join", func(t *testing.T) {
		res, err := db.Table("users").
			RightJoin("teams", "users.team_id", "=", "teams.id").
			WhereNull("users.id").
			Pluck(ctx, "teams.title")
		require.NoError(t, err)
		assert.Equal(t, []any{"green"}, res.Value)
	})

	t.Run("date helpers", func(t *testing.T) {
		res, err := db.Table("users").WhereMonth("created_at", 2).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Value)
	})

	t.Run("aggregates", func(t *testing.T) {
		res, err := db.Table("users").Sum(ctx, "score")
		require.NoError(t, err)
		assert.InDelta(t, 8.0, res.Value, 0.001)

		res, err = db.Table("users").Max(ctx, "age")
		require.NoError(t, err)
		assert.Equal(t, int64(31), res.Value)
	})

	t.Run("escape", func(t *testing.T) {
		res, err := db.Table("users").Where("name", "ann' OR '1'='1").Exists(ctx)
		require.NoError(t, err)
		assert.Equal(t, false, res.Value)
	})

	t.Run("update only existing", func(t *testing.T) {
		res, err := db.Table("users").Where("name", "bob").
			Update(ctx, map[string]any{"age": 26, "nickname": "b"}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Value)

		res, err = db.Table("users").Where("name", "bob").Increment(ctx, "age", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Value)

		res, err = db.Table("users").Where("name", "bob").Value(ctx, "age")
		require.NoError(t, err)
		assert.Equal(t, int64(28), res.Value)
	})

	t.Run("execution error", func(t *testing.T) {
		_, err := db.Table("nope").Get(ctx)
		var execErr *fluentdb.SQLExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Contains(t, execErr.SQL, "`nope`")
	})
}

func TestMySQL_ReconnectsAfterKill(t *testing.T) {
	setup := SetupMySQLTestDB(t)
	defer setup.Close()

	var reconnects atomic.Int32
	db := setup.Open(t, fluentdb.WithQueryHook(func(_ context.Context, e fluentdb.QueryEvent) {
		if e.Reconnected {
			reconnects.Add(1)
		}
	}))
	admin := setup.Open(t)
	ctx := t.Context()

	res, err := db.SQL(ctx, "SELECT CONNECTION_ID() AS id")
	require.NoError(t, err)
	id := res.First()["id"]

	_, err = admin.SQL(ctx, "KILL ?", id)
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)

	res, err = db.SQL(ctx, "SELECT 1 AS one")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.First()["one"])
	assert.Equal(t, int32(1), reconnects.Load())
	assert.Equal(t, fluentdb.StateConnected, db.State())
}

func TestMySQL_Lifecycle(t *testing.T) {
	setup := SetupMySQLTestDB(t)
	defer setup.Close()

	db := setup.Open(t)
	ctx := t.Context()

	quoted, err := db.Escape(ctx, "it's")
	require.NoError(t, err)
	assert.Equal(t, `'it\'s'`, quoted)

	require.NoError(t, db.End(ctx))
	assert.Equal(t, fluentdb.StateDestroyed, db.State())

	_, err = db.SQL(ctx, "SELECT 1")
	require.ErrorIs(t, err, fluentdb.ErrConnectionDestroyed)

	require.NoError(t, db.ReConnect(ctx))
	_, err = db.SQL(ctx, "SELECT 1")
	require.NoError(t, err)
}
