//go:build integration

package test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/coregx/fluentdb"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseSetup holds the connection settings of a test server.
type DatabaseSetup struct {
	Config    fluentdb.Config
	Container testcontainers.Container
}

// Open returns a DB for the test server that is destroyed with the test.
func (ds *DatabaseSetup) Open(t *testing.T, opts ...fluentdb.Option) *fluentdb.DB {
	t.Helper()

	db, err := fluentdb.Open(ds.Config, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Destroy() })
	return db
}

// Close stops the container, if any.
func (ds *DatabaseSetup) Close() {
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// SetupMySQLTestDB starts MySQL in Docker, or uses MYSQL_TEST_DSN when set.
func SetupMySQLTestDB(t *testing.T) *DatabaseSetup {
	ctx := context.Background()

	if dsn := os.Getenv("MYSQL_TEST_DSN"); dsn != "" {
		return &DatabaseSetup{Config: configFromDSN(t, dsn)}
	}

	mysqlContainer, err := mysql.Run(
		ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("user"),
		mysql.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for MySQL integration tests: " + err.Error())
	}

	dsn, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)

	return &DatabaseSetup{
		Config:    configFromDSN(t, dsn),
		Container: mysqlContainer,
	}
}

func configFromDSN(t *testing.T, dsn string) fluentdb.Config {
	t.Helper()

	mc, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)

	return fluentdb.Config{
		Driver:   "mysql",
		Host:     mc.Addr,
		User:     mc.User,
		Password: mc.Passwd,
		Database: mc.DBName,
		Timeout:  10 * time.Second,
	}
}

// CreateUsersTable creates and seeds the users and teams tables.
func CreateUsersTable(t *testing.T, db *fluentdb.DB) {
	t.Helper()
	ctx := t.Context()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS users",
		"DROP TABLE IF EXISTS teams",
		`CREATE TABLE users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			age INT,
			score DECIMAL(5,2),
			team_id INT,
			created_at DATETIME
		)`,
		"CREATE TABLE teams (id INT PRIMARY KEY, title VARCHAR(64))",
		"INSERT INTO teams (id, title) VALUES (1, 'red'), (2, 'blue'), (3, 'green')",
	} {
		_, err := db.SQL(ctx, stmt)
		require.NoError(t, err)
	}

	for _, u := range []map[string]any{
		{"name": "ann", "age": 31, "score": 1.5, "team_id": 1, "created_at": "2024-01-31 10:00:00"},
		{"name": "bob", "age": 25, "score": 2.5, "team_id": 1, "created_at": "2024-02-01 09:30:00"},
		{"name": "cid", "age": 19, "score": 4, "team_id": 2, "created_at": "2024-02-02 18:45:00"},
	} {
		_, err := db.Table("users").Insert(ctx, u)
		require.NoError(t, err)
	}
}
