package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:./yamdb.db?_foreign_keys=on&_busy_timeout=5000", sqliteDSN("./yamdb.db"))
	assert.Equal(t, "file:x.db?cache=shared&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("file:x.db?cache=shared"))
	assert.Equal(t, "file:x.db?_foreign_keys=off&_busy_timeout=1", sqliteDSN("file:x.db?_foreign_keys=off&_busy_timeout=1"))
}

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open("sqlite3", path)
	require.NoError(t, err)
	defer database.Close()

	var tables []string
	require.NoError(t, database.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"categories", "comments", "genre_title", "genres", "reviews", "titles", "users"}, tables)

	var fk int
	require.NoError(t, database.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)

	// Schema creation is idempotent.
	again, err := Open("sqlite3", path)
	require.NoError(t, err)
	again.Close()
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.Error(t, err)
}

func TestCreateSchemaStopsOnError(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnError(errors.New("syntax error"))

	err = createSchema(sqlx.NewDb(raw, "sqlmock"), []string{"CREATE TABLE a", "CREATE TABLE b", "CREATE TABLE c"})
	assert.ErrorContains(t, err, "syntax error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
