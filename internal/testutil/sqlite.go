package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// OpenSQLite opens a private in-memory SQLite database and runs the setup
// statements in order. The database is closed when the test ends.
func OpenSQLite(t *testing.T, setup ...string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range setup {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "setup: %s", stmt)
	}
	return db
}

// QueryStrings runs query and returns the first column of every row as a
// string, with NULL rendered as "<nil>".
func QueryStrings(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()

	rows, err := db.Query(query, args...)
	require.NoError(t, err, "query: %s", query)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		require.NoError(t, rows.Scan(&v))
		if v.Valid {
			out = append(out, v.String)
		} else {
			out = append(out, "<nil>")
		}
	}
	require.NoError(t, rows.Err())
	return out
}
