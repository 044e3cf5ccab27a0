package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenSQLite(t *testing.T) {
	db := OpenSQLite(t,
		"CREATE TABLE t (v TEXT)",
		"INSERT INTO t VALUES ('a'), (NULL)",
	)

	got := QueryStrings(t, db, "SELECT v FROM t WHERE v IS NULL OR v = ? ORDER BY v", "a")
	assert.Equal(t, []string{"<nil>", "a"}, got)
}
