package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RenderSQL renders a compiled statement for golden comparison: the SQL on
// the first line, then one "-- <n>: <value>" line per bound parameter in
// placeholder order.
func RenderSQL(sql string, params []any) []byte {
	var b strings.Builder
	b.WriteString(sql)
	b.WriteByte('\n')
	for i, p := range params {
		fmt.Fprintf(&b, "-- %d: %#v\n", i+1, p)
	}
	return []byte(b.String())
}

// AssertGoldenSQL compares a compiled statement against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGoldenSQL(t *testing.T, name, sql string, params []any) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, RenderSQL(sql, params))
}
