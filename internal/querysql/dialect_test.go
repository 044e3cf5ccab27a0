package querysql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubesql/internal/queryspec"
)

func TestDialect_WithDoesNotMutateBase(t *testing.T) {
	base := NewDialect("ansi")
	upper := base.With(WithHooks(func(h *Hooks) {
		prev := h.EscapeIdentifier
		h.EscapeIdentifier = func(name string) string { return strings.ToUpper(prev(name)) }
	}), WithMaxIdentifierLength(30))

	assert.Equal(t, `"abc"`, base.Hooks().EscapeIdentifier("abc"))
	assert.Equal(t, `"ABC"`, upper.Hooks().EscapeIdentifier("abc"))
	assert.Equal(t, 0, base.MaxIdentifierLength())
	assert.Equal(t, 30, upper.MaxIdentifierLength())
}

func TestDialect_PreAggregationTableName(t *testing.T) {
	d := NewDialect("ansi")

	name, err := d.PreAggregationTableName("orders", "byDay", false)
	require.NoError(t, err)
	assert.Equal(t, "stb_pre_aggregations.orders_by_day", name)

	name, err = d.PreAggregationTableName("orders", "byDay", true)
	require.NoError(t, err)
	assert.Equal(t, "orders_by_day", name)

	name, err = d.With(WithPreAggregationSchema("rollups")).PreAggregationTableName("LineItems", "main", false)
	require.NoError(t, err)
	assert.Equal(t, "rollups.line_items_main", name)

	_, err = d.PreAggregationTableName("", "main", false)
	assert.True(t, queryspec.IsInvariantError(err))
}

func TestDialect_PreAggregationTableNameCeiling(t *testing.T) {
	d := NewDialect("legacy", WithMaxIdentifierLength(128))

	// "c_" + 126 characters is exactly at the ceiling.
	name, err := d.PreAggregationTableName("c", strings.Repeat("a", 126), true)
	require.NoError(t, err)
	assert.Len(t, name, 128)

	long := strings.Repeat("a", 128)
	_, err = d.PreAggregationTableName("c", long, true)
	require.Error(t, err)
	assert.True(t, queryspec.IsConfigurationError(err))

	var qerr *queryspec.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "c_"+long, qerr.Identifier)
	assert.Len(t, qerr.Identifier, 130)
	assert.Equal(t, 128, qerr.Limit)
	assert.Contains(t, err.Error(), "128")
}

func TestDialect_IdentifierCeilingCountsCharacters(t *testing.T) {
	d := NewDialect("postgres", WithMaxIdentifierLength(63))

	// 62 two-byte characters: 124 bytes, within a 63 character ceiling.
	wide := strings.Repeat("é", 61) + "_r"
	require.NoError(t, d.checkIdentifier(wide))

	// Decomposed "e" + combining acute normalizes to one character each.
	decomposed := strings.Repeat("e\u0301", 63)
	require.NoError(t, d.checkIdentifier(decomposed))

	err := d.checkIdentifier(strings.Repeat("é", 64))
	require.Error(t, err)
	var qerr *queryspec.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 63, qerr.Limit)
	assert.Contains(t, err.Error(), "got 64")
}

func TestDialect_RefreshKeySQL(t *testing.T) {
	d := NewDialect("ansi")

	sql, err := d.RefreshKeySQL(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "SELECT FLOOR((EXTRACT(EPOCH FROM CURRENT_TIMESTAMP)) / 3600)", sql)

	_, err = d.RefreshKeySQL(500 * time.Millisecond)
	assert.True(t, queryspec.IsConfigurationError(err))
}

func TestDialect_SupportsIntervals(t *testing.T) {
	d := NewDialect("ansi")
	assert.True(t, d.SupportsIntervals())

	none := d.With(WithHooks(func(h *Hooks) { h.AddInterval, h.SubtractInterval = nil, nil }))
	assert.False(t, none.SupportsIntervals())
}

func TestGroupByStrategies(t *testing.T) {
	cols := []SelectColumn{
		{SQL: "a.x", Ordinal: 1},
		{SQL: "DATE_TRUNC('day', a.t)", Ordinal: 2},
	}

	assert.Equal(t, "GROUP BY 1, 2", GroupByOrdinals(Grouping{Columns: cols}))
	assert.Equal(t, "GROUP BY a.x, DATE_TRUNC('day', a.t)", GroupByExpressions(Grouping{Columns: cols}))

	for _, g := range []Grouping{{}, {Ungrouped: true, Columns: cols}} {
		assert.Empty(t, GroupByOrdinals(g))
		assert.Empty(t, GroupByExpressions(g))
	}
}

func TestLimitOffset(t *testing.T) {
	tests := []struct {
		name   string
		limit  *int64
		offset int64
		want   string
	}{
		{"unlimited", nil, 0, ""},
		{"explicit zero", queryspec.Limit(0), 0, "LIMIT 0"},
		{"limit and offset", queryspec.Limit(10), 5, "LIMIT 10 OFFSET 5"},
		{"offset only", nil, 5, "OFFSET 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LimitOffset(tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentifierHelpers(t *testing.T) {
	assert.Equal(t, `"we""ird"`, QuoteIdentifier(`we"ird`, '"'))
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b", '`'))

	assert.Equal(t, "orders_by_day", SnakeCase("OrdersByDay"))
	assert.Equal(t, "orders_by_day", SnakeCase("orders.byDay"))
	assert.Equal(t, "line_items_2024", SnakeCase("lineItems-2024"))

	assert.True(t, IsUTC(""))
	assert.True(t, IsUTC("utc"))
	assert.False(t, IsUTC("Europe/Berlin"))
}
