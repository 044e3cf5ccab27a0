package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubesql/internal/queryspec"
)

var (
	nameMember    = queryspec.Member{Name: "users.name", SQL: "users.name", Type: queryspec.TypeString, Kind: queryspec.KindDimension}
	ageMember     = queryspec.Member{Name: "users.age", SQL: "users.age", Type: queryspec.TypeNumber, Kind: queryspec.KindDimension}
	createdMember = queryspec.Member{Name: "users.created_at", SQL: "users.created_at", Type: queryspec.TypeTime, Kind: queryspec.KindDimension}
	dayMember     = queryspec.Member{Name: "users.signup_day", SQL: "users.signup_day", Type: queryspec.TypeString, Kind: queryspec.KindDimension}
)

func newTestFilterCompiler() (*FilterCompiler, *ParamAllocator) {
	d := NewDialect("ansi")
	alloc := d.NewParamAllocator()
	return d.NewFilterCompiler(alloc), alloc
}

func TestFilterCompile_Operators(t *testing.T) {
	tests := []struct {
		name       string
		member     queryspec.Member
		op         queryspec.Operator
		values     []any
		negated    bool
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "equals",
			member:     nameMember,
			op:         queryspec.OpEquals,
			values:     []any{"Bob"},
			wantSQL:    "users.name = ?",
			wantParams: []any{"Bob"},
		},
		{
			name:       "not equals admits nulls",
			member:     nameMember,
			op:         queryspec.OpEquals,
			values:     []any{"Bob"},
			negated:    true,
			wantSQL:    "(users.name <> ? OR users.name IS NULL)",
			wantParams: []any{"Bob"},
		},
		{
			name:       "equals with several values becomes IN",
			member:     nameMember,
			op:         queryspec.OpEquals,
			values:     []any{"Bob", "Alice"},
			wantSQL:    "users.name IN (?, ?)",
			wantParams: []any{"Bob", "Alice"},
		},
		{
			name:       "not in",
			member:     nameMember,
			op:         queryspec.OpIn,
			values:     []any{"Bob", "Alice"},
			negated:    true,
			wantSQL:    "(users.name NOT IN (?, ?) OR users.name IS NULL)",
			wantParams: []any{"Bob", "Alice"},
		},
		{
			name:    "equals null on a number is never bound as zero",
			member:  ageMember,
			op:      queryspec.OpEquals,
			values:  []any{nil},
			wantSQL: "users.age IS NULL",
		},
		{
			name:    "not equals null",
			member:  nameMember,
			op:      queryspec.OpEquals,
			values:  []any{nil},
			negated: true,
			wantSQL: "users.name IS NOT NULL",
		},
		{
			name:       "in with null",
			member:     nameMember,
			op:         queryspec.OpIn,
			values:     []any{"Bob", nil},
			wantSQL:    "(users.name IN (?) OR users.name IS NULL)",
			wantParams: []any{"Bob"},
		},
		{
			name:       "equals with null keeps the single value form",
			member:     ageMember,
			op:         queryspec.OpEquals,
			values:     []any{nil, 5},
			negated:    true,
			wantSQL:    "(users.age <> ? AND users.age IS NOT NULL)",
			wantParams: []any{int64(5)},
		},
		{
			name:       "not in with null",
			member:     nameMember,
			op:         queryspec.OpIn,
			values:     []any{"Bob", nil, "Alice"},
			negated:    true,
			wantSQL:    "(users.name NOT IN (?, ?) AND users.name IS NOT NULL)",
			wantParams: []any{"Bob", "Alice"},
		},
		{
			name:       "gt coerces numeric strings",
			member:     ageMember,
			op:         queryspec.OpGt,
			values:     []any{"10"},
			wantSQL:    "users.age > ?",
			wantParams: []any{int64(10)},
		},
		{
			name:       "negated lte",
			member:     ageMember,
			op:         queryspec.OpLte,
			values:     []any{2.5},
			negated:    true,
			wantSQL:    "(NOT (users.age <= ?) OR users.age IS NULL)",
			wantParams: []any{2.5},
		},
		{
			name:    "set",
			member:  nameMember,
			op:      queryspec.OpSet,
			wantSQL: "users.name IS NOT NULL",
		},
		{
			name:    "not set",
			member:  nameMember,
			op:      queryspec.OpSet,
			negated: true,
			wantSQL: "users.name IS NULL",
		},
		{
			name:       "contains",
			member:     nameMember,
			op:         queryspec.OpContains,
			values:     []any{"Bob"},
			wantSQL:    "users.name LIKE '%' || ? || '%' ESCAPE '!'",
			wantParams: []any{"Bob"},
		},
		{
			name:       "contains any of several values",
			member:     nameMember,
			op:         queryspec.OpContains,
			values:     []any{"a", "b"},
			wantSQL:    "(users.name LIKE '%' || ? || '%' ESCAPE '!' OR users.name LIKE '%' || ? || '%' ESCAPE '!')",
			wantParams: []any{"a", "b"},
		},
		{
			name:       "not contains",
			member:     nameMember,
			op:         queryspec.OpContains,
			values:     []any{"Bob"},
			negated:    true,
			wantSQL:    "(users.name NOT LIKE '%' || ? || '%' ESCAPE '!' OR users.name IS NULL)",
			wantParams: []any{"Bob"},
		},
		{
			name:       "starts with",
			member:     nameMember,
			op:         queryspec.OpStartsWith,
			values:     []any{"Bo"},
			wantSQL:    "users.name LIKE ? || '%' ESCAPE '!'",
			wantParams: []any{"Bo"},
		},
		{
			name:       "ends with",
			member:     nameMember,
			op:         queryspec.OpEndsWith,
			values:     []any{"ob"},
			wantSQL:    "users.name LIKE '%' || ? ESCAPE '!'",
			wantParams: []any{"ob"},
		},
		{
			name:       "wildcards are escaped",
			member:     nameMember,
			op:         queryspec.OpContains,
			values:     []any{"50%_off!"},
			wantSQL:    "users.name LIKE '%' || ? || '%' ESCAPE '!'",
			wantParams: []any{"50!%!_off!!"},
		},
		{
			name:       "contains ignore case",
			member:     nameMember,
			op:         queryspec.OpContainsIgnoreCase,
			values:     []any{"Bob"},
			wantSQL:    "LOWER(users.name) LIKE LOWER('%' || ? || '%') ESCAPE '!'",
			wantParams: []any{"Bob"},
		},
		{
			name:       "in date range expands date-only bounds",
			member:     createdMember,
			op:         queryspec.OpInDateRange,
			values:     []any{"2024-01-01", "2024-01-31"},
			wantSQL:    "(users.created_at >= CAST(? AS TIMESTAMP) AND users.created_at <= CAST(? AS TIMESTAMP))",
			wantParams: []any{"2024-01-01T00:00:00.000", "2024-01-31T23:59:59.999"},
		},
		{
			name:       "not in date range",
			member:     createdMember,
			op:         queryspec.OpInDateRange,
			values:     []any{"2024-01-01", "2024-01-31"},
			negated:    true,
			wantSQL:    "(users.created_at < CAST(? AS TIMESTAMP) OR users.created_at > CAST(? AS TIMESTAMP) OR users.created_at IS NULL)",
			wantParams: []any{"2024-01-01T00:00:00.000", "2024-01-31T23:59:59.999"},
		},
		{
			name:       "string typed dates compare raw placeholders",
			member:     dayMember,
			op:         queryspec.OpInDateRange,
			values:     []any{"2024-01-01", "2024-01-31"},
			wantSQL:    "(users.signup_day >= ? AND users.signup_day <= ?)",
			wantParams: []any{"2024-01-01T00:00:00.000", "2024-01-31T23:59:59.999"},
		},
		{
			name:       "before date",
			member:     createdMember,
			op:         queryspec.OpBeforeDate,
			values:     []any{"2024-06-01T12:00:00Z"},
			wantSQL:    "users.created_at < CAST(? AS TIMESTAMP)",
			wantParams: []any{"2024-06-01T12:00:00.000"},
		},
		{
			name:       "not after date",
			member:     createdMember,
			op:         queryspec.OpAfterDate,
			values:     []any{"2024-06-01"},
			negated:    true,
			wantSQL:    "(users.created_at <= CAST(? AS TIMESTAMP) OR users.created_at IS NULL)",
			wantParams: []any{"2024-06-01T00:00:00.000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, alloc := newTestFilterCompiler()

			sql, err := f.Compile(tt.member, tt.op, tt.values, tt.negated)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantParams == nil {
				assert.Equal(t, 0, alloc.Len())
			} else {
				assert.Equal(t, tt.wantParams, alloc.Params())
			}
		})
	}
}

func TestFilterCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		member queryspec.Member
		op     queryspec.Operator
		values []any
	}{
		{"no values", nameMember, queryspec.OpEquals, nil},
		{"non numeric comparison", ageMember, queryspec.OpGt, []any{"abc"}},
		{"comparison takes one value", ageMember, queryspec.OpGt, []any{1, 2}},
		{"date range needs two bounds", createdMember, queryspec.OpInDateRange, []any{"2024-01-01"}},
		{"unparseable date", createdMember, queryspec.OpBeforeDate, []any{"yesterday"}},
		{"unknown operator", nameMember, queryspec.Operator("regex"), []any{"x"}},
		{"null comparison", ageMember, queryspec.OpGt, []any{nil}},
		{"null contains", nameMember, queryspec.OpContains, []any{"Bob", nil}},
		{"null date bound", createdMember, queryspec.OpInDateRange, []any{"2024-01-01", nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestFilterCompiler()

			_, err := f.Compile(tt.member, tt.op, tt.values, false)
			require.Error(t, err)
			assert.True(t, queryspec.IsConfigurationError(err), "want CONFIGURATION, got %v", err)
		})
	}
}

func TestFilterCompile_TimezoneConversion(t *testing.T) {
	f, _ := newTestFilterCompiler()
	f.WithTimezone("America/New_York")

	sql, err := f.Compile(createdMember, queryspec.OpBeforeDate, []any{"2024-06-01"}, false)
	require.NoError(t, err)
	assert.Equal(t, "(users.created_at AT TIME ZONE 'America/New_York') < CAST(? AS TIMESTAMP)", sql)

	// Non-date operators compare the raw column.
	sql, err = f.Compile(createdMember, queryspec.OpSet, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "users.created_at IS NOT NULL", sql)
}

func TestFilterCompileTree(t *testing.T) {
	members := map[string]queryspec.Member{
		"users.name": nameMember,
		"users.age":  ageMember,
	}
	resolve := func(name string) (queryspec.Member, error) {
		m, ok := members[name]
		if !ok {
			return queryspec.Member{}, queryspec.NewMemberError(name, "member not found")
		}
		return m, nil
	}

	t.Run("nested groups keep textual parameter order", func(t *testing.T) {
		f, alloc := newTestFilterCompiler()
		tree := queryspec.NewAnd(
			&queryspec.Leaf{Member: "users.name", Operator: queryspec.OpEquals, Values: []any{"Bob"}},
			queryspec.NewOr(
				&queryspec.Leaf{Member: "users.age", Operator: queryspec.OpGt, Values: []any{30}},
				&queryspec.Leaf{Member: "users.age", Operator: queryspec.OpLt, Values: []any{18}},
			),
		)

		sql, err := f.CompileTree(tree, resolve)
		require.NoError(t, err)
		assert.Equal(t, "(users.name = ? AND (users.age > ? OR users.age < ?))", sql)
		assert.Equal(t, []any{"Bob", int64(30), int64(18)}, alloc.Params())
	})

	t.Run("single child group is unwrapped", func(t *testing.T) {
		f, _ := newTestFilterCompiler()
		tree := queryspec.NewOr(&queryspec.Leaf{Member: "users.name", Operator: queryspec.OpSet})

		sql, err := f.CompileTree(tree, resolve)
		require.NoError(t, err)
		assert.Equal(t, "users.name IS NOT NULL", sql)
	})

	t.Run("unresolved member", func(t *testing.T) {
		f, _ := newTestFilterCompiler()
		tree := &queryspec.Leaf{Member: "users.missing", Operator: queryspec.OpSet}

		_, err := f.CompileTree(tree, resolve)
		require.Error(t, err)

		var qerr *queryspec.Error
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, "users.missing", qerr.Member)
	})

	t.Run("empty group", func(t *testing.T) {
		f, _ := newTestFilterCompiler()

		_, err := f.CompileTree(&queryspec.Group{Kind: queryspec.And}, resolve)
		assert.True(t, queryspec.IsInvariantError(err))
	})
}

func TestFormatDates(t *testing.T) {
	tests := []struct {
		in       string
		wantFrom string
		wantTo   string
	}{
		{"2024-03-05", "2024-03-05T00:00:00.000", "2024-03-05T23:59:59.999"},
		{"2024-03-05T10:11:12Z", "2024-03-05T10:11:12.000", "2024-03-05T10:11:12.000"},
		{"2024-03-05T10:11:12+02:00", "2024-03-05T08:11:12.000", "2024-03-05T08:11:12.000"},
		{"2024-03-05 10:11:12.5", "2024-03-05T10:11:12.500", "2024-03-05T10:11:12.500"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			from, err := FormatFromDate(tt.in)
			require.NoError(t, err)
			to, err := FormatToDate(tt.in)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}

	_, err := FormatFromDate("03/05/2024")
	assert.True(t, queryspec.IsConfigurationError(err))
}

func TestValidateTimezone(t *testing.T) {
	for _, tz := range []string{"", "UTC", "America/New_York", "Etc/GMT+5"} {
		assert.NoError(t, ValidateTimezone(tz), tz)
	}
	for _, tz := range []string{"UTC'; DROP TABLE users; --", "Europe/Paris'", "1UTC"} {
		assert.True(t, queryspec.IsConfigurationError(ValidateTimezone(tz)), tz)
	}
}
