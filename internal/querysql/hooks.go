package querysql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/cubesql/internal/queryspec"
)

// SelectColumn is one column of the SELECT list.
type SelectColumn struct {
	Member      string               // Member reference that produced the column
	Kind        queryspec.MemberKind // dimension or measure
	SQL         string               // Final expression (truncated for time dimensions)
	Alias       string               // Unescaped alias
	QuotedAlias string               // Alias passed through EscapeIdentifier
	Ordinal     int                  // 1-based position in the SELECT list
	Granularity queryspec.Granularity
}

// Grouping is the input of the GroupByClause hook.
type Grouping struct {
	// Ungrouped mirrors QuerySpec.Ungrouped.
	Ungrouped bool

	// Columns are the selected dimension and time-dimension columns.
	Columns []SelectColumn
}

// Hooks is the table of operations where SQL dialects diverge.
//
// DefaultHooks returns a complete table targeting a reasonably ANSI engine.
// A dialect layers overrides onto it at construction time (see NewDialect).
// Overrides that need the previous behaviour capture it before replacing it:
//
//	WithHooks(func(h *Hooks) {
//	    base := h.EscapeIdentifier
//	    h.EscapeIdentifier = func(name string) string { return strings.ToUpper(base(name)) }
//	})
//
// AddInterval and SubtractInterval may be set to nil: the dialect then has
// no interval arithmetic and queries needing it fail with
// UNSUPPORTED_FEATURE.
type Hooks struct {
	// TimeGroupedColumn truncates expr to the granularity. Must be idempotent
	// and keep a timestamp-comparable type.
	TimeGroupedColumn func(g queryspec.Granularity, expr string) (string, error)

	// ConvertTz normalizes expr to the query timezone. tz is already validated.
	ConvertTz func(expr, tz string) string

	// DateTimeCast and TimeStampCast reinterpret a placeholder or literal as a
	// native timestamp. Values are serialized as 2006-01-02T15:04:05.000.
	DateTimeCast  func(value string) string
	TimeStampCast func(value string) string

	AddInterval      func(date string, iv queryspec.Interval) string
	SubtractInterval func(date string, iv queryspec.Interval) string

	// NowTimestamp returns the engine's current timestamp expression.
	NowTimestamp func() string

	// UnixTimestampSQL returns current seconds since epoch.
	UnixTimestampSQL func() string

	// GroupByClause renders "GROUP BY ..." or "" when there is nothing to
	// group or grouping is suppressed.
	GroupByClause func(g Grouping) string

	// PaginationClause renders pagination. limit nil means unlimited and
	// must not be confused with an explicit 0.
	PaginationClause func(limit *int64, offset int64) (string, error)

	// AliasSyntaxTable and AliasSyntaxJoin return the token between a
	// relation and its alias ("AS" or "").
	AliasSyntaxTable func() string
	AliasSyntaxJoin  func() string

	EscapeIdentifier func(name string) string

	// PreAggregationTableName derives a physical rollup table name. The
	// identifier ceiling is enforced by Dialect.PreAggregationTableName.
	PreAggregationTableName func(schema, cube, name string, skipSchema bool) string

	// SelectExpression wraps a scalar expression into a standalone SELECT.
	SelectExpression func(expr string) string

	// Placeholder renders the token for the index-th (1-based) parameter.
	Placeholder func(index int) string

	// CastParameter wraps a filter placeholder when the bind syntax needs
	// explicit typing.
	CastParameter func(placeholder string, t queryspec.ValueType) string

	// Concat concatenates string expressions.
	Concat func(parts ...string) string

	// Like renders "column [NOT] LIKE pattern" for contains, starts_with
	// and ends_with. The value is matched literally, wrapped in wildcards on
	// the leading and trailing sides. It must allocate exactly one parameter.
	Like func(f *FilterCompiler, column string, value any, leading, trailing, not bool) (string, error)

	// ContainsIgnoreCase renders "column case-insensitively contains value",
	// negated when not is true. It must allocate exactly one parameter.
	ContainsIgnoreCase func(f *FilterCompiler, column string, value any, not bool) string

	// OrderByColumn renders the ORDER BY reference for a selected column.
	OrderByColumn func(c SelectColumn) string

	// MatchMember reports whether a requested member name refers to name.
	MatchMember func(requested, name string) bool
}

// DefaultHooks returns the ANSI hook table. Every hook has a safe default.
func DefaultHooks() Hooks {
	return Hooks{
		TimeGroupedColumn: func(g queryspec.Granularity, expr string) (string, error) {
			if !g.Valid() {
				return "", queryspec.NewConfigurationError("unknown granularity %q", g)
			}
			return fmt.Sprintf("DATE_TRUNC('%s', %s)", g, expr), nil
		},
		ConvertTz: func(expr, tz string) string {
			if IsUTC(tz) {
				return expr
			}
			return fmt.Sprintf("(%s AT TIME ZONE '%s')", expr, tz)
		},
		DateTimeCast: func(value string) string {
			return fmt.Sprintf("CAST(%s AS TIMESTAMP)", value)
		},
		TimeStampCast: func(value string) string {
			return fmt.Sprintf("CAST(%s AS TIMESTAMP)", value)
		},
		AddInterval: func(date string, iv queryspec.Interval) string {
			return fmt.Sprintf("(%s + INTERVAL '%s')", date, iv)
		},
		SubtractInterval: func(date string, iv queryspec.Interval) string {
			return fmt.Sprintf("(%s - INTERVAL '%s')", date, iv)
		},
		NowTimestamp: func() string {
			return "CURRENT_TIMESTAMP"
		},
		UnixTimestampSQL: func() string {
			return "EXTRACT(EPOCH FROM CURRENT_TIMESTAMP)"
		},
		GroupByClause:    GroupByOrdinals,
		PaginationClause: LimitOffset,
		AliasSyntaxTable: func() string { return "AS" },
		AliasSyntaxJoin:  func() string { return "AS" },
		EscapeIdentifier: func(name string) string {
			return QuoteIdentifier(name, '"')
		},
		PreAggregationTableName: func(schema, cube, name string, skipSchema bool) string {
			table := SnakeCase(cube + "_" + name)
			if skipSchema || schema == "" {
				return table
			}
			return schema + "." + table
		},
		SelectExpression: func(expr string) string {
			return "SELECT " + expr
		},
		Placeholder: questionMark,
		CastParameter: func(placeholder string, _ queryspec.ValueType) string {
			return placeholder
		},
		Concat: func(parts ...string) string {
			return strings.Join(parts, " || ")
		},
		Like: func(f *FilterCompiler, column string, value any, leading, trailing, not bool) (string, error) {
			return fmt.Sprintf("%s%s LIKE %s ESCAPE '!'", column, NotKeyword(not), f.LikePattern(value, leading, trailing)), nil
		},
		ContainsIgnoreCase: func(f *FilterCompiler, column string, value any, not bool) string {
			return fmt.Sprintf("LOWER(%s)%s LIKE LOWER(%s) ESCAPE '!'", column, NotKeyword(not), f.LikePattern(value, true, true))
		},
		OrderByColumn: func(c SelectColumn) string {
			return c.QuotedAlias
		},
		MatchMember: func(requested, name string) bool {
			return requested == name
		},
	}
}

// GroupByOrdinals groups by SELECT-list positions.
func GroupByOrdinals(g Grouping) string {
	if g.Ungrouped || len(g.Columns) == 0 {
		return ""
	}
	parts := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		parts[i] = strconv.Itoa(c.Ordinal)
	}
	return "GROUP BY " + strings.Join(parts, ", ")
}

// GroupByExpressions groups by re-emitting the column expressions, for
// engines without ordinal grouping.
func GroupByExpressions(g Grouping) string {
	if g.Ungrouped || len(g.Columns) == 0 {
		return ""
	}
	parts := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		parts[i] = c.SQL
	}
	return "GROUP BY " + strings.Join(parts, ", ")
}

// LimitOffset renders "LIMIT n OFFSET m". A nil limit omits LIMIT; a zero
// limit is rendered as LIMIT 0.
func LimitOffset(limit *int64, offset int64) (string, error) {
	var parts []string
	if limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " "), nil
}

// QuoteIdentifier wraps name in q, doubling embedded quote characters.
func QuoteIdentifier(name string, q byte) string {
	escaped := strings.ReplaceAll(name, string(q), string(q)+string(q))
	return string(q) + escaped + string(q)
}

// IsUTC reports whether tz requires no conversion.
func IsUTC(tz string) bool {
	switch strings.ToUpper(tz) {
	case "", "UTC", "ETC/UTC", "GMT", "Z":
		return true
	}
	return false
}

// SnakeCase converts "OrdersByDay" / "orders.byDay" to "orders_by_day".
func SnakeCase(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case r == '.' || r == '-' || r == ' ':
			b.WriteByte('_')
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}

// NotKeyword returns " NOT" when not is true.
func NotKeyword(not bool) string {
	if not {
		return " NOT"
	}
	return ""
}
