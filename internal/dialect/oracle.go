package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// OracleMaxIdentifierLength is the identifier ceiling of Oracle 12.2+.
const OracleMaxIdentifierLength = 128

// oracleTimestampFormat parses querysql.TimestampLayout.
const oracleTimestampFormat = `'YYYY-MM-DD"T"HH24:MI:SS.FF3'`

// NewOracle returns the Oracle adapter.
//
// Oracle has no LIMIT keyword, rejects AS before table aliases and cannot
// group by ordinal.
func NewOracle() *querysql.Dialect {
	return querysql.NewDialect(Oracle,
		querysql.WithMaxIdentifierLength(OracleMaxIdentifierLength),
		querysql.WithHooks(func(h *querysql.Hooks) {
			h.TimeGroupedColumn = oracleTrunc
			h.ConvertTz = func(expr, tz string) string {
				if querysql.IsUTC(tz) {
					return expr
				}
				return fmt.Sprintf("(FROM_TZ(CAST(%s AS TIMESTAMP), 'UTC') AT TIME ZONE '%s')", expr, tz)
			}
			h.DateTimeCast = func(value string) string {
				return fmt.Sprintf("TO_TIMESTAMP(%s, %s)", value, oracleTimestampFormat)
			}
			h.TimeStampCast = h.DateTimeCast
			h.AddInterval = func(date string, iv queryspec.Interval) string {
				return fmt.Sprintf("(%s + %s)", date, oracleInterval(iv))
			}
			h.SubtractInterval = func(date string, iv queryspec.Interval) string {
				return fmt.Sprintf("(%s - %s)", date, oracleInterval(iv))
			}
			h.UnixTimestampSQL = func() string {
				return "((CAST(SYSTIMESTAMP AT TIME ZONE 'UTC' AS DATE) - DATE '1970-01-01') * 86400)"
			}
			h.GroupByClause = querysql.GroupByExpressions
			h.PaginationClause = oraclePagination
			h.AliasSyntaxTable = func() string { return "" }
			h.AliasSyntaxJoin = func() string { return "" }
			h.SelectExpression = func(expr string) string {
				return "SELECT " + expr + " FROM DUAL"
			}
			h.Placeholder = func(i int) string {
				return ":" + strconv.Itoa(i)
			}
			h.ContainsIgnoreCase = func(f *querysql.FilterCompiler, column string, value any, not bool) string {
				return fmt.Sprintf("UPPER(%s)%s LIKE UPPER(%s) ESCAPE '!'", column, querysql.NotKeyword(not), f.LikePattern(value, true, true))
			}
		}))
}

// oracleTrunc truncates with TRUNC format models. TRUNC has no seconds
// model; casting a TIMESTAMP to DATE drops fractional seconds instead.
func oracleTrunc(g queryspec.Granularity, expr string) (string, error) {
	var model string
	switch g {
	case queryspec.GranularitySecond:
		return fmt.Sprintf("CAST(%s AS DATE)", expr), nil
	case queryspec.GranularityMinute:
		model = "MI"
	case queryspec.GranularityHour:
		model = "HH24"
	case queryspec.GranularityDay:
		model = "DD"
	case queryspec.GranularityWeek:
		model = "IW"
	case queryspec.GranularityMonth:
		model = "MM"
	case queryspec.GranularityQuarter:
		model = "Q"
	case queryspec.GranularityYear:
		model = "YYYY"
	default:
		return "", queryspec.NewConfigurationError("unknown granularity %q", g)
	}
	return fmt.Sprintf("TRUNC(%s, '%s')", expr, model), nil
}

func oracleInterval(iv queryspec.Interval) string {
	switch iv.Unit {
	case queryspec.GranularityWeek:
		return fmt.Sprintf("NUMTODSINTERVAL(%d, 'DAY')", iv.Count*7)
	case queryspec.GranularityMonth:
		return fmt.Sprintf("NUMTOYMINTERVAL(%d, 'MONTH')", iv.Count)
	case queryspec.GranularityQuarter:
		return fmt.Sprintf("NUMTOYMINTERVAL(%d, 'MONTH')", iv.Count*3)
	case queryspec.GranularityYear:
		return fmt.Sprintf("NUMTOYMINTERVAL(%d, 'YEAR')", iv.Count)
	}
	return fmt.Sprintf("NUMTODSINTERVAL(%d, '%s')", iv.Count, strings.ToUpper(string(iv.Unit)))
}

// oraclePagination renders OFFSET .. ROWS FETCH NEXT .. ROWS ONLY. An
// explicit zero limit fetches zero rows.
func oraclePagination(limit *int64, offset int64) (string, error) {
	var parts []string
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d ROWS", offset))
	}
	if limit != nil {
		parts = append(parts, fmt.Sprintf("FETCH NEXT %d ROWS ONLY", *limit))
	}
	return strings.Join(parts, " "), nil
}
