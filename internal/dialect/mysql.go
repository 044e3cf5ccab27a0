package dialect

import (
	"fmt"
	"strings"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// MySQLMaxIdentifierLength is the MySQL column alias limit.
const MySQLMaxIdentifierLength = 64

// mysqlMaxRows is the documented way to express OFFSET without LIMIT.
const mysqlMaxRows = "18446744073709551615"

var mysqlTruncFormats = map[queryspec.Granularity]string{
	queryspec.GranularitySecond: "%Y-%m-%d %H:%i:%s",
	queryspec.GranularityMinute: "%Y-%m-%d %H:%i:00",
	queryspec.GranularityHour:   "%Y-%m-%d %H:00:00",
	queryspec.GranularityDay:    "%Y-%m-%d 00:00:00",
	queryspec.GranularityMonth:  "%Y-%m-01 00:00:00",
	queryspec.GranularityYear:   "%Y-01-01 00:00:00",
}

// NewMySQL returns the MySQL adapter.
func NewMySQL() *querysql.Dialect {
	return querysql.NewDialect(MySQL,
		querysql.WithMaxIdentifierLength(MySQLMaxIdentifierLength),
		querysql.WithHooks(func(h *querysql.Hooks) {
			h.TimeGroupedColumn = mysqlTrunc
			h.ConvertTz = func(expr, tz string) string {
				if querysql.IsUTC(tz) {
					return expr
				}
				return fmt.Sprintf("CONVERT_TZ(%s, '+00:00', '%s')", expr, tz)
			}
			h.DateTimeCast = func(value string) string {
				return fmt.Sprintf("TIMESTAMP(%s)", value)
			}
			h.TimeStampCast = h.DateTimeCast
			h.AddInterval = func(date string, iv queryspec.Interval) string {
				return fmt.Sprintf("DATE_ADD(%s, INTERVAL %d %s)", date, iv.Count, strings.ToUpper(string(iv.Unit)))
			}
			h.SubtractInterval = func(date string, iv queryspec.Interval) string {
				return fmt.Sprintf("DATE_SUB(%s, INTERVAL %d %s)", date, iv.Count, strings.ToUpper(string(iv.Unit)))
			}
			h.UnixTimestampSQL = func() string { return "UNIX_TIMESTAMP()" }
			h.PaginationClause = func(limit *int64, offset int64) (string, error) {
				if limit == nil && offset > 0 {
					return fmt.Sprintf("LIMIT %s OFFSET %d", mysqlMaxRows, offset), nil
				}
				return querysql.LimitOffset(limit, offset)
			}
			h.EscapeIdentifier = func(name string) string {
				return querysql.QuoteIdentifier(name, '`')
			}
			h.Concat = func(parts ...string) string {
				return "CONCAT(" + strings.Join(parts, ", ") + ")"
			}
		}))
}

func mysqlTrunc(g queryspec.Granularity, expr string) (string, error) {
	switch g {
	case queryspec.GranularityWeek:
		return fmt.Sprintf("CAST(DATE_FORMAT(DATE_SUB(%s, INTERVAL WEEKDAY(%s) DAY), '%s') AS DATETIME)",
			expr, expr, mysqlTruncFormats[queryspec.GranularityDay]), nil
	case queryspec.GranularityQuarter:
		return fmt.Sprintf("CAST(MAKEDATE(YEAR(%s), 1) + INTERVAL (QUARTER(%s) - 1) QUARTER AS DATETIME)", expr, expr), nil
	}
	format, ok := mysqlTruncFormats[g]
	if !ok {
		return "", queryspec.NewConfigurationError("unknown granularity %q", g)
	}
	return fmt.Sprintf("CAST(DATE_FORMAT(%s, '%s') AS DATETIME)", expr, format), nil
}
