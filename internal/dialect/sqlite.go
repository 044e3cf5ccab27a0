package dialect

import (
	"fmt"
	"strings"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// NewSQLite returns the SQLite adapter. SQLite stores timestamps as ISO
// 8601 text, so truncation and interval arithmetic go through datetime()
// modifiers and every truncated value stays text-comparable.
func NewSQLite() *querysql.Dialect {
	return querysql.NewDialect(SQLite, querysql.WithHooks(func(h *querysql.Hooks) {
		h.TimeGroupedColumn = sqliteTrunc
		// No timezone database; values are expected in UTC.
		h.ConvertTz = func(expr, _ string) string { return expr }
		// Keep milliseconds, trimming a zero fraction so whole-second bounds
		// compare equal to values stored without one.
		h.DateTimeCast = func(value string) string {
			return fmt.Sprintf("rtrim(rtrim(strftime('%%Y-%%m-%%d %%H:%%M:%%f', %s), '0'), '.')", value)
		}
		h.TimeStampCast = h.DateTimeCast
		h.AddInterval = func(date string, iv queryspec.Interval) string {
			return fmt.Sprintf("datetime(%s, '%s')", date, sqliteModifier("+", iv))
		}
		h.SubtractInterval = func(date string, iv queryspec.Interval) string {
			return fmt.Sprintf("datetime(%s, '%s')", date, sqliteModifier("-", iv))
		}
		h.NowTimestamp = func() string { return "datetime('now')" }
		h.UnixTimestampSQL = func() string { return "CAST(strftime('%s', 'now') AS INTEGER)" }
		h.PaginationClause = func(limit *int64, offset int64) (string, error) {
			if limit == nil && offset > 0 {
				return fmt.Sprintf("LIMIT -1 OFFSET %d", offset), nil
			}
			return querysql.LimitOffset(limit, offset)
		}
	}))
}

func sqliteTrunc(g queryspec.Granularity, expr string) (string, error) {
	switch g {
	case queryspec.GranularitySecond:
		return fmt.Sprintf("strftime('%s', %s)", "%Y-%m-%d %H:%M:%S", expr), nil
	case queryspec.GranularityMinute:
		return fmt.Sprintf("strftime('%s', %s)", "%Y-%m-%d %H:%M:00", expr), nil
	case queryspec.GranularityHour:
		return fmt.Sprintf("strftime('%s', %s)", "%Y-%m-%d %H:00:00", expr), nil
	case queryspec.GranularityDay:
		return fmt.Sprintf("datetime(%s, 'start of day')", expr), nil
	case queryspec.GranularityWeek:
		return fmt.Sprintf("datetime(%s, 'start of day', '-6 days', 'weekday 1')", expr), nil
	case queryspec.GranularityMonth:
		return fmt.Sprintf("datetime(%s, 'start of month')", expr), nil
	case queryspec.GranularityQuarter:
		return fmt.Sprintf("datetime(%s, 'start of month', printf('-%s months', (CAST(strftime('%s', %s) AS INTEGER) - 1) %% 3))",
			expr, "%d", "%m", expr), nil
	case queryspec.GranularityYear:
		return fmt.Sprintf("datetime(%s, 'start of year')", expr), nil
	}
	return "", queryspec.NewConfigurationError("unknown granularity %q", g)
}

// sqliteModifier renders an interval as a datetime() modifier like
// "-7 days". Weeks and quarters have no modifier of their own.
func sqliteModifier(sign string, iv queryspec.Interval) string {
	count, unit := iv.Count, string(iv.Unit)
	switch iv.Unit {
	case queryspec.GranularityWeek:
		count, unit = count*7, string(queryspec.GranularityDay)
	case queryspec.GranularityQuarter:
		count, unit = count*3, string(queryspec.GranularityMonth)
	}
	return fmt.Sprintf("%s%d %ss", sign, count, strings.ToLower(unit))
}
