package dialect

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"golang.org/x/text/cases"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// NewElasticsearch returns the Elasticsearch SQL adapter.
//
// Elasticsearch SQL has no interval arithmetic and no OFFSET, does not
// group by ordinal, and matches member names case-insensitively. Columns
// are emitted unescaped.
func NewElasticsearch() *querysql.Dialect {
	return querysql.NewDialect(Elasticsearch, querysql.WithHooks(func(h *querysql.Hooks) {
		h.TimeGroupedColumn = func(g queryspec.Granularity, expr string) (string, error) {
			if !g.Valid() {
				return "", queryspec.NewConfigurationError("unknown granularity %q", g)
			}
			return fmt.Sprintf("DATE_TRUNC('%s', %s::datetime)", g, expr), nil
		}
		h.ConvertTz = func(expr, _ string) string { return expr }
		h.DateTimeCast = func(value string) string { return value }
		h.TimeStampCast = func(value string) string { return value }
		h.AddInterval = nil
		h.SubtractInterval = nil
		h.UnixTimestampSQL = func() string {
			return "TIMESTAMP_DIFF('seconds', '1970-01-01T00:00:00.000Z'::datetime, CURRENT_TIMESTAMP())"
		}
		h.GroupByClause = querysql.GroupByExpressions
		h.PaginationClause = func(limit *int64, offset int64) (string, error) {
			if offset > 0 {
				return "", queryspec.NewUnsupportedError(Elasticsearch, "OFFSET")
			}
			return querysql.LimitOffset(limit, 0)
		}
		h.EscapeIdentifier = func(name string) string { return name }
		// The LIKE pattern has to be a constant. Request parameters are
		// substituted as literals before analysis, so the whole pattern is
		// bound as one value; there is no escape clause for wildcards.
		h.Like = func(f *querysql.FilterCompiler, column string, value any, leading, trailing, not bool) (string, error) {
			s := cast.ToString(value)
			if strings.ContainsAny(s, "%_") {
				return "", queryspec.NewUnsupportedError(Elasticsearch, "LIKE on a value containing % or _")
			}
			if leading {
				s = "%" + s
			}
			if trailing {
				s += "%"
			}
			return fmt.Sprintf("%s%s LIKE %s", column, querysql.NotKeyword(not), f.Allocate(s, queryspec.TypeString)), nil
		}
		h.ContainsIgnoreCase = func(f *querysql.FilterCompiler, column string, value any, not bool) string {
			prefix := ""
			if not {
				prefix = "NOT "
			}
			return fmt.Sprintf("%sMATCH(%s, %s, 'fuzziness=AUTO:1,5')", prefix, column, f.Allocate(value, queryspec.TypeString))
		}
		h.OrderByColumn = func(c querysql.SelectColumn) string {
			if c.Kind == queryspec.KindDimension {
				return c.SQL
			}
			return c.QuotedAlias
		}
		h.MatchMember = func(requested, name string) bool {
			fold := cases.Fold()
			return fold.String(requested) == fold.String(name)
		}
	}))
}
