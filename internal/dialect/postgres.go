package dialect

import (
	"fmt"
	"strconv"

	"github.com/roach88/cubesql/internal/queryspec"
	"github.com/roach88/cubesql/internal/querysql"
)

// PostgresMaxIdentifierLength is NAMEDATALEN - 1.
const PostgresMaxIdentifierLength = 63

// NewPostgres returns the PostgreSQL adapter.
func NewPostgres() *querysql.Dialect {
	return querysql.NewDialect(Postgres,
		querysql.WithMaxIdentifierLength(PostgresMaxIdentifierLength),
		querysql.WithHooks(func(h *querysql.Hooks) {
			h.TimeGroupedColumn = func(g queryspec.Granularity, expr string) (string, error) {
				if !g.Valid() {
					return "", queryspec.NewConfigurationError("unknown granularity %q", g)
				}
				return fmt.Sprintf("date_trunc('%s', %s)", g, expr), nil
			}
			h.DateTimeCast = func(value string) string {
				return value + "::timestamp"
			}
			h.TimeStampCast = h.DateTimeCast
			h.Placeholder = func(i int) string {
				return "$" + strconv.Itoa(i)
			}
			// Untyped parameters inside || cannot be inferred.
			h.CastParameter = func(placeholder string, t queryspec.ValueType) string {
				if t == queryspec.TypeString {
					return placeholder + "::text"
				}
				return placeholder
			}
			h.ContainsIgnoreCase = func(f *querysql.FilterCompiler, column string, value any, not bool) string {
				return fmt.Sprintf("%s%s ILIKE %s ESCAPE '!'", column, querysql.NotKeyword(not), f.LikePattern(value, true, true))
			}
		}))
}
