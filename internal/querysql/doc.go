// Package querysql compiles a queryspec.QuerySpec to parameterized SQL for
// one target dialect.
//
// ARCHITECTURE:
//
// One shared Compiler assembles every statement. Dialects differ only in a
// table of hooks (see Hooks): truncation, interval arithmetic, casts,
// pagination, quoting, grouping strategy and identifier limits. A Dialect is
// DefaultHooks with named overrides layered on at construction time, so an
// adapter with no overrides still emits ANSI SQL.
//
// Statement Assembly:
// 1. SELECT - dimensions, truncated time dimensions, measures
// 2. FROM / JOIN - aliasing token chosen by the dialect
// 3. WHERE - dimension filters, date ranges, segments (omitted when empty)
// 4. GROUP BY - omitted when nothing is grouped or the query is ungrouped
// 5. HAVING - measure filters
// 6. ORDER BY - explicit entries or the default order
// 7. Pagination - nil limit omits it, zero renders an empty result
//
// CRITICAL PATTERNS:
//
// Parameterization:
// Filter values are NEVER interpolated. Every value goes through the single
// ParamAllocator of the compilation, in the order its placeholder appears.
//
// Negation:
// A negated leaf selects exactly the rows its positive form rejects,
// including rows where the column is NULL.
//
// Identifier Limits:
// Aliases and pre-aggregation table names longer than the dialect's ceiling
// fail with a CONFIGURATION error. They are never truncated.
package querysql
