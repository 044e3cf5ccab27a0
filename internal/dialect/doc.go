// Package dialect provides the built-in SQL adapters for package querysql.
//
// Each adapter is querysql.DefaultHooks with only the divergent hooks
// overridden:
//
//	ansi           no overrides
//	elasticsearch  DATE_TRUNC on ::datetime, fuzzy MATCH, no escaping,
//	               no interval arithmetic, no OFFSET
//	mysql          backticks, DATE_FORMAT truncation, CONCAT, DATE_ADD
//	oracle         TRUNC, :n binds, OFFSET/FETCH, no table AS,
//	               expression grouping, 128 character identifiers
//	postgres       $n binds, date_trunc, ILIKE, 63 character identifiers
//	sqlite         datetime() modifiers, strftime truncation
//
// Use Get to look an adapter up by name or alias.
package dialect
