package querysql

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/cubesql/internal/queryspec"
)

// likeEscaper escapes LIKE wildcards with '!', which every supported engine
// accepts in an ESCAPE clause without string-literal backslash rules.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// FilterCompiler renders predicates into SQL text, allocating one parameter
// per bound value in left-to-right textual order.
//
// CRITICAL: Values are NEVER interpolated - always bound through the
// allocator.
type FilterCompiler struct {
	dialect *Dialect
	alloc   *ParamAllocator
	tz      string
}

// WithTimezone returns the compiler configured to convert time members to tz.
func (f *FilterCompiler) WithTimezone(tz string) *FilterCompiler {
	f.tz = tz
	return f
}

// Allocate binds value and returns its (possibly cast) placeholder.
func (f *FilterCompiler) Allocate(value any, t queryspec.ValueType) string {
	return f.dialect.hooks.CastParameter(f.alloc.Allocate(value), t)
}

// LikePattern binds value with LIKE wildcards escaped and returns the
// pattern expression, wrapped in '%' on the requested sides.
func (f *FilterCompiler) LikePattern(value any, leading, trailing bool) string {
	param := f.Allocate(likeEscaper.Replace(cast.ToString(value)), queryspec.TypeString)
	if !leading && !trailing {
		return param
	}
	parts := make([]string, 0, 3)
	if leading {
		parts = append(parts, "'%'")
	}
	parts = append(parts, param)
	if trailing {
		parts = append(parts, "'%'")
	}
	return f.dialect.hooks.Concat(parts...)
}

// Compile renders one leaf predicate.
//
// Negation semantics: for value-comparing operators the negated form is
// OR'ed with "<column> IS NULL", so a leaf and its negation select
// complementary row sets under SQL WHERE semantics.
func (f *FilterCompiler) Compile(m queryspec.Member, op queryspec.Operator, values []any, negated bool) (string, error) {
	column := m.SQL
	if op.IsDate() && m.Type == queryspec.TypeTime {
		column = f.dialect.hooks.ConvertTz(column, f.tz)
	}

	if op.TakesValues() && len(values) == 0 {
		return "", queryspec.NewMemberError(m.Name, "operator %s needs at least one value", op)
	}

	if op != queryspec.OpEquals && op != queryspec.OpIn {
		for _, v := range values {
			if v == nil {
				return "", queryspec.NewMemberError(m.Name, "operator %s does not accept null values", op)
			}
		}
	}

	switch op {
	case queryspec.OpEquals, queryspec.OpIn:
		return f.compileEquality(m, column, op, values, negated)

	case queryspec.OpGt, queryspec.OpGte, queryspec.OpLt, queryspec.OpLte:
		if len(values) != 1 {
			return "", queryspec.NewMemberError(m.Name, "operator %s takes exactly one value, got %d", op, len(values))
		}
		v, err := coerceValue(m, values[0])
		if err != nil {
			return "", err
		}
		base := fmt.Sprintf("%s %s %s", column, comparison(op), f.Allocate(v, m.Type))
		if negated {
			return fmt.Sprintf("(NOT (%s) OR %s IS NULL)", base, column), nil
		}
		return base, nil

	case queryspec.OpSet:
		if negated {
			return column + " IS NULL", nil
		}
		return column + " IS NOT NULL", nil

	case queryspec.OpContains, queryspec.OpStartsWith, queryspec.OpEndsWith:
		leading := op != queryspec.OpStartsWith
		trailing := op != queryspec.OpEndsWith
		return f.compileEach(column, values, negated, func(v any) (string, error) {
			return f.dialect.hooks.Like(f, column, v, leading, trailing, negated)
		})

	case queryspec.OpContainsIgnoreCase:
		return f.compileEach(column, values, negated, func(v any) (string, error) {
			return f.dialect.hooks.ContainsIgnoreCase(f, column, v, negated), nil
		})

	case queryspec.OpInDateRange:
		if len(values) != 2 {
			return "", queryspec.NewMemberError(m.Name, "operator %s takes exactly two values, got %d", op, len(values))
		}
		from, err := FormatFromDate(values[0])
		if err != nil {
			return "", err
		}
		to, err := FormatToDate(values[1])
		if err != nil {
			return "", err
		}
		lower := f.TimeStampParam(m, from)
		upper := f.TimeStampParam(m, to)
		if negated {
			return fmt.Sprintf("(%s < %s OR %s > %s OR %s IS NULL)", column, lower, column, upper, column), nil
		}
		return fmt.Sprintf("(%s >= %s AND %s <= %s)", column, lower, column, upper), nil

	case queryspec.OpBeforeDate, queryspec.OpAfterDate:
		if len(values) != 1 {
			return "", queryspec.NewMemberError(m.Name, "operator %s takes exactly one value, got %d", op, len(values))
		}
		d, err := FormatFromDate(values[0])
		if err != nil {
			return "", err
		}
		cmp, negCmp := "<", ">="
		if op == queryspec.OpAfterDate {
			cmp, negCmp = ">", "<="
		}
		param := f.TimeStampParam(m, d)
		if negated {
			return fmt.Sprintf("(%s %s %s OR %s IS NULL)", column, negCmp, param, column), nil
		}
		return fmt.Sprintf("%s %s %s", column, cmp, param), nil
	}

	return "", queryspec.NewMemberError(m.Name, "unsupported filter operator %q", op)
}

// compileEquality renders equals/in. A single equals value uses "=", any
// other shape uses IN. Null values match through IS NULL and are never
// bound, so a leaf and its negation stay complementary.
func (f *FilterCompiler) compileEquality(m queryspec.Member, column string, op queryspec.Operator, values []any, negated bool) (string, error) {
	var coerced []any
	withNull := false
	for _, v := range values {
		if v == nil {
			withNull = true
			continue
		}
		c, err := coerceValue(m, v)
		if err != nil {
			return "", err
		}
		coerced = append(coerced, c)
	}

	if len(coerced) == 0 {
		if negated {
			return column + " IS NOT NULL", nil
		}
		return column + " IS NULL", nil
	}

	var pos, neg string
	if op == queryspec.OpEquals && len(coerced) == 1 {
		param := f.Allocate(coerced[0], m.Type)
		pos = fmt.Sprintf("%s = %s", column, param)
		neg = fmt.Sprintf("%s <> %s", column, param)
	} else {
		params := make([]string, len(coerced))
		for i, v := range coerced {
			params[i] = f.Allocate(v, m.Type)
		}
		list := strings.Join(params, ", ")
		pos = fmt.Sprintf("%s IN (%s)", column, list)
		neg = fmt.Sprintf("%s NOT IN (%s)", column, list)
	}

	switch {
	case withNull && negated:
		return fmt.Sprintf("(%s AND %s IS NOT NULL)", neg, column), nil
	case withNull:
		return fmt.Sprintf("(%s OR %s IS NULL)", pos, column), nil
	case negated:
		return fmt.Sprintf("(%s OR %s IS NULL)", neg, column), nil
	}
	return pos, nil
}

// compileEach renders one predicate per value. Positive predicates are
// OR'ed (any value matches); negated ones are AND'ed and admit NULLs.
func (f *FilterCompiler) compileEach(column string, values []any, negated bool, render func(v any) (string, error)) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		part, err := render(v)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	if negated {
		return fmt.Sprintf("(%s OR %s IS NULL)", strings.Join(parts, " AND "), column), nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// TimeStampParam binds a serialized date. String-typed time members compare
// against the raw placeholder; native time columns go through TimeStampCast.
func (f *FilterCompiler) TimeStampParam(m queryspec.Member, value string) string {
	if m.Type == queryspec.TypeString {
		return f.Allocate(value, queryspec.TypeString)
	}
	return f.dialect.hooks.TimeStampCast(f.alloc.Allocate(value))
}

// CompileTree renders a filter tree. resolve maps member references to
// bindings and reports unresolved names as errors.
func (f *FilterCompiler) CompileTree(node queryspec.Filter, resolve func(name string) (queryspec.Member, error)) (string, error) {
	switch n := node.(type) {
	case *queryspec.Leaf:
		m, err := resolve(n.Member)
		if err != nil {
			return "", err
		}
		return f.Compile(m, n.Operator, n.Values, n.Negated)

	case *queryspec.Group:
		if len(n.Children) == 0 {
			return "", queryspec.NewInvariantError("empty %s group", n.Kind)
		}
		parts := make([]string, len(n.Children))
		for i, child := range n.Children {
			sql, err := f.CompileTree(child, resolve)
			if err != nil {
				return "", err
			}
			parts[i] = sql
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " "+string(n.Kind)+" ") + ")", nil
	}
	return "", queryspec.NewInvariantError("unsupported filter node type: %T", node)
}

// coerceValue converts filter values to the member's type. Numbers become
// int64 when integral so drivers bind them as integers.
func coerceValue(m queryspec.Member, v any) (any, error) {
	if v == nil {
		return nil, queryspec.NewMemberError(m.Name, "null can not be bound as a %s value", m.Type)
	}
	switch m.Type {
	case queryspec.TypeNumber:
		n, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, queryspec.NewMemberError(m.Name, "value %v is not a number", v)
		}
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), nil
		}
		return n, nil
	case queryspec.TypeBoolean:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, queryspec.NewMemberError(m.Name, "value %v is not a boolean", v)
		}
		return b, nil
	}
	return v, nil
}

func comparison(op queryspec.Operator) string {
	switch op {
	case queryspec.OpGt:
		return ">"
	case queryspec.OpGte:
		return ">="
	case queryspec.OpLt:
		return "<"
	}
	return "<="
}
