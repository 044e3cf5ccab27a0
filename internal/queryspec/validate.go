package queryspec

import (
	"fmt"
	"regexp"
	"strings"
)

// identPattern matches relation aliases that are safe to emit unquoted.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsPlainIdentifier reports whether s can be emitted as an unquoted alias.
func IsPlainIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// Validate checks the structural shape of a QuerySpec.
//
// Shape problems are programmer errors in the upstream resolver (a nil
// child, an empty group, a negative offset). They are reported as a
// single INVARIANT error listing every problem found. Whether members
// resolve is NOT checked here; that is a configuration concern raised
// during compilation.
//
// Validate is a pure function with no side effects.
func Validate(spec QuerySpec) error {
	v := &validator{}
	v.validate(spec)
	if len(v.problems) == 0 {
		return nil
	}
	return NewInvariantError("malformed query spec: %s", strings.Join(v.problems, "; "))
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate(spec QuerySpec) {
	if spec.Members == nil {
		v.addProblem("members catalog is nil")
	}
	if spec.RowLimit != nil && *spec.RowLimit < 0 {
		v.addProblem("row limit %d is negative", *spec.RowLimit)
	}
	if spec.Offset < 0 {
		v.addProblem("offset %d is negative", spec.Offset)
	}
	if strings.TrimSpace(spec.Source.SQL) == "" {
		v.addProblem("source relation is empty")
	}
	v.validateAlias("source", spec.Source.Alias)

	for i, j := range spec.Joins {
		if strings.TrimSpace(j.Source.SQL) == "" {
			v.addProblem("join[%d] relation is empty", i)
		}
		if strings.TrimSpace(j.On) == "" {
			v.addProblem("join[%d] has no ON condition", i)
		}
		switch j.Kind {
		case JoinInner, JoinLeft, "":
		default:
			v.addProblem("join[%d] has unknown kind %q", i, j.Kind)
		}
		v.validateAlias(fmt.Sprintf("join[%d]", i), j.Source.Alias)
	}

	for i, m := range spec.Measures {
		if m.Member == "" {
			v.addProblem("measure[%d] has no member", i)
		}
		if m.Filter != nil {
			v.validateFilter(m.Filter, fmt.Sprintf("measure[%d].filter", i))
		}
	}
	for i, d := range spec.Dimensions {
		if d == "" {
			v.addProblem("dimension[%d] is empty", i)
		}
	}
	for i, td := range spec.TimeDimensions {
		if td.Member == "" {
			v.addProblem("time_dimension[%d] has no member", i)
		}
		if td.DateRange != nil {
			r := td.DateRange
			absolute := r.From != "" || r.To != ""
			switch {
			case absolute && r.Last != "":
				v.addProblem("time_dimension[%d] date range mixes absolute and relative bounds", i)
			case absolute && (r.From == "" || r.To == ""):
				v.addProblem("time_dimension[%d] date range needs both from and to", i)
			case r.IsZero():
				v.addProblem("time_dimension[%d] date range is empty", i)
			}
		}
	}
	for i, s := range spec.Segments {
		if s == "" {
			v.addProblem("segment[%d] is empty", i)
		}
	}
	for i, o := range spec.Order {
		if o.Member == "" {
			v.addProblem("order[%d] has no member", i)
		}
	}
	if spec.Filter != nil {
		v.validateFilter(spec.Filter, "filter")
	}
}

func (v *validator) validateAlias(where, alias string) {
	if alias != "" && !IsPlainIdentifier(alias) {
		v.addProblem("%s alias %q is not a plain identifier", where, alias)
	}
}

// validateFilter recursively validates a filter node.
func (v *validator) validateFilter(f Filter, path string) {
	switch node := f.(type) {
	case *Leaf:
		if node == nil {
			v.addProblem("%s is a nil leaf", path)
			return
		}
		if node.Member == "" {
			v.addProblem("%s has no member", path)
		}
		if node.Operator.TakesValues() && len(node.Values) == 0 {
			v.addProblem("%s operator %s needs at least one value", path, node.Operator)
		}
	case *Group:
		if node == nil {
			v.addProblem("%s is a nil group", path)
			return
		}
		if node.Kind != And && node.Kind != Or {
			v.addProblem("%s has unknown combinator %q", path, node.Kind)
		}
		if len(node.Children) == 0 {
			v.addProblem("%s is an empty %s group", path, node.Kind)
		}
		for i, c := range node.Children {
			v.validateFilter(c, fmt.Sprintf("%s.%d", path, i))
		}
	case nil:
		v.addProblem("%s is nil", path)
	default:
		v.addProblem("%s has unknown node type %T", path, f)
	}
}
