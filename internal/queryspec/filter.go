package queryspec

import "strings"

// Filter is a node in a filter tree.
//
// This is a sealed interface - only *Leaf and *Group implement it, so the
// filter compiler can switch over node types exhaustively.
type Filter interface {
	filterNode()
}

// Operator is a leaf predicate operator. Negated spellings ("not_equals",
// "notContains", ...) are not operators of their own; ParseOperator folds
// them into the base operator plus a negation flag.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpGt                 Operator = "gt"
	OpGte                Operator = "gte"
	OpLt                 Operator = "lt"
	OpLte                Operator = "lte"
	OpIn                 Operator = "in"
	OpSet                Operator = "set"
	OpContains           Operator = "contains"
	OpContainsIgnoreCase Operator = "contains_ignore_case"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpInDateRange        Operator = "in_date_range"
	OpBeforeDate         Operator = "before_date"
	OpAfterDate          Operator = "after_date"
)

var operators = map[string]Operator{
	"equals":               OpEquals,
	"gt":                   OpGt,
	"gte":                  OpGte,
	"lt":                   OpLt,
	"lte":                  OpLte,
	"in":                   OpIn,
	"set":                  OpSet,
	"contains":             OpContains,
	"contains_ignore_case": OpContainsIgnoreCase,
	"starts_with":          OpStartsWith,
	"ends_with":            OpEndsWith,
	"in_date_range":        OpInDateRange,
	"before_date":          OpBeforeDate,
	"after_date":           OpAfterDate,
}

// ParseOperator resolves an operator name, accepting snake_case and
// camelCase spellings and the "not" prefix. It returns the base operator
// and whether the name itself implies negation.
func ParseOperator(name string) (Operator, bool, error) {
	key := normalizeOperatorName(name)
	negated := false
	if rest, ok := strings.CutPrefix(key, "not_"); ok {
		key, negated = rest, true
	}
	if key == "equal" {
		key = "equals"
	}
	op, ok := operators[key]
	if !ok {
		return "", false, NewConfigurationError("unknown filter operator %q", name)
	}
	return op, negated, nil
}

// normalizeOperatorName converts camelCase to snake_case.
func normalizeOperatorName(name string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(name) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TakesValues reports whether the operator binds at least one value.
func (op Operator) TakesValues() bool {
	return op != OpSet
}

// IsDate reports whether the operator compares against date literals.
func (op Operator) IsDate() bool {
	switch op {
	case OpInDateRange, OpBeforeDate, OpAfterDate:
		return true
	}
	return false
}

// Leaf is a single predicate over one member.
//
// Example:
//
//	&Leaf{Member: "orders.status", Operator: OpEquals, Values: []any{"shipped"}}
//
// compiles (default dialect) to:
//
//	orders.status = ?
type Leaf struct {
	Member   string
	Operator Operator
	Values   []any
	Negated  bool
}

func (*Leaf) filterNode() {}

// GroupKind is the boolean combinator of a Group.
type GroupKind string

const (
	And GroupKind = "AND"
	Or  GroupKind = "OR"
)

// Group combines children with AND or OR. An empty Group is a malformed
// shape and is rejected by Validate.
type Group struct {
	Kind     GroupKind
	Children []Filter
}

func (*Group) filterNode() {}

// NewAnd returns an AND group of the given children.
func NewAnd(children ...Filter) *Group {
	return &Group{Kind: And, Children: children}
}

// NewOr returns an OR group of the given children.
func NewOr(children ...Filter) *Group {
	return &Group{Kind: Or, Children: children}
}

// Leaves returns every leaf under f in left-to-right order.
func Leaves(f Filter) []*Leaf {
	var out []*Leaf
	var walk func(Filter)
	walk = func(n Filter) {
		switch node := n.(type) {
		case *Leaf:
			out = append(out, node)
		case *Group:
			for _, c := range node.Children {
				walk(c)
			}
		}
	}
	if f != nil {
		walk(f)
	}
	return out
}
