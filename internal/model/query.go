package model

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cubesql/internal/queryspec"
)

// Query is a query file as written by users, before member resolution.
//
// Queries are YAML (or JSON, which parses as YAML):
//
//	measures: [orders.count]
//	dimensions: [orders.status]
//	timeDimensions:
//	  - dimension: orders.created_at
//	    granularity: month
//	    dateRange: [2024-01-01, 2024-03-31]
//	filters:
//	  - member: orders.status
//	    operator: notEquals
//	    values: [cancelled]
//	order:
//	  orders.count: desc
//	limit: 50
type Query struct {
	Measures       []MeasureEntry      `yaml:"measures"`
	Dimensions     []string            `yaml:"dimensions"`
	TimeDimensions []TimeDimensionItem `yaml:"timeDimensions"`
	Filters        []FilterNode        `yaml:"filters"`
	Segments       []string            `yaml:"segments"`
	Order          OrderList           `yaml:"order"`
	Limit          any                 `yaml:"limit"`
	Offset         any                 `yaml:"offset"`
	Timezone       string              `yaml:"timezone"`
	Ungrouped      bool                `yaml:"ungrouped"`
}

// MeasureEntry is a measure name, or a mapping with a measure-level filter:
//
//	- orders.count
//	- member: orders.total
//	  filters: [{member: orders.total, operator: gt, values: [100]}]
type MeasureEntry struct {
	Member  string
	Filters []FilterNode
}

func (m *MeasureEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Member = node.Value
		return nil
	}
	var raw struct {
		Member  string       `yaml:"member"`
		Filters []FilterNode `yaml:"filters"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	m.Member, m.Filters = raw.Member, raw.Filters
	return nil
}

// TimeDimensionItem selects a time dimension.
type TimeDimensionItem struct {
	Dimension   string     `yaml:"dimension"`
	Granularity string     `yaml:"granularity"`
	DateRange   *DateRange `yaml:"dateRange"`
}

// DateRange is either a two-element [from, to] list or a relative string
// such as "last 7 days".
type DateRange struct {
	From string
	To   string
	Last string
}

func (r *DateRange) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		last := strings.TrimSpace(node.Value)
		if rest, ok := strings.CutPrefix(strings.ToLower(last), "last "); ok {
			last = strings.TrimSpace(rest)
		}
		r.Last = last
		return nil
	case yaml.SequenceNode:
		var bounds []string
		if err := node.Decode(&bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return fmt.Errorf("line %d: dateRange needs exactly two bounds, got %d", node.Line, len(bounds))
		}
		r.From, r.To = bounds[0], bounds[1]
		return nil
	}
	return fmt.Errorf("line %d: dateRange must be a list or a string", node.Line)
}

// FilterNode is a leaf predicate or an and/or group.
type FilterNode struct {
	Member    string       `yaml:"member"`
	Dimension string       `yaml:"dimension"`
	Operator  string       `yaml:"operator"`
	Values    []any        `yaml:"values"`
	Value     any          `yaml:"value"`
	And       []FilterNode `yaml:"and"`
	Or        []FilterNode `yaml:"or"`
}

// OrderItem orders by one member.
type OrderItem struct {
	Member string
	Desc   bool
}

// OrderList keeps the written order of an order mapping
// ({member: asc|desc}) or a list of [member, direction] pairs.
type OrderList []OrderItem

func (o *OrderList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			item, err := orderItem(node.Content[i].Value, node.Content[i+1].Value, node.Line)
			if err != nil {
				return err
			}
			*o = append(*o, item)
		}
		return nil
	case yaml.SequenceNode:
		for _, entry := range node.Content {
			var pair []string
			if err := entry.Decode(&pair); err != nil {
				return err
			}
			if len(pair) != 2 {
				return fmt.Errorf("line %d: order entries are [member, direction] pairs", entry.Line)
			}
			item, err := orderItem(pair[0], pair[1], entry.Line)
			if err != nil {
				return err
			}
			*o = append(*o, item)
		}
		return nil
	}
	return fmt.Errorf("line %d: order must be a mapping or a list", node.Line)
}

func orderItem(member, direction string, line int) (OrderItem, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "asc":
		return OrderItem{Member: member}, nil
	case "desc":
		return OrderItem{Member: member, Desc: true}, nil
	}
	return OrderItem{}, fmt.Errorf("line %d: order direction %q for %s must be asc or desc", line, direction, member)
}

// ParseQuery parses a YAML or JSON query document.
func ParseQuery(data []byte) (*Query, error) {
	var q Query
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidQuery, Message: err.Error()}
	}
	return &q, nil
}

// LoadQuery reads and parses a query file.
func LoadQuery(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error reading query file: %v", err)}
	}
	return ParseQuery(data)
}

// Resolve turns q into a compiler input against s. The first referenced
// cube is the FROM relation; every other referenced cube is joined along
// the schema's join graph.
func (s *Schema) Resolve(q *Query) (queryspec.QuerySpec, error) {
	r := &resolver{schema: s}
	spec := queryspec.QuerySpec{
		Dimensions: q.Dimensions,
		Segments:   q.Segments,
		Timezone:   q.Timezone,
		Ungrouped:  q.Ungrouped,
		Members:    s.Catalog(),
	}

	for _, m := range q.Measures {
		r.use(m.Member)
		ref := queryspec.MeasureRef{Member: m.Member}
		f, err := r.filters(m.Filters)
		if err != nil {
			return queryspec.QuerySpec{}, err
		}
		ref.Filter = f
		spec.Measures = append(spec.Measures, ref)
	}
	for _, d := range q.Dimensions {
		r.use(d)
	}
	for _, td := range q.TimeDimensions {
		r.use(td.Dimension)
		out := queryspec.TimeDimension{Member: td.Dimension}
		if td.Granularity != "" {
			g, err := queryspec.ParseGranularity(td.Granularity)
			if err != nil {
				return queryspec.QuerySpec{}, err
			}
			out.Granularity = g
		}
		if td.DateRange != nil {
			out.DateRange = &queryspec.DateRange{From: td.DateRange.From, To: td.DateRange.To, Last: td.DateRange.Last}
		}
		spec.TimeDimensions = append(spec.TimeDimensions, out)
	}
	for _, seg := range q.Segments {
		r.use(seg)
	}

	f, err := r.filters(q.Filters)
	if err != nil {
		return queryspec.QuerySpec{}, err
	}
	spec.Filter = f

	for _, o := range q.Order {
		spec.Order = append(spec.Order, queryspec.OrderEntry{Member: o.Member, Desc: o.Desc})
	}

	if q.Limit != nil {
		n, err := cast.ToInt64E(q.Limit)
		if err != nil {
			return queryspec.QuerySpec{}, queryspec.NewConfigurationError("limit %v is not an integer", q.Limit)
		}
		spec.RowLimit = queryspec.Limit(n)
	}
	if q.Offset != nil {
		n, err := cast.ToInt64E(q.Offset)
		if err != nil {
			return queryspec.QuerySpec{}, queryspec.NewConfigurationError("offset %v is not an integer", q.Offset)
		}
		spec.Offset = n
	}

	if r.err != nil {
		return queryspec.QuerySpec{}, r.err
	}
	if len(r.cubes) == 0 {
		return queryspec.QuerySpec{}, queryspec.NewConfigurationError("query selects no members")
	}
	root := s.Cubes[r.cubes[0]]
	spec.Source = root.Relation()
	spec.Joins, err = s.joinPath(root.Name, r.cubes[1:])
	if err != nil {
		return queryspec.QuerySpec{}, err
	}
	return spec, nil
}

// resolver records referenced cubes in first-use order.
type resolver struct {
	schema *Schema
	cubes  []string
	seen   map[string]bool
	err    error
}

func (r *resolver) use(member string) {
	cube := cubeOf(member)
	if r.seen[cube] {
		return
	}
	if _, ok := r.schema.Cubes[cube]; !ok {
		if r.err == nil {
			r.err = queryspec.NewMemberError(member, "unknown cube %q", cube)
		}
		return
	}
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	r.seen[cube] = true
	r.cubes = append(r.cubes, cube)
}

// filters converts a top-level filter list to a tree; several entries are
// AND'ed.
func (r *resolver) filters(nodes []FilterNode) (queryspec.Filter, error) {
	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return r.filter(nodes[0])
	}
	return r.group(queryspec.And, nodes)
}

func (r *resolver) filter(n FilterNode) (queryspec.Filter, error) {
	switch {
	case len(n.And) > 0:
		return r.group(queryspec.And, n.And)
	case len(n.Or) > 0:
		return r.group(queryspec.Or, n.Or)
	}

	member := n.Member
	if member == "" {
		member = n.Dimension
	}
	if member == "" {
		return nil, queryspec.NewConfigurationError("filter has no member")
	}
	r.use(member)

	op, negated, err := queryspec.ParseOperator(n.Operator)
	if err != nil {
		return nil, err
	}
	values := n.Values
	if values == nil && n.Value != nil {
		values = []any{n.Value}
	}
	return &queryspec.Leaf{Member: member, Operator: op, Values: values, Negated: negated}, nil
}

func (r *resolver) group(kind queryspec.GroupKind, nodes []FilterNode) (queryspec.Filter, error) {
	g := &queryspec.Group{Kind: kind}
	for _, n := range nodes {
		child, err := r.filter(n)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, child)
	}
	return g, nil
}
