package querysql

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/cubesql/internal/queryspec"
)

// CompiledQuery is the immutable output of one compilation: SQL text and
// the parameter values in placeholder order.
type CompiledQuery struct {
	sql    string
	params []any
}

// SQL returns the statement text.
func (q *CompiledQuery) SQL() string {
	return q.sql
}

// Params returns a copy of the bound values in placeholder order.
func (q *CompiledQuery) Params() []any {
	return slices.Clone(q.params)
}

// MarshalJSON implements json.Marshaler.
func (q *CompiledQuery) MarshalJSON() ([]byte, error) {
	params := q.params
	if params == nil {
		params = []any{}
	}
	return json.Marshal(struct {
		SQL    string `json:"sql"`
		Params []any  `json:"params"`
	}{q.sql, params})
}

// Compiler compiles one QuerySpec to SQL for one dialect.
//
// A Compiler is single-use: the member-to-column mapping and the parameter
// allocator built during Compile belong to that compilation only. Use
// Compile (the package function) for one-shot calls.
//
// Clause order is fixed and clauses are built in textual order, so the
// allocator is always consulted in the order placeholders appear:
//
//	SELECT <dimensions, time dimensions, measures>
//	FROM <source> [JOIN ...]
//	[WHERE <dimension filters> AND <date ranges> AND <segments>]
//	[GROUP BY ...]
//	[HAVING <measure filters>]
//	[ORDER BY ...]
//	[<pagination>]
type Compiler struct {
	dialect *Dialect
	logger  *slog.Logger
	used    bool

	spec    queryspec.QuerySpec
	alloc   *ParamAllocator
	filters *FilterCompiler
	columns []SelectColumn
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for compilation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a single-use compiler for d.
func New(d *Dialect, opts ...Option) *Compiler {
	c := &Compiler{
		dialect: d,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles spec for d with a fresh compiler.
func Compile(spec queryspec.QuerySpec, d *Dialect, opts ...Option) (*CompiledQuery, error) {
	return New(d, opts...).Compile(spec)
}

// Compile converts spec to parameterized SQL.
//
// Errors are *queryspec.Error values: CONFIGURATION for unresolved members,
// identifier ceilings and bad values; UNSUPPORTED_FEATURE when the dialect
// lacks a needed hook; INVARIANT for malformed specs or compiler reuse.
func (c *Compiler) Compile(spec queryspec.QuerySpec) (*CompiledQuery, error) {
	if c.dialect == nil {
		return nil, queryspec.NewInvariantError("compiler has no dialect")
	}
	if c.used {
		return nil, queryspec.NewInvariantError("compiler is single-use; create a new one per query")
	}
	c.used = true

	if err := queryspec.Validate(spec); err != nil {
		return nil, err
	}
	if err := ValidateTimezone(spec.Timezone); err != nil {
		return nil, err
	}

	c.spec = spec
	c.alloc = c.dialect.NewParamAllocator()
	c.filters = c.dialect.NewFilterCompiler(c.alloc).WithTimezone(spec.Timezone)

	if err := c.buildColumns(); err != nil {
		return nil, err
	}
	whereFilters, havingFilters, err := c.splitFilters()
	if err != nil {
		return nil, err
	}

	parts := []string{
		"SELECT " + c.selectList(),
		"FROM " + c.fromClause(),
	}

	where, err := c.whereClause(whereFilters)
	if err != nil {
		return nil, fmt.Errorf("compile where: %w", err)
	}
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}

	if groupBy := c.dialect.hooks.GroupByClause(c.grouping()); groupBy != "" {
		parts = append(parts, groupBy)
	}

	having, err := c.havingClause(havingFilters)
	if err != nil {
		return nil, fmt.Errorf("compile having: %w", err)
	}
	if having != "" {
		parts = append(parts, "HAVING "+having)
	}

	orderBy, err := c.orderByClause()
	if err != nil {
		return nil, err
	}
	if orderBy != "" {
		parts = append(parts, "ORDER BY "+orderBy)
	}

	page, err := c.dialect.hooks.PaginationClause(spec.RowLimit, spec.Offset)
	if err != nil {
		return nil, err
	}
	if page != "" {
		parts = append(parts, page)
	}

	q := &CompiledQuery{
		sql:    strings.Join(parts, " "),
		params: c.alloc.Params(),
	}
	c.logger.Debug("compiled query",
		"dialect", c.dialect.Name(),
		"columns", len(c.columns),
		"params", len(q.params),
		"sql", q.sql)
	return q, nil
}

// lookupMember resolves a reference. Exact names win; otherwise the
// dialect's MatchMember decides, scanning names in sorted order so the
// result is deterministic. Not-found is an explicit false, not an error.
func (c *Compiler) lookupMember(name string) (queryspec.Member, bool) {
	if m, ok := c.spec.Members.Lookup(name); ok {
		if m.Name == "" {
			m.Name = name
		}
		return m, true
	}
	keys := make([]string, 0, len(c.spec.Members))
	for k := range c.spec.Members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if c.dialect.hooks.MatchMember(name, k) {
			m := c.spec.Members[k]
			if m.Name == "" {
				m.Name = k
			}
			return m, true
		}
	}
	return queryspec.Member{}, false
}

// resolve looks up a member and checks its kind.
func (c *Compiler) resolve(name string, kind queryspec.MemberKind) (queryspec.Member, error) {
	m, ok := c.lookupMember(name)
	if !ok {
		return queryspec.Member{}, queryspec.NewMemberError(name, "member not found")
	}
	if m.Kind != kind {
		return queryspec.Member{}, queryspec.NewMemberError(name, "member is a %s, expected a %s", m.Kind, kind)
	}
	return m, nil
}

// resolveFilterMember resolves a filter leaf reference of any filterable kind.
func (c *Compiler) resolveFilterMember(name string) (queryspec.Member, error) {
	m, ok := c.lookupMember(name)
	if !ok {
		return queryspec.Member{}, queryspec.NewMemberError(name, "filter member not found")
	}
	if m.Kind == queryspec.KindSegment {
		return queryspec.Member{}, queryspec.NewMemberError(name, "segments can not be used in filters")
	}
	return m, nil
}

// buildColumns builds the SELECT list: dimensions, then time dimensions
// with a granularity, then measures.
func (c *Compiler) buildColumns() error {
	hooks := c.dialect.hooks
	seen := make(map[string]bool)
	add := func(col SelectColumn) error {
		if seen[col.Alias] {
			return nil
		}
		if err := c.dialect.checkIdentifier(col.Alias); err != nil {
			return err
		}
		seen[col.Alias] = true
		col.QuotedAlias = hooks.EscapeIdentifier(col.Alias)
		col.Ordinal = len(c.columns) + 1
		c.columns = append(c.columns, col)
		return nil
	}

	for _, name := range c.spec.Dimensions {
		m, err := c.resolve(name, queryspec.KindDimension)
		if err != nil {
			return err
		}
		if err := add(SelectColumn{Member: name, Kind: queryspec.KindDimension, SQL: m.SQL, Alias: memberAlias(m)}); err != nil {
			return err
		}
	}

	for _, td := range c.spec.TimeDimensions {
		if td.Granularity == "" {
			continue
		}
		m, err := c.resolve(td.Member, queryspec.KindDimension)
		if err != nil {
			return err
		}
		if m.Type != queryspec.TypeTime {
			return queryspec.NewMemberError(td.Member, "time dimension must have type time, got %q", m.Type)
		}
		if !td.Granularity.Valid() {
			return queryspec.NewMemberError(td.Member, "unknown granularity %q", td.Granularity)
		}
		expr, err := hooks.TimeGroupedColumn(td.Granularity, hooks.ConvertTz(m.SQL, c.spec.Timezone))
		if err != nil {
			return err
		}
		col := SelectColumn{
			Member:      td.Member,
			Kind:        queryspec.KindDimension,
			SQL:         expr,
			Alias:       memberAlias(m) + "_" + string(td.Granularity),
			Granularity: td.Granularity,
		}
		if err := add(col); err != nil {
			return err
		}
	}

	for _, ref := range c.spec.Measures {
		m, err := c.resolve(ref.Member, queryspec.KindMeasure)
		if err != nil {
			return err
		}
		if err := add(SelectColumn{Member: ref.Member, Kind: queryspec.KindMeasure, SQL: m.SQL, Alias: memberAlias(m)}); err != nil {
			return err
		}
	}

	if len(c.columns) == 0 {
		return queryspec.NewConfigurationError("query selects no measures, dimensions or granular time dimensions")
	}
	return nil
}

func (c *Compiler) selectList() string {
	parts := make([]string, len(c.columns))
	for i, col := range c.columns {
		parts[i] = col.SQL + " AS " + col.QuotedAlias
	}
	return strings.Join(parts, ", ")
}

func (c *Compiler) fromClause() string {
	hooks := c.dialect.hooks
	var b strings.Builder
	b.WriteString(relation(c.spec.Source, hooks.AliasSyntaxTable()))
	for _, j := range c.spec.Joins {
		kind := j.Kind
		if kind == "" {
			kind = queryspec.JoinLeft
		}
		fmt.Fprintf(&b, " %s JOIN %s ON %s", kind, relation(j.Source, hooks.AliasSyntaxJoin()), j.On)
	}
	return b.String()
}

// relation renders "<sql> [<token>] <alias>".
func relation(s queryspec.Source, token string) string {
	if s.Alias == "" {
		return s.SQL
	}
	if token == "" {
		return s.SQL + " " + s.Alias
	}
	return s.SQL + " " + token + " " + s.Alias
}

// splitFilters partitions the filter tree into WHERE and HAVING parts.
// AND groups are split child by child; any other subtree must reference
// only measures (HAVING) or only non-measures (WHERE).
func (c *Compiler) splitFilters() (where, having []queryspec.Filter, err error) {
	var split func(f queryspec.Filter) error
	split = func(f queryspec.Filter) error {
		if g, ok := f.(*queryspec.Group); ok && g.Kind == queryspec.And {
			for _, child := range g.Children {
				if err := split(child); err != nil {
					return err
				}
			}
			return nil
		}
		hasMeasure, hasOther, err := c.classify(f)
		if err != nil {
			return err
		}
		switch {
		case hasMeasure && hasOther:
			return queryspec.NewConfigurationError("a single OR condition can not mix measures and dimensions")
		case hasMeasure:
			having = append(having, f)
		default:
			where = append(where, f)
		}
		return nil
	}
	if c.spec.Filter != nil {
		if err := split(c.spec.Filter); err != nil {
			return nil, nil, err
		}
	}
	return where, having, nil
}

// classify reports whether a subtree references measures, non-measures, or both.
func (c *Compiler) classify(f queryspec.Filter) (hasMeasure, hasOther bool, err error) {
	for _, leaf := range queryspec.Leaves(f) {
		m, err := c.resolveFilterMember(leaf.Member)
		if err != nil {
			return false, false, err
		}
		if m.Kind == queryspec.KindMeasure {
			hasMeasure = true
		} else {
			hasOther = true
		}
	}
	return hasMeasure, hasOther, nil
}

func (c *Compiler) whereClause(filters []queryspec.Filter) (string, error) {
	var preds []string
	for _, f := range filters {
		sql, err := c.filters.CompileTree(f, c.resolveFilterMember)
		if err != nil {
			return "", err
		}
		preds = append(preds, sql)
	}
	for _, td := range c.spec.TimeDimensions {
		if td.DateRange == nil {
			continue
		}
		sql, err := c.dateRangePredicate(td)
		if err != nil {
			return "", err
		}
		preds = append(preds, sql)
	}
	for _, name := range c.spec.Segments {
		m, err := c.resolve(name, queryspec.KindSegment)
		if err != nil {
			return "", err
		}
		preds = append(preds, "("+m.SQL+")")
	}
	return strings.Join(preds, " AND "), nil
}

// dateRangePredicate restricts a time dimension to its absolute or
// relative date range.
func (c *Compiler) dateRangePredicate(td queryspec.TimeDimension) (string, error) {
	hooks := c.dialect.hooks
	m, err := c.resolve(td.Member, queryspec.KindDimension)
	if err != nil {
		return "", err
	}
	column := m.SQL
	if m.Type == queryspec.TypeTime {
		column = hooks.ConvertTz(column, c.spec.Timezone)
	}

	r := td.DateRange
	if r.Last != "" {
		iv, err := parseRelativeRange(r.Last)
		if err != nil {
			return "", err
		}
		if hooks.SubtractInterval == nil {
			return "", queryspec.NewUnsupportedError(c.dialect.Name(), "interval arithmetic (relative date range \""+r.Last+"\")")
		}
		now := hooks.NowTimestamp()
		return fmt.Sprintf("%s >= %s AND %s <= %s", column, hooks.SubtractInterval(now, iv), column, now), nil
	}

	from, err := FormatFromDate(r.From)
	if err != nil {
		return "", err
	}
	to, err := FormatToDate(r.To)
	if err != nil {
		return "", err
	}
	lower := c.filters.TimeStampParam(m, from)
	upper := c.filters.TimeStampParam(m, to)
	return fmt.Sprintf("%s >= %s AND %s <= %s", column, lower, column, upper), nil
}

// havingClause compiles measure subtrees of the filter tree followed by
// per-measure filters, in measure order.
func (c *Compiler) havingClause(filters []queryspec.Filter) (string, error) {
	for _, ref := range c.spec.Measures {
		if ref.Filter == nil {
			continue
		}
		_, hasOther, err := c.classify(ref.Filter)
		if err != nil {
			return "", err
		}
		if hasOther {
			return "", queryspec.NewMemberError(ref.Member, "measure filter may only reference measures")
		}
		filters = append(filters, ref.Filter)
	}

	var preds []string
	for _, f := range filters {
		sql, err := c.filters.CompileTree(f, c.resolveFilterMember)
		if err != nil {
			return "", err
		}
		preds = append(preds, sql)
	}
	return strings.Join(preds, " AND "), nil
}

func (c *Compiler) grouping() Grouping {
	g := Grouping{Ungrouped: c.spec.Ungrouped}
	for _, col := range c.columns {
		if col.Kind == queryspec.KindDimension {
			g.Columns = append(g.Columns, col)
		}
	}
	return g
}

// lookupColumn finds the selected column for an ordering member.
// Not-found is an explicit false; the caller decides the policy.
func (c *Compiler) lookupColumn(member string) (SelectColumn, bool) {
	for _, col := range c.columns {
		if c.dialect.hooks.MatchMember(member, col.Member) {
			return col, true
		}
	}
	return SelectColumn{}, false
}

func (c *Compiler) orderByClause() (string, error) {
	entries := c.spec.Order
	if len(entries) == 0 {
		entries = c.defaultOrder()
	}
	parts := make([]string, 0, len(entries))
	for _, o := range entries {
		col, ok := c.lookupColumn(o.Member)
		if !ok {
			return "", queryspec.NewMemberError(o.Member, "order member is not among the selected columns")
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, c.dialect.hooks.OrderByColumn(col)+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

// defaultOrder orders by the first granular time dimension, else by the
// first measure descending when dimensions are present, else by the first
// dimension.
func (c *Compiler) defaultOrder() []queryspec.OrderEntry {
	for _, col := range c.columns {
		if col.Granularity != "" {
			return []queryspec.OrderEntry{{Member: col.Member}}
		}
	}
	if len(c.spec.Measures) > 0 && len(c.spec.Dimensions) > 0 {
		return []queryspec.OrderEntry{{Member: c.spec.Measures[0].Member, Desc: true}}
	}
	if len(c.spec.Dimensions) > 0 {
		return []queryspec.OrderEntry{{Member: c.spec.Dimensions[0]}}
	}
	return nil
}

// memberAlias returns the member's alias, deriving "cube__member" from the
// name when the binding has none.
func memberAlias(m queryspec.Member) string {
	if m.Alias != "" {
		return m.Alias
	}
	return SnakeCase(strings.ReplaceAll(m.Name, ".", "__"))
}
