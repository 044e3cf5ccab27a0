package queryspec

// ValueType tags the SQL type a member expression evaluates to.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeTime    ValueType = "time"
	TypeBoolean ValueType = "boolean"
)

// MemberKind distinguishes how a member may be used in a query.
type MemberKind string

const (
	KindDimension MemberKind = "dimension"
	KindMeasure   MemberKind = "measure"
	KindSegment   MemberKind = "segment"
)

// Member is a resolved binding for a measure, dimension or segment
// reference. SQL is an opaque fragment produced by the semantic-model
// layer; the compiler never inspects or validates it.
type Member struct {
	Name  string     // Reference name, e.g. "orders.created_at"
	SQL   string     // SQL expression (aggregate expression for measures)
	Alias string     // Result column alias, e.g. "orders__created_at"
	Type  ValueType  // Value type of the expression
	Kind  MemberKind // dimension | measure | segment
}

// Catalog maps member references to their resolved bindings.
type Catalog map[string]Member

// Lookup returns the binding for name, reporting whether it exists.
func (c Catalog) Lookup(name string) (Member, bool) {
	m, ok := c[name]
	return m, ok
}

// MeasureRef selects a measure, optionally with a HAVING predicate of
// its own.
type MeasureRef struct {
	Member string
	Filter Filter // nil = no measure-level filter
}

// DateRange restricts a time dimension. Either From/To (absolute, inclusive)
// or Last (relative to now, e.g. "7 day") is set.
type DateRange struct {
	From string
	To   string
	Last string
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == "" && r.Last == ""
}

// TimeDimension selects a time member, optionally truncated to a
// granularity and restricted to a date range. A time dimension without
// granularity contributes only its range to WHERE.
type TimeDimension struct {
	Member      string
	Granularity Granularity // "" = not selected
	DateRange   *DateRange  // nil = unrestricted
}

// OrderEntry orders results by a selected member.
type OrderEntry struct {
	Member string
	Desc   bool
}

// Source is a relation in FROM or JOIN position. SQL is a table name or a
// parenthesized subquery; Alias must be a plain identifier.
type Source struct {
	SQL   string
	Alias string
}

// JoinKind is the SQL join type.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
)

// Join attaches another relation to the primary Source.
type Join struct {
	Kind   JoinKind
	Source Source
	On     string // Opaque join condition
}

// QuerySpec is the resolved, dialect-agnostic description of one query.
//
// It is built once by the upstream resolver and passed read-only into a
// single compilation. Member references in every field are names looked
// up in Members.
//
// Example:
//
//	QuerySpec{
//	  Measures:       []MeasureRef{{Member: "orders.count"}},
//	  TimeDimensions: []TimeDimension{{Member: "orders.created_at", Granularity: GranularityDay}},
//	  Source:         Source{SQL: "orders", Alias: "orders"},
//	  Members:        catalog,
//	}
type QuerySpec struct {
	Measures       []MeasureRef
	Dimensions     []string
	TimeDimensions []TimeDimension
	Filter         Filter // nil = no filter tree
	Segments       []string
	Order          []OrderEntry

	// RowLimit: nil = unlimited, 0 = explicitly empty result.
	RowLimit *int64
	Offset   int64

	// Ungrouped suppresses GROUP BY entirely.
	Ungrouped bool

	// Timezone is an IANA zone name; "" or "UTC" means no conversion.
	Timezone string

	Source Source
	Joins  []Join

	Members Catalog
}

// Limit returns a RowLimit pointer for n.
func Limit(n int64) *int64 {
	return &n
}
