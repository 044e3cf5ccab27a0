package querysql

import (
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cubesql/internal/queryspec"
)

// DefaultPreAggregationSchema is the schema rollup tables are created in.
const DefaultPreAggregationSchema = "stb_pre_aggregations"

// Dialect is a named hook table: the defaults with the adapter's overrides
// layered on top. A Dialect is immutable after NewDialect returns and is
// safe to share across goroutines.
type Dialect struct {
	name                 string
	maxIdentifierLength  int
	preAggregationSchema string
	hooks                Hooks
}

// DialectOption configures a Dialect at construction time.
type DialectOption func(*Dialect)

// WithHooks layers overrides onto the hook table. Options apply in order,
// so later overrides see the result of earlier ones.
func WithHooks(override func(h *Hooks)) DialectOption {
	return func(d *Dialect) {
		override(&d.hooks)
	}
}

// WithMaxIdentifierLength sets the engine's identifier-length ceiling.
// Zero means unlimited.
func WithMaxIdentifierLength(n int) DialectOption {
	return func(d *Dialect) {
		d.maxIdentifierLength = n
	}
}

// WithPreAggregationSchema overrides DefaultPreAggregationSchema.
func WithPreAggregationSchema(schema string) DialectOption {
	return func(d *Dialect) {
		d.preAggregationSchema = schema
	}
}

// NewDialect builds a dialect from DefaultHooks and the given options.
// A dialect with no options compiles ANSI SQL.
func NewDialect(name string, opts ...DialectOption) *Dialect {
	d := &Dialect{
		name:                 name,
		preAggregationSchema: DefaultPreAggregationSchema,
		hooks:                DefaultHooks(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// With returns a copy of d with additional options applied. d itself is
// left untouched.
func (d *Dialect) With(opts ...DialectOption) *Dialect {
	clone := *d
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return d.name
}

// MaxIdentifierLength returns the identifier ceiling (0 = unlimited).
func (d *Dialect) MaxIdentifierLength() int {
	return d.maxIdentifierLength
}

// Hooks returns a copy of the hook table.
func (d *Dialect) Hooks() Hooks {
	return d.hooks
}

// SupportsIntervals reports whether the dialect has interval arithmetic.
func (d *Dialect) SupportsIntervals() bool {
	return d.hooks.AddInterval != nil && d.hooks.SubtractInterval != nil
}

// NewFilterCompiler returns the dialect's filter compiler bound to alloc.
func (d *Dialect) NewFilterCompiler(alloc *ParamAllocator) *FilterCompiler {
	return &FilterCompiler{dialect: d, alloc: alloc}
}

// NewParamAllocator returns an allocator using the dialect's placeholders.
func (d *Dialect) NewParamAllocator() *ParamAllocator {
	return NewParamAllocator(d.hooks.Placeholder)
}

// PreAggregationTableName derives the physical table name for a rollup.
// Names over the identifier ceiling fail with CONFIGURATION; they are
// never truncated.
func (d *Dialect) PreAggregationTableName(cube, name string, skipSchema bool) (string, error) {
	if cube == "" || name == "" {
		return "", queryspec.NewInvariantError("pre-aggregation needs both cube and name")
	}
	table := d.hooks.PreAggregationTableName(d.preAggregationSchema, cube, name, skipSchema)
	if err := d.checkIdentifier(table); err != nil {
		return "", err
	}
	return table, nil
}

// RefreshKeySQL returns a query whose result changes once per every.
func (d *Dialect) RefreshKeySQL(every time.Duration) (string, error) {
	seconds := int64(every / time.Second)
	if seconds < 1 {
		return "", queryspec.NewConfigurationError("refresh interval %s is shorter than one second", every)
	}
	expr := fmt.Sprintf("FLOOR((%s) / %d)", d.hooks.UnixTimestampSQL(), seconds)
	return d.hooks.SelectExpression(expr), nil
}

// checkIdentifier enforces the identifier ceiling, counted in characters
// of the NFC-normalized name.
func (d *Dialect) checkIdentifier(identifier string) error {
	if d.maxIdentifierLength <= 0 {
		return nil
	}
	n := utf8.RuneCountInString(norm.NFC.String(identifier))
	if n > d.maxIdentifierLength {
		return queryspec.NewIdentifierLengthError(d.name, identifier, n, d.maxIdentifierLength)
	}
	return nil
}
