package querysql

import "slices"

// ParamAllocator binds literal values to positional placeholders.
//
// CRITICAL: Allocation order IS placeholder order. The allocator must be
// consulted exactly in the order its tokens are concatenated into the SQL
// text; values are never deduplicated or reordered afterwards, because
// execution binds them by position.
type ParamAllocator struct {
	placeholder func(index int) string
	params      []any
}

// NewParamAllocator creates an allocator rendering tokens with placeholder.
// placeholder receives the 1-based position of the value.
func NewParamAllocator(placeholder func(index int) string) *ParamAllocator {
	if placeholder == nil {
		placeholder = questionMark
	}
	return &ParamAllocator{placeholder: placeholder}
}

// Allocate appends value and returns its placeholder token.
func (a *ParamAllocator) Allocate(value any) string {
	a.params = append(a.params, value)
	return a.placeholder(len(a.params))
}

// Len returns the number of allocated values.
func (a *ParamAllocator) Len() int {
	return len(a.params)
}

// Params returns a copy of the allocated values in allocation order.
func (a *ParamAllocator) Params() []any {
	return slices.Clone(a.params)
}

func questionMark(int) string {
	return "?"
}
