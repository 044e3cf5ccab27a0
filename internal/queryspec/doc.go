// Package queryspec defines the dialect-agnostic analytical query description
// compiled by package querysql.
//
// A QuerySpec names measures, dimensions, time dimensions, segments, a
// filter tree, ordering and pagination. Every member reference is resolved
// through the Catalog carried on the QuerySpec; the bindings in it are opaque
// SQL fragments supplied by the semantic-model layer.
//
// ARCHITECTURE:
//
//	[model loader] → [QuerySpec] → [querysql.Compiler + dialect] → CompiledQuery
//
// This package is the foundation layer: it imports nothing internal.
//
// FILTER TREES:
//
// Filter is a sealed interface implemented by *Leaf and *Group. Leaves carry
// an Operator, its values and a negation flag; groups combine children with
// AND or OR. Negated operator spellings ("not_equals", "notContains") are
// folded into the base operator by ParseOperator.
//
// ERRORS:
//
// Error carries one of three codes. CONFIGURATION is user-fixable,
// UNSUPPORTED_FEATURE means the selected dialect lacks a capability, and
// INVARIANT flags a malformed QuerySpec shape (see Validate).
package queryspec
