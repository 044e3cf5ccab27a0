// Package model loads the semantic layer: cube definitions written in CUE
// and query files written in YAML or JSON.
//
// ARCHITECTURE:
//
//	cubes/*.cue ──LoadDir──▶ Schema ──Catalog──▶ queryspec.Catalog
//	query.yaml ──LoadQuery──▶ Query ──Schema.Resolve──▶ queryspec.QuerySpec
//
// Every cube is unified with the embedded #Cube definition (schema.cue)
// before decoding, so unknown fields and out-of-range enum values are
// reported with their CUE source position.
//
// MEMBER SQL:
//
// Member sql is either a bare column name, which is qualified with the
// cube alias, or an expression where {CUBE} and {other_cube} expand to
// relation aliases. The compiler treats the rendered SQL as opaque.
//
// JOINS:
//
// The first cube a query references becomes the FROM relation. Every other
// referenced cube is reached over the shortest chain of join definitions
// and attached with a LEFT JOIN.
package model
