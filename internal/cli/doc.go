// Package cli implements the cubesql command line.
//
// Commands:
//
//	cubesql compile <query-file> [--schema dir] [--dialect name] [--timezone tz] [-o file]
//	cubesql validate [schema-dir]
//	cubesql dialects
//	cubesql preagg <cube> <name> [--skip-schema] [--every 1h]
//
// Every command writes through OutputFormatter: human text by default,
// a CLIResponse envelope with --format json. Diagnostics and slog records
// go to stderr so JSON output stays parseable.
//
// Exit codes: 0 success, 1 the query could not be compiled, 2 the command
// itself failed (missing files, invalid cubes, unknown dialect).
package cli
