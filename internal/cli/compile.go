package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cubesql/internal/dialect"
	"github.com/roach88/cubesql/internal/model"
	"github.com/roach88/cubesql/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Schema   string // cube definitions directory
	Dialect  string
	Timezone string
	Output   string // output file path
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Compile a query file to SQL",
		Long: `Compile a YAML or JSON query against the cube definitions in --schema.

The output is one parameterized SQL statement for --dialect and its
bound parameters in placeholder order. Values are never inlined.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "cube definitions directory (default from config)")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "target dialect (default from config)")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "", "timezone for queries that do not set one")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the SQL to a file")

	return cmd
}

func runCompile(opts *CompileOptions, queryFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

	schemaDir := firstNonEmpty(opts.Schema, cfg.SchemaDir)
	d, err := dialect.Get(firstNonEmpty(opts.Dialect, cfg.Dialect))
	if err != nil {
		return formatter.failWith(ExitCommandError, err)
	}

	schema, err := model.LoadDir(schemaDir)
	if err != nil {
		return formatter.fail(err)
	}
	formatter.VerboseLog("Loaded %d cube(s) from %s", len(schema.Cubes), schemaDir)

	q, err := model.LoadQuery(queryFile)
	if err != nil {
		return formatter.fail(err)
	}
	if q.Timezone == "" {
		q.Timezone = firstNonEmpty(opts.Timezone, cfg.Timezone)
	}

	spec, err := schema.Resolve(q)
	if err != nil {
		return formatter.fail(err)
	}
	compiled, err := querysql.Compile(spec, d, querysql.WithLogger(opts.logger(formatter.GetErrWriter())))
	if err != nil {
		return formatter.fail(err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(compiled.SQL()+"\n"), 0644); err != nil {
			return formatter.fail(fmt.Errorf("writing output file: %w", err))
		}
	}

	result := CompilationResult{Dialect: d.Name(), SQL: compiled.SQL(), Params: compiled.Params()}
	if result.Params == nil {
		result.Params = []any{}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	for i, p := range result.Params {
		fmt.Fprintf(formatter.Writer, "-- $%d = %#v\n", i+1, p)
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote SQL to %s\n", opts.Output)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
