package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cubesql/internal/dialect"
	"github.com/roach88/cubesql/internal/model"
	"github.com/roach88/cubesql/internal/querysql"
)

// PreaggOptions holds flags for the preagg command.
type PreaggOptions struct {
	*RootOptions
	Schema     string
	Dialect    string
	SkipSchema bool
	Every      time.Duration
}

// PreaggResult describes a rollup table for one dialect.
type PreaggResult struct {
	Dialect    string `json:"dialect"`
	Table      string `json:"table"`
	RefreshKey string `json:"refresh_key"`
	SQL        string `json:"sql"`
	Params     []any  `json:"params"`
}

// NewPreaggCommand creates the preagg command.
func NewPreaggCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreaggOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preagg <cube> <name>",
		Short: "Show the table, refresh key and SELECT of a pre-aggregation",
		Long: `Derive the physical table name of a pre-aggregation, the query whose
result changes once per refresh interval, and the SELECT that fills the
rollup. Table names longer than the dialect allows are an error.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreagg(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "cube definitions directory (default from config)")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "target dialect (default from config)")
	cmd.Flags().BoolVar(&opts.SkipSchema, "skip-schema", false, "omit the pre-aggregation schema from the table name")
	cmd.Flags().DurationVar(&opts.Every, "every", 0, "refresh interval (default from the definition)")

	return cmd
}

func runPreagg(opts *PreaggOptions, cube, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()

	d, err := dialect.Get(firstNonEmpty(opts.Dialect, cfg.Dialect))
	if err != nil {
		return formatter.failWith(ExitCommandError, err)
	}
	if cfg.PreAggregationSchema != "" {
		d = d.With(querysql.WithPreAggregationSchema(cfg.PreAggregationSchema))
	}

	schema, err := model.LoadDir(firstNonEmpty(opts.Schema, cfg.SchemaDir))
	if err != nil {
		return formatter.fail(err)
	}
	rollup, err := schema.Rollup(cube, name)
	if err != nil {
		return formatter.fail(err)
	}

	table, err := d.PreAggregationTableName(cube, name, opts.SkipSchema)
	if err != nil {
		return formatter.fail(err)
	}
	every := rollup.RefreshEvery
	if opts.Every > 0 {
		every = opts.Every
	}
	refreshKey, err := d.RefreshKeySQL(every)
	if err != nil {
		return formatter.fail(err)
	}

	spec, err := schema.Resolve(rollup.Query)
	if err != nil {
		return formatter.fail(err)
	}
	compiled, err := querysql.Compile(spec, d, querysql.WithLogger(opts.logger(formatter.GetErrWriter())))
	if err != nil {
		return formatter.fail(err)
	}

	result := PreaggResult{
		Dialect:    d.Name(),
		Table:      table,
		RefreshKey: refreshKey,
		SQL:        compiled.SQL(),
		Params:     compiled.Params(),
	}
	if result.Params == nil {
		result.Params = []any{}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Table:       %s\n", result.Table)
	fmt.Fprintf(formatter.Writer, "Refresh key: %s (every %s)\n", result.RefreshKey, every)
	fmt.Fprintf(formatter.Writer, "SQL:         %s\n", result.SQL)
	return nil
}
