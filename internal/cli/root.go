package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cubesql/internal/config"
	"github.com/roach88/cubesql/internal/querysql"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is loaded in the root PersistentPreRunE. Commands built on their
	// own (as in tests) fall back to built-in defaults.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cubesql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cubesql",
		Short: "cubesql - analytical SQL compiler",
		Long:  "Compile semantic-layer queries over CUE cube definitions into parameterized SQL for one of several engine dialects.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(".")
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return WrapExitError(ExitCommandError, "loading configuration", err)
			}
			opts.Config = cfg
			opts.Verbose = opts.Verbose || cfg.Verbose
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDialectsCommand(opts))
	cmd.AddCommand(NewPreaggCommand(opts))

	return cmd
}

// config returns the loaded configuration or the defaults.
func (o *RootOptions) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return &config.Config{Dialect: "ansi", SchemaDir: "cubes", PreAggregationSchema: querysql.DefaultPreAggregationSchema}
}

// logger returns a text logger on w: Debug when verbose, Warn otherwise.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
