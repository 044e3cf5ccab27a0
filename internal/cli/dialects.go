package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cubesql/internal/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dialects",
		Short:         "List supported dialects and their capabilities",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			caps := make([]dialect.Capabilities, 0, len(dialect.Names()))
			for _, name := range dialect.Names() {
				d, err := dialect.Get(name)
				if err != nil {
					return formatter.failWith(ExitCommandError, err)
				}
				caps = append(caps, dialect.Describe(d))
			}

			if formatter.Format == "json" {
				return formatter.Success(caps)
			}
			fmt.Fprintf(formatter.Writer, "%-14s %-12s %-10s %-7s %s\n", "DIALECT", "PLACEHOLDER", "INTERVALS", "OFFSET", "MAX IDENT")
			for _, c := range caps {
				limit := "-"
				if c.MaxIdentifierLength > 0 {
					limit = fmt.Sprint(c.MaxIdentifierLength)
				}
				fmt.Fprintf(formatter.Writer, "%-14s %-12s %-10s %-7s %s\n", c.Name, c.Placeholder, yesNo(c.Intervals), yesNo(c.Offset), limit)
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
