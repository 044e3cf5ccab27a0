package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cubesql/internal/model"
	"github.com/roach88/cubesql/internal/queryspec"
)

// ValidationResult summarizes a valid schema.
type ValidationResult struct {
	Cubes   []string `json:"cubes"`
	Members int      `json:"members"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate cube definitions",
		Long: `Load every cube in the schema directory, check it against the cube
schema and resolve its members and joins.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.config().SchemaDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	schema, err := model.LoadDir(dir)
	if err != nil {
		var loadErr *model.LoadError
		if errors.As(err, &loadErr) && formatter.Format != "json" {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			fmt.Fprintln(formatter.Writer)
		}
		return formatter.fail(err)
	}

	catalog := schema.Catalog()
	result := ValidationResult{Cubes: schema.CubeNames(), Members: len(catalog)}
	for _, name := range result.Cubes {
		formatter.VerboseLog("Cube %s: %s", name, memberSummary(catalog, name))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d cube(s), %d member(s)\n", len(result.Cubes), result.Members)
	return nil
}

// memberSummary counts a cube's members by kind.
func memberSummary(catalog queryspec.Catalog, cube string) string {
	counts := map[string]int{}
	for ref, m := range catalog {
		if strings.HasPrefix(ref, cube+".") {
			counts[string(m.Kind)]++
		}
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %s(s)", counts[k], k)
	}
	return strings.Join(parts, ", ")
}
