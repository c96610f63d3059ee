package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/queryvalues/internal/catalog"
	"github.com/roach88/queryvalues/internal/options"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	Unicode bool
	Scale   int
}

// TypeRow is one catalog entry as printed by the types command.
type TypeRow struct {
	Kind    string `json:"kind"`
	GoType  string `json:"go_type"`
	SQLType string `json:"sql_type"`
	Wire    string `json:"wire"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List supported scalar kinds",
		Long: `List every scalar kind with its Go type, the SQL Server column type it
decodes to and its payload encoding. Option flags show how entity defaults
change the column types.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Unicode, "unicode", options.GlobalUnicode, "render text kinds as unicode")
	cmd.Flags().IntVar(&opts.Scale, "scale", options.GlobalDecimalScale, "decimal scale")

	return cmd
}

func runTypes(opts *TypesOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Scale < 0 || opts.Scale > catalog.MaxDecimalScale {
		return formatter.fail(ExitCommandError, ErrCodeInvalidFlags,
			fmt.Sprintf("--scale must be between 0 and %d", catalog.MaxDecimalScale), nil)
	}

	entries := catalog.Entries(catalog.Effective{Unicode: opts.Unicode, Scale: opts.Scale})
	rows := make([]TypeRow, len(entries))
	for i, e := range entries {
		rows[i] = TypeRow{Kind: e.Kind.String(), GoType: e.GoType, SQLType: e.SQLType, Wire: e.Wire}
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	bold := color.New(color.Bold).SprintFunc()
	kind := color.New(color.FgCyan).SprintFunc()

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("KIND"), bold("GO TYPE"), bold("SQL TYPE"), bold("WIRE"))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind(r.Kind), r.GoType, r.SQLType, r.Wire)
	}
	return tw.Flush()
}
