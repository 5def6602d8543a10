package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/library"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Output   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored library as YAML",
		Long: `Read the tree stored in the database and write it as a YAML library,
to a file with -o or to stdout. IDs are written out so the export loads
back to the same tree.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	st, dbPath, err := openStore(opts.RootOptions, opts.Database, true)
	if err != nil {
		return err
	}
	defer closeStore(st)

	tree, err := st.LoadTree(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read stored library", err).WithCode(ErrCodeStore)
	}

	if opts.Output == "" {
		data, err := library.MarshalYAML(tree)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode library", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := library.SaveYAML(opts.Output, tree); err != nil {
		return WrapExitError(ExitFailure, "failed to write library", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.Success(map[string]any{
			"database": dbPath,
			"output":   opts.Output,
			"macros":   len(tree.Macros()),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %d macro(s) to %s\n", len(tree.Macros()), opts.Output)
	return nil
}
