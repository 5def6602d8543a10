package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/macro"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportResult is the JSON payload of the import command.
type ImportResult struct {
	Database string `json:"database"`
	Macros   int    `json:"macros"`
	Folders  int    `json:"folders"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [library]",
		Short: "Store a library in the database",
		Long: `Load a library and replace the tree stored in the database with it.
IDs are kept, so a later export reproduces the same macros.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, firstArg(args), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runImport(opts *ImportOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path, err := libraryPath(opts.RootOptions, arg)
	if err != nil {
		return err
	}
	tree, err := loadLibrary(path)
	if err != nil {
		return err
	}

	st, dbPath, err := openStore(opts.RootOptions, opts.Database, false)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.SaveTree(cmd.Context(), tree); err != nil {
		return WrapExitError(ExitFailure, "failed to store library", err).WithCode(ErrCodeStore)
	}

	result := ImportResult{Database: dbPath}
	tree.Walk(func(n macro.Node, _ *macro.Folder) bool {
		if n.Kind == macro.KindFolder {
			result.Folders++
		} else {
			result.Macros++
		}
		return true
	})
	formatter.VerboseLog("Imported %s into %s", path, dbPath)

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d macro(s) in %d folder(s) into %s\n", result.Macros, result.Folders, dbPath)
	return nil
}
