package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/macro"
)

// MacroEntry is one macro in list output.
type MacroEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Lines int    `json:"lines"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [library]",
		Short: "Show the folders and macros of a library",
		Long: `Print the library tree. Each macro shows its ID and the number of
executable lines it has. With --format json the macros are listed flat,
each with its folder path.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, firstArg(args), cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path, err := libraryPath(opts, arg)
	if err != nil {
		return err
	}
	tree, err := loadLibrary(path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded %d macro(s) from %s", len(tree.Macros()), path)

	if formatter.IsJSON() {
		return formatter.Success(macroEntries(tree.Nodes, nil))
	}

	if len(tree.Nodes) == 0 {
		fmt.Fprintln(formatter.Writer, "library is empty")
		return nil
	}
	printNodes(formatter.Writer, tree.Nodes, 0)
	return nil
}

func printNodes(w io.Writer, nodes []macro.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		switch n.Kind {
		case macro.KindFolder:
			fmt.Fprintf(w, "%s%s/\n", indent, n.Name())
			printNodes(w, n.Children(), depth+1)
		case macro.KindMacro:
			fmt.Fprintf(w, "%s%s  [%s]  %d line(s)\n", indent, n.Name(), n.ID(), len(engine.ParseScript(n.Macro.Contents)))
		}
	}
}

func macroEntries(nodes []macro.Node, folders []string) []MacroEntry {
	entries := []MacroEntry{}
	for _, n := range nodes {
		switch n.Kind {
		case macro.KindFolder:
			entries = append(entries, macroEntries(n.Children(), append(slices.Clone(folders), n.Name()))...)
		case macro.KindMacro:
			entries = append(entries, MacroEntry{
				ID:    n.ID(),
				Name:  n.Name(),
				Path:  strings.Join(append(slices.Clone(folders), n.Name()), "/"),
				Lines: len(engine.ParseScript(n.Macro.Contents)),
			})
		}
	}
	return entries
}

// firstArg returns args[0], or "" when args is empty.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
