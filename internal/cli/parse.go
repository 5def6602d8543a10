package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/engine"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Library string
	Macro   string
}

// ParseResult is the JSON payload of the parse command.
type ParseResult struct {
	Source string        `json:"source"`
	Steps  []engine.Step `json:"steps"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Show how macro text would run",
		Long: `Print each executable line of a macro with the command that would be
sent and the wait that follows it. Comments and blank lines are dropped.

The text is read from a file, from stdin ("-"), or from a library macro
with --macro.

Example:
  macrology parse synth.txt
  macrology parse --macro "Basic Synth"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, firstArg(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Library, "library", "l", "", "library for --macro (default from config)")
	cmd.Flags().StringVarP(&opts.Macro, "macro", "m", "", "parse this library macro (ID or name)")

	return cmd
}

func runParse(opts *ParseOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	source, text, err := parseSource(opts, arg, cmd.InOrStdin())
	if err != nil {
		return err
	}

	steps := engine.Plan(text)
	if formatter.IsJSON() {
		if steps == nil {
			steps = []engine.Step{}
		}
		return formatter.Success(ParseResult{Source: source, Steps: steps})
	}

	if len(steps) == 0 {
		fmt.Fprintln(formatter.Writer, "no executable lines")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tWAIT\tCOMMAND")
	for _, s := range steps {
		wait := "-"
		if s.Kind != engine.StepLoop && !(s.Kind == engine.StepDefaultWait && s.Ignored) {
			wait = fmt.Sprintf("%s (%s)", s.Wait, waitLabel(s))
		}
		text := s.Command
		if s.Kind != engine.StepCommand {
			text = s.Source
		}
		if s.Ignored {
			text += "  (ignored wait)"
		}
		if s.Unreachable {
			text += "  (never runs)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Index, s.Kind, wait, text)
	}
	return tw.Flush()
}

func waitLabel(s engine.Step) string {
	if s.Kind == engine.StepDefaultWait {
		return "sets default"
	}
	return s.WaitSource
}

// parseSource returns a label for the text and the text itself.
func parseSource(opts *ParseOptions, arg string, stdin io.Reader) (string, string, error) {
	if opts.Macro != "" {
		if arg != "" {
			return "", "", NewExitError(ExitCommandError, "give either a file or --macro, not both")
		}
		path, err := libraryPath(opts.RootOptions, opts.Library)
		if err != nil {
			return "", "", err
		}
		tree, err := loadLibrary(path)
		if err != nil {
			return "", "", err
		}
		m, err := tree.Lookup(opts.Macro)
		if err != nil {
			return "", "", WrapExitError(ExitCommandError, fmt.Sprintf("macro %q not found", opts.Macro), err).WithCode(ErrCodeNotFound)
		}
		return m.Name, m.Contents, nil
	}

	if arg == "" || arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return "-", string(data), nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", "", WrapExitError(ExitCommandError, "failed to read macro file", err)
	}
	return arg, string(data), nil
}
