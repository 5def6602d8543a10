package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/library"
	"github.com/roach88/macrology/internal/macro"
)

// Lint warning codes. Warnings never fail validation.
const (
	WarnNoLines     = "W001" // Macro has no executable lines
	WarnBadWait     = "W002" // A wait tag's value is unusable and is ignored
	WarnLoopOnly    = "W003" // Macro loops without dispatching anything
	WarnUnreachable = "W004" // Lines after /loop never run
	WarnBadDefault  = "W005" // A /defaultwait line is malformed and ignored
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Macros   int               `json:"macros"`
	Folders  int               `json:"folders"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// ValidationIssue is one problem found in a library.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Macro   string `json:"macro,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [library]",
		Short: "Check a library without running it",
		Long: `Load a library file or directory and report syntax, schema and tree
errors with their positions. Macros that load but look wrong (no executable
lines, unusable wait tags, lines after /loop) are reported as warnings.

Exit codes: 0 valid, 1 invalid, 2 library could not be read.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, firstArg(args), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	path, err := libraryPath(opts, arg)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Validating %s", path)

	tree, err := library.Load(path)
	if err != nil {
		var le *library.LoadError
		if !errors.As(err, &le) {
			return outputValidateError(formatter, ErrCodeLibrary, err.Error(), nil)
		}
		if le.Code == library.ErrCodeRead || le.Code == library.ErrCodeFormat {
			return outputValidateError(formatter, ErrCodeNotFound, le.Message, libraryErrorDetails(err))
		}
		return outputValidationErrors(formatter, []ValidationIssue{{
			Code:    le.Code,
			Path:    le.Path,
			Line:    le.Line,
			Message: le.Message,
		}})
	}

	result := ValidationResult{Valid: true}
	tree.Walk(func(n macro.Node, _ *macro.Folder) bool {
		switch n.Kind {
		case macro.KindFolder:
			result.Folders++
		case macro.KindMacro:
			result.Macros++
			formatter.VerboseLog("Checking macro: %s", n.Name())
			result.Warnings = append(result.Warnings, lintMacro(n.Macro)...)
		}
		return true
	})

	return outputValidateSuccess(formatter, result)
}

// lintMacro reports suspicious but loadable macro text.
func lintMacro(m *macro.Macro) []ValidationIssue {
	var issues []ValidationIssue
	warn := func(code string, line int, format string, args ...any) {
		issues = append(issues, ValidationIssue{Code: code, Macro: m.Name, Line: line, Message: fmt.Sprintf(format, args...)})
	}

	steps := engine.Plan(m.Contents)
	if len(steps) == 0 {
		warn(WarnNoLines, 0, "macro has no executable lines")
		return issues
	}

	commands := 0
	for _, step := range steps {
		switch step.Kind {
		case engine.StepCommand:
			commands++
			if step.Ignored {
				warn(WarnBadWait, step.Index, "wait tag in %q is unusable and ignored", step.Source)
			}
		case engine.StepDefaultWait:
			if step.Ignored {
				warn(WarnBadDefault, step.Index, "%q is malformed and ignored", step.Source)
			}
		case engine.StepLoop:
			if commands == 0 {
				warn(WarnLoopOnly, step.Index, "loop restarts before any command is sent")
			}
			rest := 0
			for _, s := range steps[step.Index:] {
				if s.Unreachable {
					rest++
				}
			}
			if rest > 0 {
				warn(WarnUnreachable, step.Index+1, "%d line(s) after /loop never run", rest)
			}
			return issues
		}
	}
	return issues
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Library valid (%d macro(s), %d folder(s))\n", result.Macros, result.Folders)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s %s", w.Code, w.Macro)
		if w.Line > 0 {
			fmt.Fprintf(formatter.Writer, " line %d", w.Line)
		}
		fmt.Fprintf(formatter.Writer, ": %s\n", w.Message)
	}
	return nil
}

// outputValidateError outputs a library that could not be read at all.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Unreadable input is a command-level error (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message)).WithCode(code)
}

// outputValidationErrors outputs the problems of an invalid library.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationIssue) error {
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs))).WithCode(ErrCodeLibrary)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		switch {
		case err.Path != "" && err.Line > 0:
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.Path, err.Line)
		case err.Path != "":
			fmt.Fprintf(formatter.Writer, "%s\n", err.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs))).WithCode(ErrCodeLibrary)
}
