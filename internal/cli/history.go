package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Run      string
	Limit    int
}

// RunHistory is the JSON payload of history --run.
type RunHistory struct {
	Run        store.Run              `json:"run"`
	Dispatches []store.DispatchRecord `json:"dispatches"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled runs",
		Long: `List the most recent journaled runs, oldest first, or with --run show one
run and every command it produced, delivered or dropped, in seq order.

Example:
  macrology history --limit 20
  macrology history --run 0192f0c4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the dispatches of this run")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "number of runs to list (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, _, err := openStore(opts.RootOptions, opts.Database, true)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()

	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.Run), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("run %s not found", opts.Run)).WithCode(ErrCodeNotFound)
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read run", err).WithCode(ErrCodeStore)
		}
		dispatches, err := st.ListDispatches(ctx, opts.Run)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read dispatches", err).WithCode(ErrCodeStore)
		}

		if formatter.IsJSON() {
			return formatter.Success(RunHistory{Run: run, Dispatches: dispatches})
		}
		return printRunHistory(formatter, run, dispatches)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err).WithCode(ErrCodeStore)
	}
	if formatter.IsJSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no runs journaled")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tMACRO\tSTATUS\tLINES\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Seq, r.RunID, r.MacroName, r.Status, r.Lines, r.StartedAt.Local().Format(time.DateTime), runDuration(r))
	}
	return tw.Flush()
}

func printRunHistory(formatter *OutputFormatter, run store.Run, dispatches []store.DispatchRecord) error {
	fmt.Fprintf(formatter.Writer, "Run %s: %s (%s), %s\n", run.RunID, run.MacroName, run.MacroID, run.Status)
	if len(dispatches) == 0 {
		fmt.Fprintln(formatter.Writer, "no commands journaled")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tOUTCOME\tCOMMAND")
	for _, d := range dispatches {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", d.Seq, d.Outcome, d.Command)
	}
	return tw.Flush()
}

func runDuration(r store.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
