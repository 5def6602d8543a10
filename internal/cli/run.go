package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/config"
	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/macro"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Library   string
	Database  string
	Tick      time.Duration
	NoJournal bool
	Timeout   time.Duration

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <macro>...",
		Short: "Run macros until they finish",
		Long: `Log in, spawn each named macro and deliver their commands to the sink
until every run has finished, the timeout expires or the process is
interrupted. Macros are looked up by ID first, then by name.

Every run and delivery is journaled to the database unless --no-journal
is given.

Example:
  macrology run --library ./macros.yaml "Basic Synth"
  macrology run --tick 20ms --no-journal greet farewell`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMacros(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Library, "library", "l", "", "library file or directory (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "delivery tick interval (default from config)")
	cmd.Flags().BoolVar(&opts.NoJournal, "no-journal", false, "do not record runs in the database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "stop after this long, cancelling live runs (0 = no limit)")

	return cmd
}

func runMacros(opts *RunOptions, refs []string, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if err := configureLogging(cmd.ErrOrStderr(), opts.RootOptions, cfg); err != nil {
		return err
	}

	path, err := libraryPath(opts.RootOptions, opts.Library)
	if err != nil {
		return err
	}
	tree, err := loadLibrary(path)
	if err != nil {
		return err
	}

	// Resolve every reference before anything starts.
	macros := make([]*macro.Macro, 0, len(refs))
	for _, ref := range refs {
		m, err := tree.Lookup(ref)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("macro %q not found", ref), err).WithCode(ErrCodeNotFound)
		}
		macros = append(macros, m)
	}

	tick := tickInterval(cfg, opts.Tick)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	if opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, opts.Timeout)
		defer cancelTimeout()
	}

	sess, err := openSession(ctx, cfg, sessionOptions{
		Database:  opts.Database,
		NoJournal: opts.NoJournal,
		Out:       cmd.OutOrStdout(),
		RunIDs:    opts.RunIDs,
	})
	if err != nil {
		return err
	}
	defer sess.close()

	eng := sess.engine
	eng.OnLogin()
	for _, m := range macros {
		id := eng.Spawn(*m)
		fmt.Fprintf(cmd.ErrOrStderr(), "started %q as run %s\n", m.Name, id)
	}

	driveCtx, stopDrive := context.WithCancel(ctx)
	driveDone := make(chan error, 1)
	go func() {
		driveDone <- eng.Drive(driveCtx, tick)
	}()

	err = waitIdle(ctx, eng, tick)
	stopDrive()
	<-driveDone

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		slog.Info("timeout reached, cancelling live runs", "running", len(eng.Running()))
	case err != nil:
		slog.Info("interrupted, cancelling live runs", "running", len(eng.Running()))
	}
	return nil
}

// waitIdle polls until the engine has no live run and nothing queued.
func waitIdle(ctx context.Context, eng *engine.Engine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if eng.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tickInterval returns override when set, else the configured interval.
func tickInterval(cfg *config.Config, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return cfg.TickInterval.Duration
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
