package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/macrology/internal/console"
	"github.com/roach88/macrology/internal/library"
	"github.com/roach88/macrology/internal/macro"
)

// ConsoleOptions holds flags for the console command.
type ConsoleOptions struct {
	*RootOptions
	Library   string
	Database  string
	Tick      time.Duration
	NoJournal bool
	NoWatch   bool
	NoLogin   bool
	Wait      bool
}

// NewConsoleCommand creates the console command.
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConsoleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Control the engine with /mm commands read from stdin",
		Long: `Start the engine and read console commands from stdin, one per line:

  /mmacro <id|name>     spawn a macro
  /mmcancel <run|name|all>
  /mmpause <run|name>   /mmresume <run|name>
  /mmlist               list live runs
  /mmlogin /mmlogout    toggle readiness

Delivered commands and replies are written to stdout. The library is
reloaded when it changes on disk; runs already started keep the macro text
they were spawned with.

Example:
  macrology console --library ./macros
  echo "/mmacro Greet" | macrology console --wait --no-journal`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Library, "library", "l", "", "library file or directory (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "delivery tick interval (default from config)")
	cmd.Flags().BoolVar(&opts.NoJournal, "no-journal", false, "do not record runs in the database")
	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "do not reload the library on change")
	cmd.Flags().BoolVar(&opts.NoLogin, "no-login", false, "start logged out (use /mmlogin)")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "after end of input, wait for live runs to finish")

	return cmd
}

func runConsole(opts *ConsoleOptions, cmd *cobra.Command) error {
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
	holder := macro.NewHolder(tree)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// Sink output and console replies share stdout.
	out := &lockedWriter{w: cmd.OutOrStdout()}

	sess, err := openSession(ctx, cfg, sessionOptions{
		Database:  opts.Database,
		NoJournal: opts.NoJournal,
		Out:       out,
	})
	if err != nil {
		return err
	}
	defer sess.close()

	eng := sess.engine
	if !opts.NoLogin {
		eng.OnLogin()
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = eng.Drive(bgCtx, tickInterval(cfg, opts.Tick))
	}()

	if !opts.NoWatch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := library.Watch(bgCtx, path, holder)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("library watch stopped", "path", path, "error", err)
			}
		}()
	}

	c := console.New(eng, holder, out)
	if err := c.Run(ctx, cmd.InOrStdin()); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "console input error", err)
	}

	if opts.Wait {
		if err := waitIdle(ctx, eng, tickInterval(cfg, opts.Tick)); err != nil {
			slog.Info("interrupted, cancelling live runs", "running", len(eng.Running()))
		}
	}

	// Stop the driver before the deferred session close.
	stopBackground()
	wg.Wait()
	return nil
}

// lockedWriter serializes writes from the tick driver and the console.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
