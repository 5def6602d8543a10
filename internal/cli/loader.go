package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/macrology/internal/config"
	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/library"
	"github.com/roach88/macrology/internal/macro"
	"github.com/roach88/macrology/internal/sink"
	"github.com/roach88/macrology/internal/store"
)

// libraryPath returns arg, or the configured library when arg is empty.
func libraryPath(opts *RootOptions, arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	cfg, err := opts.Config()
	if err != nil {
		return "", err
	}
	return cfg.Library, nil
}

// loadLibrary loads the library at path, mapping failures to exit code 2.
func loadLibrary(path string) (*macro.Tree, error) {
	tree, err := library.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load library", err).WithCode(ErrCodeLibrary)
	}
	return tree, nil
}

// libraryErrorDetails extracts position information from a library error
// for JSON output.
func libraryErrorDetails(err error) map[string]any {
	var le *library.LoadError
	if !errors.As(err, &le) {
		return nil
	}
	details := map[string]any{"code": le.Code}
	if le.Path != "" {
		details["path"] = le.Path
	}
	if le.Line > 0 {
		details["line"] = le.Line
	}
	return details
}

// sessionOptions configures openSession.
type sessionOptions struct {
	// Database overrides the configured journal database.
	Database string
	// NoJournal runs without a database.
	NoJournal bool
	// Out receives delivered commands from the stdout sink.
	Out io.Writer
	// RunIDs overrides the run ID generator (tests).
	RunIDs engine.RunIDGenerator
}

// session is an engine wired to its sink and journal.
type session struct {
	engine  *engine.Engine
	store   *store.Store
	journal *store.Journal
	closers []func()
}

// openSession builds the sink, opens the journal and creates a logged-out
// engine. Seq numbering continues from the journal's last seq.
func openSession(ctx context.Context, cfg *config.Config, so sessionOptions) (*session, error) {
	s := &session{}

	out, err := openSink(cfg.Sink, so.Out)
	if err != nil {
		return nil, err
	}
	if closer, ok := out.(interface{ Close() }); ok {
		s.closers = append(s.closers, closer.Close)
	}

	engineOpts := []engine.Option{}
	if so.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(so.RunIDs))
	}

	if !so.NoJournal {
		dbPath := so.Database
		if dbPath == "" {
			dbPath = cfg.Database
		}
		st, _, err := openStore(nil, dbPath, false)
		if err != nil {
			s.close()
			return nil, err
		}
		s.store = st

		last, err := st.LastSeq(ctx)
		if err != nil {
			s.close()
			return nil, WrapExitError(ExitCommandError, "failed to read journal", err).WithCode(ErrCodeStore)
		}

		s.journal = store.NewJournal(st, 0)
		engineOpts = append(engineOpts,
			engine.WithClock(engine.NewClockAt(last)),
			engine.WithObserver(s.journal),
		)
		slog.Debug("journal open", "db", dbPath, "last_seq", last)
	}

	s.engine = engine.New(out, engineOpts...)
	return s, nil
}

// close stops the engine, flushes the journal and releases the sink.
func (s *session) close() {
	if s.engine != nil {
		s.engine.Close()
	}
	if s.journal != nil {
		s.journal.Close()
		if lost := s.journal.Lost(); lost > 0 {
			slog.Warn("journal dropped events", "lost", lost)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	if s.store != nil {
		closeStore(s.store)
	}
}

// openSink builds the configured sink. Lua scripts forward send() calls to
// a Writer on out.
func openSink(sc config.SinkConfig, out io.Writer) (engine.Sink, error) {
	writer := sink.NewWriter(out, sc.Prefix)

	switch sc.Kind {
	case "", config.SinkStdout:
		return writer, nil
	case config.SinkLua:
		l, err := sink.LoadLua(sc.Script, sink.WithForward(writer))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load sink script", err).WithCode(ErrCodeConfig)
		}
		return l, nil
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown sink kind %q", sc.Kind)).WithCode(ErrCodeConfig)
	}
}

// openStore opens the journal database at override, or the configured one.
// When mustExist is set a missing file is reported instead of created.
func openStore(opts *RootOptions, override string, mustExist bool) (*store.Store, string, error) {
	dbPath := override
	if dbPath == "" {
		cfg, err := opts.Config()
		if err != nil {
			return nil, "", err
		}
		dbPath = cfg.Database
	}

	if mustExist {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, dbPath, WrapExitError(ExitCommandError, fmt.Sprintf("database %s not found", dbPath), err).WithCode(ErrCodeNotFound)
		}
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, dbPath, WrapExitError(ExitCommandError, "failed to create database directory", err).WithCode(ErrCodeStore)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, dbPath, WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeStore)
	}
	return st, dbPath, nil
}

// closeStore closes st, logging any error.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
