package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/macrology/internal/macro"
)

// DefaultDebounce is how long Watch waits after the last change before
// reloading. Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	onReload func(*macro.Tree, error)
}

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithReloadHook registers fn to be called after every reload attempt, with
// the new tree or the load error.
func WithReloadHook(fn func(*macro.Tree, error)) WatchOption {
	return func(c *watchConfig) {
		c.onReload = fn
	}
}

// Watch reloads the library at path into h whenever it changes on disk,
// until ctx is done. A library that fails to load is reported and h keeps
// the previous tree, so a half-edited file never empties the running set.
//
// Runs that were spawned before a reload are unaffected: the engine copies
// a macro when it spawns it.
//
// Watch blocks; it returns ctx.Err() on cancellation or an error if the
// watch could not be set up.
func Watch(ctx context.Context, path string, h *macro.Holder, opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("watch library: %w", err)
	}

	// Watch the containing directory for a single file so atomic
	// rename-over saves are seen.
	dir := absPath
	relevant := func(name string) bool { return IsLibraryFile(name) }
	if !info.IsDir() {
		dir = filepath.Dir(absPath)
		relevant = func(name string) bool { return filepath.Clean(name) == absPath }
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch library: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch library: %w", err)
	}
	slog.Debug("watching library", "path", absPath)

	// Armed by the first relevant event.
	timer := time.NewTimer(cfg.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !relevant(ev.Name) {
				continue
			}
			timer.Reset(cfg.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("library watch error", "path", absPath, "error", err)

		case <-timer.C:
			t, err := Load(absPath)
			if err != nil {
				slog.Warn("library reload failed, keeping previous tree", "path", absPath, "error", err)
			} else {
				h.Set(t)
				slog.Info("library reloaded", "path", absPath, "macros", len(t.Macros()))
			}
			if cfg.onReload != nil {
				cfg.onReload(t, err)
			}
		}
	}
}
