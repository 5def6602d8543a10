package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OnTick forwards at most one queued command to the sink.
//
// It never blocks. An empty queue makes the tick a no-op. Readiness is checked
// after dequeuing, so a command taken while the engine is not ready is dropped
// rather than put back.
//
// CRITICAL: Must not be called concurrently with itself.
func (e *Engine) OnTick() {
	d, ok := e.queue.TryDequeue()
	if !ok {
		return
	}

	if !e.ready.Load() {
		slog.Debug("command dropped: not ready", "run", d.RunID, "seq", d.Seq)
		e.observer.Dropped(d)
		return
	}

	e.sink.Send(d.Command)
	e.observer.Delivered(d)
}

// Drive calls OnTick once per interval until ctx is cancelled.
// It is the default external driver; hosts with their own frame loop call
// OnTick directly instead.
func (e *Engine) Drive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.OnTick()
		}
	}
}
