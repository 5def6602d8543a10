package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/macrology/internal/macro"
)

const (
	// FastCommandFloor is the minimum delay after a latency-sensitive command
	// that has no explicit or default wait.
	FastCommandFloor = 10 * time.Millisecond

	// CommandFloor is the minimum delay after any other command that has no
	// explicit or default wait.
	CommandFloor = 100 * time.Millisecond

	// DefaultPausePoll is how often a paused runner re-checks its flags.
	DefaultPausePoll = time.Second
)

// Sink receives commands from the tick consumer, one per call.
// Delivery is fire-and-forget: the engine expects no result.
type Sink interface {
	Send(command string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(command string)

// Send calls f(command).
func (f SinkFunc) Send(command string) {
	f(command)
}

// Engine is the execution registry plus the tick consumer.
//
// Thread-safety model:
//   - Spawn, CancelRequest, Pause, Resume and the queries: safe from any goroutine
//   - OnLogin / OnLogout: safe from any goroutine
//   - OnTick: called by exactly one driver at a time, never reentrant
//
// INVARIANTS:
//   - A run ID is in running iff its runner goroutine has not exited
//   - A run ID is in cancelled only while it is in running
//   - Each runner touches only its own run ID's entries
type Engine struct {
	runIDs    RunIDGenerator
	clock     *Clock
	queue     *deliveryQueue
	sink      Sink
	observer  Observer
	pausePoll time.Duration

	ready atomic.Bool

	running   *registry[*Instance]
	cancelled *registry[struct{}]
	paused    *registry[struct{}]

	// Shutdown: ctx interrupts runner sleeps, wg tracks runner goroutines.
	lifecycle sync.Mutex
	closed    bool
	ctx       context.Context
	stop      context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunIDGenerator replaces the default UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithClock sets the logical clock, e.g. one resumed from a journal's last seq.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithObserver registers an observer for run and delivery notifications.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithPausePoll sets how often a paused runner re-checks its flags.
//
// Default: 1s (DefaultPausePoll). Tests use a shorter interval.
func WithPausePoll(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pausePoll = d
		}
	}
}

// New creates an engine that delivers commands to sink.
//
// The engine starts not ready: Spawn is rejected until OnLogin is called.
// A nil sink discards every command.
func New(sink Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = SinkFunc(func(string) {})
	}

	ctx, stop := context.WithCancel(context.Background())
	e := &Engine{
		runIDs:    UUIDv7Generator{},
		clock:     NewClock(),
		queue:     newDeliveryQueue(),
		sink:      sink,
		observer:  NopObserver{},
		pausePoll: DefaultPausePoll,
		running:   newRegistry[*Instance](),
		cancelled: newRegistry[struct{}](),
		paused:    newRegistry[struct{}](),
		ctx:       ctx,
		stop:      stop,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Spawn starts a new run of m and returns its run ID.
//
// Returns "" without creating anything if the engine is not ready or has been
// closed. If m has no executable lines, a fresh run ID is returned but no run
// is registered: the macro is complete before Spawn returns, so the ID is
// never reported by IsRunning.
func (e *Engine) Spawn(m macro.Macro) string {
	if !e.ready.Load() {
		slog.Debug("spawn rejected: not ready", "macro", m.ID)
		return ""
	}

	lines := ParseScript(m.Contents)

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.closed {
		slog.Debug("spawn rejected: engine closed", "macro", m.ID)
		return ""
	}

	id := e.runIDs.Generate()
	if len(lines) == 0 {
		slog.Debug("macro has no executable lines", "macro", m.ID, "run", id)
		return id
	}

	inst := newInstance(id, m, lines, e.clock.Next())
	e.running.put(id, inst)
	e.observer.RunStarted(inst.Info())

	// OnLogout may have swept the registry after the readiness check above.
	if !e.ready.Load() {
		e.CancelRequest(id)
	}

	e.wg.Add(1)
	go e.run(inst)

	slog.Info("macro spawned", "macro", m.ID, "name", m.Name, "run", id, "lines", len(lines))
	return id
}

// IsRunning reports whether the run's runner has not yet exited.
func (e *Engine) IsRunning(runID string) bool {
	return e.running.has(runID)
}

// CancelRequest asks a run to stop at the top of its next loop iteration.
// No-op for unknown or finished runs. Idempotent.
func (e *Engine) CancelRequest(runID string) {
	// Inserting under the running lock means the runner's deregistration,
	// which clears the flag afterwards, cannot interleave with this insert.
	e.running.whilePresent(runID, func(*Instance) {
		e.cancelled.put(runID, struct{}{})
	})
}

// Pause asks a run to hold at the top of its loop until Resume.
// No-op for unknown or finished runs. Idempotent.
func (e *Engine) Pause(runID string) {
	e.running.whilePresent(runID, func(*Instance) {
		e.paused.put(runID, struct{}{})
	})
}

// Resume clears a pause request. Idempotent.
func (e *Engine) Resume(runID string) {
	e.paused.remove(runID)
}

// IsPaused reports whether a pause request is present for the run.
func (e *Engine) IsPaused(runID string) bool {
	return e.paused.has(runID)
}

// IsCancelled reports whether a cancel request is pending (not yet honoured).
func (e *Engine) IsCancelled(runID string) bool {
	return e.cancelled.has(runID)
}

// CancelMacro cancels the oldest running instance of the macro with the given
// ID. Returns the run ID that was asked to cancel.
func (e *Engine) CancelMacro(macroID string) (string, bool) {
	for _, info := range e.Running() {
		if info.MacroID == macroID {
			e.CancelRequest(info.RunID)
			return info.RunID, true
		}
	}
	return "", false
}

// CancelAll issues a cancel request for every running instance and returns
// how many were asked.
func (e *Engine) CancelAll() int {
	ids := e.running.keys()
	for _, id := range ids {
		e.CancelRequest(id)
	}
	return len(ids)
}

// Running returns a snapshot of every live run, oldest first.
func (e *Engine) Running() []RunInfo {
	insts := e.running.values()
	out := make([]RunInfo, 0, len(insts))
	for _, inst := range insts {
		out = append(out, inst.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Lookup returns a snapshot of one live run.
func (e *Engine) Lookup(runID string) (RunInfo, bool) {
	inst, ok := e.running.get(runID)
	if !ok {
		return RunInfo{}, false
	}
	return inst.Info(), true
}

// OnLogin marks the engine ready: spawns are accepted and ticks deliver.
func (e *Engine) OnLogin() {
	e.ready.Store(true)
	slog.Info("engine ready")
}

// OnLogout marks the engine not ready and cancels every running instance, so
// no runner keeps producing while the sink is invalid.
func (e *Engine) OnLogout() {
	e.ready.Store(false)
	n := e.CancelAll()
	slog.Info("engine not ready", "cancelled", n)
}

// IsReady reports the readiness flag.
func (e *Engine) IsReady() bool {
	return e.ready.Load()
}

// QueueLen returns the number of commands waiting for delivery.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Idle reports whether no run is live and nothing is queued.
func (e *Engine) Idle() bool {
	return e.running.len() == 0 && e.queue.Len() == 0
}

// Close stops the engine. Runner sleeps are interrupted, every live run ends
// as cancelled, and further spawns are rejected. Close blocks until all
// runner goroutines have exited. Safe to call more than once.
func (e *Engine) Close() {
	e.lifecycle.Lock()
	if e.closed {
		e.lifecycle.Unlock()
		return
	}
	e.closed = true
	e.lifecycle.Unlock()

	e.stop()
	e.queue.Close()
	e.wg.Wait()
	slog.Debug("engine closed")
}
