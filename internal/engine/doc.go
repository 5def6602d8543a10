// Package engine implements the Macrology macro execution engine.
//
// The engine runs any number of macros at once. Each spawned macro gets its
// own runner goroutine that walks the macro's lines, interprets directives and
// pushes commands onto a single delivery queue. An external driver calls
// OnTick periodically; each tick forwards at most one queued command to the
// sink, which caps total throughput at one command per tick no matter how many
// macros are active.
//
// ARCHITECTURE:
//
// Execution Registry:
// Three maps keyed by run ID, each behind its own lock:
//   - running: authoritative "is this run alive" (entry removed when the runner exits)
//   - cancelled: one-shot cancel requests, consumed by the runner
//   - paused: sticky pause requests, removed on resume
//
// Runner Loop (one goroutine per run):
//  1. Consume a pending cancel request and stop
//  2. If paused, sleep one poll interval and retry
//  3. Extract <wait.N> from the current line
//  4. /loop restarts at line 0; /defaultwait N sets the sticky wait
//  5. Otherwise enqueue the line and sleep for the resolved wait
//
// Delivery:
// The queue is unbounded, so producers never block. OnTick never blocks
// either; it takes one command if there is one and forwards it only when the
// engine is ready (logged in).
//
// CRITICAL PATTERNS:
//
// Cooperative Cancellation:
// Cancel and pause are flags, checked only at the top of the runner loop.
// A run stuck in a long wait honours a cancel when that wait ends.
//
// Logical Ordering:
// Every queued command is stamped with a monotonic seq from Clock.Next().
// Within one run, seq order is line order. Across runs no order is promised.
package engine
