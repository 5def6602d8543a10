// Package store provides SQLite-backed storage for the macro tree and the
// run journal.
//
// The store keeps:
//   - Nodes: the configuration tree, one row per folder or macro, in pre-order
//   - Runs: one row per spawned instance, updated when the run finishes
//   - Dispatches: every command that left the delivery queue, delivered or dropped
//
// # Ordering
//
// Runs and dispatches are ordered by seq (the engine's logical clock), never
// by timestamps. Queries include ORDER BY seq ASC so listings are identical
// across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce node parent links
//
// Journal adapts the store to engine.Observer so runs can be recorded without
// the tick path touching the disk.
package store
