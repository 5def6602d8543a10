// Package harness runs scripted scenarios against the macro engine.
//
// A scenario names a macro library, drives a real engine through a list of
// steps and asserts on the commands that reached the sink. Scenarios double
// as executable documentation of engine behavior: cancellation, pausing,
// readiness gating and per-run ordering.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: greet_once
//	description: "A two-line macro is delivered in order"
//	library: ../library/testdata/crafting.yaml   # optional
//	macros:                                      # optional, appended
//	  - id: greet
//	    name: Greet
//	    contents: |
//	      /echo hello <wait.0>
//	      /wave <wait.0>
//	steps:
//	  - action: login
//	  - action: spawn
//	    macro: Greet
//	  - action: drain
//	assertions:
//	  - type: delivered
//	    commands: ["/echo hello", "/wave"]
//	  - type: run_status
//	    run: run-1
//	    status: completed
//
// # Steps
//
//   - login, logout: toggle engine readiness (logout cancels every run)
//   - spawn: start a macro by ID or name
//   - cancel, pause, resume: act on a run ID
//   - cancel_macro: cancel the oldest run of a macro
//   - tick: deliver count commands, waiting for each to be queued
//   - sleep: wait for a duration
//   - drain: tick until no run is live and the queue is empty
//
// # Assertion Types
//
//   - delivered: the delivered commands are exactly the given list
//   - delivered_contains: a command was delivered at least once
//   - delivered_order: commands were delivered in order, gaps allowed
//   - delivered_count: number of deliveries, optionally of one command
//   - dropped_count: number of commands dropped while not ready
//   - running: number of live runs after the last step
//   - run_status: final status of a run as recorded in the journal
//
// # Deterministic Testing
//
// Run IDs come from testutil.SequentialGenerator, the harness goroutine is
// the only tick driver and the journal lives in an in-memory SQLite
// database per scenario. A scenario whose runs do not overlap in time
// therefore produces an identical trace on every execution, which is what
// RunWithGolden compares against testdata/golden.
package harness
