// Package sink provides destinations for commands leaving the engine's
// delivery queue.
//
// Every sink has a Send(command string) method and satisfies engine.Sink.
// Writer prints commands, Recorder keeps them in memory, and Lua hands them
// to a sandboxed script.
package sink
