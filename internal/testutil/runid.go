// Package testutil provides deterministic helpers for tests and the
// scenario harness.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialGenerator generates numbered run IDs: "run-1", "run-2", ...
//
// Unlike engine.FixedGenerator, it never runs out, which suits scenarios
// whose spawn count is only known at run time. The same scenario run with a
// fresh SequentialGenerator produces the same run IDs, so golden traces are
// byte-identical.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialGenerator creates a generator. If prefix is empty, "run"
// is used.
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next run ID.
//
// Implements engine.RunIDGenerator.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
