package sink

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Writer writes each command on its own line, optionally prefixed.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

// NewWriter creates a sink writing to w.
func NewWriter(w io.Writer, prefix string) *Writer {
	return &Writer{w: w, prefix: prefix}
}

// Send writes command. Write errors are logged, not returned: delivery is
// fire-and-forget.
func (s *Writer) Send(command string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "%s%s\n", s.prefix, command); err != nil {
		slog.Warn("sink write failed", "error", err)
	}
}
