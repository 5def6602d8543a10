package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/roach88/macrology/internal/macro"
)

// Status is the lifecycle state of a running instance.
type Status int32

const (
	// StatusActive means the runner is executing lines.
	StatusActive Status = iota + 1
	// StatusPaused means the runner observed a pause request and is polling.
	StatusPaused
	// StatusCancelled means the runner honoured a cancel request (terminal).
	StatusCancelled
	// StatusCompleted means the runner reached the end of its lines (terminal).
	StatusCompleted
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCancelled:
		return "cancelled"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Instance is one spawned execution of a macro.
//
// The line list is captured at spawn and never changes. Line and status are
// written by the owning runner and read by anyone enumerating runs, so both
// are atomics.
type Instance struct {
	ID        string
	Macro     macro.Macro
	Seq       int64
	StartedAt time.Time

	lines  []string
	line   atomic.Int64
	status atomic.Int32
}

func newInstance(id string, m macro.Macro, lines []string, seq int64) *Instance {
	inst := &Instance{
		ID:        id,
		Macro:     m,
		Seq:       seq,
		StartedAt: time.Now(),
		lines:     lines,
	}
	inst.status.Store(int32(StatusActive))
	return inst
}

func (i *Instance) setStatus(s Status) {
	i.status.Store(int32(s))
}

// Status returns the current lifecycle state.
func (i *Instance) Status() Status {
	return Status(i.status.Load())
}

// Line returns the index of the line the runner is on.
func (i *Instance) Line() int {
	return int(i.line.Load())
}

// Lines returns a copy of the executable lines captured at spawn.
func (i *Instance) Lines() []string {
	out := make([]string, len(i.lines))
	copy(out, i.lines)
	return out
}

// Info returns a point-in-time snapshot of the instance.
func (i *Instance) Info() RunInfo {
	return RunInfo{
		RunID:     i.ID,
		MacroID:   i.Macro.ID,
		MacroName: i.Macro.Name,
		Seq:       i.Seq,
		Line:      i.Line(),
		Lines:     len(i.lines),
		Status:    i.Status(),
		StartedAt: i.StartedAt,
	}
}

// RunInfo is a snapshot of a running instance for display and journaling.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	MacroID   string    `json:"macro_id"`
	MacroName string    `json:"macro_name"`
	Seq       int64     `json:"seq"`
	Line      int       `json:"line"`
	Lines     int       `json:"lines"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
