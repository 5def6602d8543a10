package harness

// Trace event types.
const (
	EventStep      = "step"
	EventDelivered = "delivered"
	EventDropped   = "dropped"
	EventFinished  = "finished"
)

// TraceEvent is one entry in a scenario trace.
//
// Step events are written by the harness as it executes each step. Delivered
// and dropped events come from the engine's tick path, which the harness
// drives from its own goroutine, so their order relative to steps is
// deterministic. Finished events are read back from the journal after the
// engine is closed, in spawn order.
type TraceEvent struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq"`
	Action  string `json:"action,omitempty"`
	Macro   string `json:"macro,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Command string `json:"command,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains steps, deliveries, drops and run outcomes in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Running is the number of live runs after the last step, before the
	// engine was closed.
	Running int `json:"running"`

	// Runs maps each spawned run ID to its final status.
	Runs map[string]string `json:"runs,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Runs:   make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// add appends ev to the trace, numbering it.
func (r *Result) add(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// AddStepTrace records a scenario step.
func (r *Result) AddStepTrace(action, macroRef, runID string) {
	r.add(TraceEvent{Type: EventStep, Action: action, Macro: macroRef, RunID: runID})
}

// AddDeliveryTrace records a command forwarded to the sink.
func (r *Result) AddDeliveryTrace(runID, command string) {
	r.add(TraceEvent{Type: EventDelivered, RunID: runID, Command: command})
}

// AddDropTrace records a command discarded because the engine was not ready.
func (r *Result) AddDropTrace(runID, command string) {
	r.add(TraceEvent{Type: EventDropped, RunID: runID, Command: command})
}

// AddFinishedTrace records the final status of a run.
func (r *Result) AddFinishedTrace(runID, status string) {
	r.add(TraceEvent{Type: EventFinished, RunID: runID, Status: status})
}

// Delivered returns the delivered commands in order.
func (r *Result) Delivered() []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == EventDelivered {
			out = append(out, ev.Command)
		}
	}
	return out
}
