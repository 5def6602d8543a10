package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/macrology/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, formatEvent(event))
		}
	}

	return buf.String()
}

func formatEvent(ev TraceEvent) string {
	switch ev.Type {
	case EventStep:
		parts := []string{ev.Action}
		if ev.Macro != "" {
			parts = append(parts, "macro="+ev.Macro)
		}
		if ev.RunID != "" {
			parts = append(parts, "run="+ev.RunID)
		}
		return strings.Join(parts, " ")
	case EventFinished:
		return fmt.Sprintf("%s %s %s", ev.Type, ev.RunID, ev.Status)
	default:
		return fmt.Sprintf("%s %s %q", ev.Type, ev.RunID, ev.Command)
	}
}

// assertDelivered checks the delivered commands are exactly the expected list.
func assertDelivered(result *Result, assertion Assertion) error {
	got := result.Delivered()
	if slices.Equal(got, assertion.Commands) || (len(got) == 0 && len(assertion.Commands) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDelivered,
		Expected: fmt.Sprintf("%q", assertion.Commands),
		Actual:   fmt.Sprintf("%q", got),
		Trace:    result.Trace,
	}
}

// assertDeliveredContains checks the command was delivered at least once.
func assertDeliveredContains(result *Result, assertion Assertion) error {
	if slices.Contains(result.Delivered(), assertion.Command) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDeliveredContains,
		Expected: fmt.Sprintf("command %q delivered", assertion.Command),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// assertDeliveredOrder checks the commands were delivered in the given order.
// Commands don't need to be consecutive (intervening deliveries are allowed).
func assertDeliveredOrder(result *Result, assertion Assertion) error {
	delivered := result.Delivered()

	pos := 0
	for _, want := range assertion.Commands {
		idx := slices.Index(delivered[pos:], want)
		if idx < 0 {
			return &AssertionError{
				Type:     AssertDeliveredOrder,
				Expected: fmt.Sprintf("commands in order: %q", assertion.Commands),
				Actual:   fmt.Sprintf("%q not delivered after position %d", want, pos),
				Trace:    result.Trace,
			}
		}
		pos += idx + 1
	}
	return nil
}

// assertDeliveredCount checks how many commands were delivered. With a
// command set, only deliveries of that command are counted.
func assertDeliveredCount(result *Result, assertion Assertion) error {
	count := 0
	for _, cmd := range result.Delivered() {
		if assertion.Command == "" || cmd == assertion.Command {
			count++
		}
	}

	if count != *assertion.Count {
		what := "commands"
		if assertion.Command != "" {
			what = fmt.Sprintf("deliveries of %q", assertion.Command)
		}
		return &AssertionError{
			Type:     AssertDeliveredCount,
			Expected: fmt.Sprintf("%d %s", *assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertDroppedCount checks how many commands were dropped.
func assertDroppedCount(result *Result, assertion Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Type == EventDropped {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertDroppedCount,
			Expected: fmt.Sprintf("%d dropped commands", *assertion.Count),
			Actual:   fmt.Sprintf("%d dropped commands", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertRunning checks how many runs were live after the last step.
func assertRunning(result *Result, assertion Assertion) error {
	if result.Running != *assertion.Count {
		return &AssertionError{
			Type:     AssertRunning,
			Expected: fmt.Sprintf("%d running", *assertion.Count),
			Actual:   fmt.Sprintf("%d running", result.Running),
		}
	}
	return nil
}

// assertRunStatus reads the run back from the journal and checks its final
// status.
func assertRunStatus(ctx context.Context, st *store.Store, assertion Assertion) error {
	run, err := st.ReadRun(ctx, assertion.Run)
	if errors.Is(err, sql.ErrNoRows) {
		return &AssertionError{
			Type:     AssertRunStatus,
			Expected: fmt.Sprintf("run %s with status %s", assertion.Run, assertion.Status),
			Actual:   "run not found in journal",
		}
	}
	if err != nil {
		return fmt.Errorf("read run %s: %w", assertion.Run, err)
	}

	if !strings.EqualFold(run.Status, assertion.Status) {
		return &AssertionError{
			Type:     AssertRunStatus,
			Expected: fmt.Sprintf("run %s status %s", assertion.Run, assertion.Status),
			Actual:   fmt.Sprintf("run %s status %s", assertion.Run, run.Status),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for run_status assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDelivered:
			err = assertDelivered(result, assertion)
		case AssertDeliveredContains:
			err = assertDeliveredContains(result, assertion)
		case AssertDeliveredOrder:
			err = assertDeliveredOrder(result, assertion)
		case AssertDeliveredCount, AssertDroppedCount, AssertRunning:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: %s requires count", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertDeliveredCount:
				err = assertDeliveredCount(result, assertion)
			case AssertDroppedCount:
				err = assertDroppedCount(result, assertion)
			default:
				err = assertRunning(result, assertion)
			}
		case AssertRunStatus:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: run_status requires database context", i)
			} else {
				err = assertRunStatus(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
