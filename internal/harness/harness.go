package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/macro"
	"github.com/roach88/macrology/internal/sink"
	"github.com/roach88/macrology/internal/store"
	"github.com/roach88/macrology/internal/testutil"
)

const (
	// pausePoll keeps paused runners responsive inside scenarios.
	pausePoll = 5 * time.Millisecond

	// pollInterval is how often waiting steps re-check the engine.
	pollInterval = time.Millisecond
)

// Harness is the scenario execution engine.
// It drives a real engine with a recording sink, sequential run IDs and a
// journal in an in-memory store.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	journal  *store.Journal
	tree     *macro.Tree
	recorder *sink.Recorder
	logger   *slog.Logger

	mu     sync.Mutex
	result *Result
}

var _ engine.Observer = (*Harness)(nil)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Build the macro tree from the library and inline macros
// 2. Start an engine whose observer is the journal plus the harness trace
// 3. Execute steps in order, stopping at the first failing step
// 4. Close the engine, flush the journal and record each run's final status
// 5. Evaluate assertions
//
// An error is returned only when the scenario could not be set up; step and
// assertion failures are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	tree, err := scenario.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to build macro tree: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		journal:  store.NewJournal(st, 0),
		tree:     tree,
		recorder: sink.NewRecorder(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		result:   NewResult(),
	}
	h.engine = engine.New(h.recorder,
		engine.WithRunIDGenerator(testutil.NewSequentialGenerator(scenario.RunPrefix)),
		engine.WithObserver(engine.Observers(h.journal, h)),
		engine.WithPausePoll(pausePoll),
	)

	ctx := context.Background()

	if err := h.executeSteps(scenario.Steps); err != nil {
		h.result.AddError(err.Error())
	}
	h.result.Running = len(h.engine.Running())

	h.engine.Close()
	h.journal.Close()
	if lost := h.journal.Lost(); lost > 0 {
		return nil, fmt.Errorf("journal lost %d events", lost)
	}

	if err := h.recordRuns(ctx); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(errMsg)
	}

	return h.result, nil
}

// executeSteps runs every step in order and stops at the first failure.
func (h *Harness) executeSteps(steps []Step) error {
	for i, step := range steps {
		if err := h.executeStep(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		h.logger.Info("step completed", "step", i, "action", step.Action)
	}
	return nil
}

func (h *Harness) executeStep(step Step) error {
	switch step.Action {
	case StepLogin:
		h.engine.OnLogin()
		h.addStep(step.Action, "", "")

	case StepLogout:
		h.engine.OnLogout()
		h.addStep(step.Action, "", "")

	case StepSpawn:
		m, err := h.tree.Lookup(step.Macro)
		if err != nil {
			return err
		}
		runID := h.engine.Spawn(*m)
		h.addStep(step.Action, m.ID, runID)

	case StepCancel:
		h.engine.CancelRequest(step.Run)
		h.addStep(step.Action, "", step.Run)

	case StepCancelMacro:
		m, err := h.tree.Lookup(step.Macro)
		if err != nil {
			return err
		}
		runID, ok := h.engine.CancelMacro(m.ID)
		if !ok {
			return fmt.Errorf("macro %q is not running", m.Name)
		}
		h.addStep(step.Action, m.ID, runID)

	case StepPause:
		h.engine.Pause(step.Run)
		h.addStep(step.Action, "", step.Run)

	case StepResume:
		h.engine.Resume(step.Run)
		h.addStep(step.Action, "", step.Run)

	case StepTick:
		h.addStep(step.Action, "", "")
		count := step.Count
		if count == 0 {
			count = 1
		}
		for n := 0; n < count; n++ {
			if !h.waitFor(step.timeout(), func() bool { return h.engine.QueueLen() > 0 }) {
				return fmt.Errorf("no command queued within %s (delivered %d of %d)", step.timeout(), n, count)
			}
			h.engine.OnTick()
		}

	case StepSleep:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.addStep(step.Action, "", "")
		time.Sleep(d)

	case StepDrain:
		h.addStep(step.Action, "", "")
		idle := h.waitFor(step.timeout(), func() bool {
			if h.engine.QueueLen() > 0 {
				h.engine.OnTick()
			}
			return h.engine.Idle()
		})
		if !idle {
			return fmt.Errorf("engine not idle within %s (%d running)", step.timeout(), len(h.engine.Running()))
		}

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// waitFor polls cond until it holds or timeout elapses.
func (h *Harness) waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

// recordRuns appends every journaled run, in spawn order, to the result.
func (h *Harness) recordRuns(ctx context.Context) error {
	runs, err := h.store.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read runs: %w", err)
	}
	for _, r := range runs {
		h.result.Runs[r.RunID] = r.Status
		h.result.AddFinishedTrace(r.RunID, r.Status)
	}
	return nil
}

func (h *Harness) addStep(action, macroID, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.AddStepTrace(action, macroID, runID)
}

// RunStarted implements engine.Observer. Runs are read back from the journal.
func (h *Harness) RunStarted(engine.RunInfo) {}

// RunFinished implements engine.Observer. Runs are read back from the journal.
func (h *Harness) RunFinished(engine.RunInfo) {}

// Delivered implements engine.Observer.
func (h *Harness) Delivered(d engine.Dispatch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.AddDeliveryTrace(d.RunID, d.Command)
}

// Dropped implements engine.Observer.
func (h *Harness) Dropped(d engine.Dispatch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.AddDropTrace(d.RunID, d.Command)
}
