package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoLines = "/defaultwait 0\n/echo a\n/echo b"

func TestRun_DeliversInOrder(t *testing.T) {
	scenario := &Scenario{
		Name:   "in_order",
		Macros: []MacroSpec{{ID: "m", Name: "M", Contents: twoLines}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "M"},
			{Action: StepDrain},
		},
		Assertions: []Assertion{
			{Type: AssertDelivered, Commands: []string{"/echo a", "/echo b"}},
			{Type: AssertRunStatus, Run: "run-1", Status: "completed"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]string{"run-1": "completed"}, result.Runs)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, EventFinished, last.Type)
	assert.Equal(t, "completed", last.Status)
}

func TestRun_FailingAssertionMarksResult(t *testing.T) {
	scenario := &Scenario{
		Name:   "fails",
		Macros: []MacroSpec{{ID: "m", Name: "M", Contents: twoLines}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "m"},
			{Action: StepDrain},
		},
		Assertions: []Assertion{
			{Type: AssertDeliveredCount, Count: intPtr(5)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "delivered_count")
}

func TestRun_SpawnBeforeLoginIsRejected(t *testing.T) {
	scenario := &Scenario{
		Name:   "not_ready",
		Macros: []MacroSpec{{ID: "m", Name: "M", Contents: twoLines}},
		Steps: []Step{
			{Action: StepSpawn, Macro: "M"},
			{Action: StepDrain},
		},
		Assertions: []Assertion{
			{Type: AssertDelivered, Commands: []string{}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Runs)
	assert.Equal(t, "", result.Trace[0].RunID)
}

func TestRun_LogoutDropsQueuedCommands(t *testing.T) {
	scenario := &Scenario{
		Name:   "logout_drops",
		Macros: []MacroSpec{{ID: "m", Name: "M", Contents: twoLines}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "M"},
			// Zero waits: both commands are queued well within this.
			{Action: StepSleep, Duration: "100ms"},
			{Action: StepLogout},
			{Action: StepDrain},
		},
		Assertions: []Assertion{
			{Type: AssertDeliveredCount, Count: intPtr(0)},
			{Type: AssertDroppedCount, Count: intPtr(2)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_CancelMacroCancelsOldest(t *testing.T) {
	scenario := &Scenario{
		Name:   "cancel_macro",
		Macros: []MacroSpec{{ID: "loop", Name: "Loop", Contents: "/defaultwait 0.01\n/echo tick\n/loop"}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "Loop"},
			{Action: StepSpawn, Macro: "Loop"},
			{Action: StepCancelMacro, Macro: "loop"},
			{Action: StepCancel, Run: "run-2"},
			{Action: StepDrain},
		},
		Assertions: []Assertion{
			{Type: AssertRunning, Count: intPtr(0)},
			{Type: AssertRunStatus, Run: "run-1", Status: "cancelled"},
			{Type: AssertRunStatus, Run: "run-2", Status: "cancelled"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	var cancelStep TraceEvent
	for _, ev := range result.Trace {
		if ev.Action == StepCancelMacro {
			cancelStep = ev
		}
	}
	assert.Equal(t, "run-1", cancelStep.RunID)
}

func TestRun_PauseHoldsRun(t *testing.T) {
	scenario := &Scenario{
		Name:   "pause",
		Macros: []MacroSpec{{ID: "loop", Name: "Loop", Contents: "/defaultwait 0.01\n/echo tick\n/loop"}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "Loop"},
			{Action: StepTick},
			{Action: StepPause, Run: "run-1"},
			{Action: StepSleep, Duration: "50ms"},
			{Action: StepResume, Run: "run-1"},
			{Action: StepTick, Count: 2},
		},
		Assertions: []Assertion{
			{Type: AssertRunning, Count: intPtr(1)},
			{Type: AssertDeliveredCount, Command: "/echo tick", Count: intPtr(3)},
			// Close ends every live run as cancelled.
			{Type: AssertRunStatus, Run: "run-1", Status: "cancelled"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownMacroStopsSteps(t *testing.T) {
	scenario := &Scenario{
		Name:   "unknown",
		Macros: []MacroSpec{{ID: "m", Name: "M", Contents: twoLines}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "Nope"},
			{Action: StepSpawn, Macro: "M"},
		},
		Assertions: []Assertion{
			{Type: AssertRunning, Count: intPtr(0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "step 1 (spawn)")
	assert.Empty(t, result.Runs, "steps after the failure are not executed")
}

func TestRun_TickTimesOut(t *testing.T) {
	scenario := &Scenario{
		Name:   "tick_timeout",
		Macros: []MacroSpec{{ID: "m", Name: "M", Contents: "/echo once"}},
		Steps: []Step{
			{Action: StepLogin},
			{Action: StepSpawn, Macro: "M"},
			{Action: StepTick, Count: 2, Timeout: "200ms"},
		},
		Assertions: []Assertion{
			{Type: AssertDelivered, Commands: []string{"/echo once"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "the delivered assertion still holds")
	assert.Contains(t, result.Errors[0], "delivered 1 of 2")
}

func TestRun_InvalidTree(t *testing.T) {
	scenario := &Scenario{
		Name: "bad_tree",
		Macros: []MacroSpec{
			{ID: "x", Name: "A"},
			{ID: "x", Name: "B"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build macro tree")
}

func TestRun_ExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
